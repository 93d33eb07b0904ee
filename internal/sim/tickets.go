package sim

import (
	"fmt"
	"math"
	"sort"
)

// TicketKind classifies a backlog ticket.
type TicketKind string

// Ticket kinds.
const (
	TicketCrashSpike        TicketKind = "CRASH_SPIKE"
	TicketANRRisk           TicketKind = "ANR_RISK"
	TicketJank              TicketKind = "JANK"
	TicketHeap              TicketKind = "HEAP"
	TicketBattery           TicketKind = "BATTERY"
	TicketA11yRegression    TicketKind = "A11Y_REGRESSION"
	TicketPrivacyComplaints TicketKind = "PRIVACY_COMPLAINTS"
	TicketSecurityExposure  TicketKind = "SECURITY_EXPOSURE"
	TicketCompatPlatform    TicketKind = "COMPAT_PLATFORM"
	TicketComplianceEU      TicketKind = "COMPLIANCE_EU"
	TicketComplianceUS      TicketKind = "COMPLIANCE_US"
	TicketComplianceUK      TicketKind = "COMPLIANCE_UK"
	TicketStoreRejection    TicketKind = "STORE_REJECTION"
	TicketTestCoverage      TicketKind = "TEST_COVERAGE"
	TicketArchitectureDebt  TicketKind = "ARCHITECTURE_DEBT"
)

// Ticket categories.
const (
	CategoryReliability  = "Reliability"
	CategoryPerformance  = "Performance"
	CategoryA11y         = "Accessibility"
	CategoryPrivacy      = "Privacy"
	CategorySecurity     = "Security"
	CategoryPlatform     = "Platform"
	CategoryArchitecture = "Architecture"
)

// ReasonRefactorOnly rejects fixing debt tickets directly.
const ReasonRefactorOnly = "Architecture debt is retired by refactoring"

// Ticket is an open backlog item.
type Ticket struct {
	ID       int        `json:"id"`
	Kind     TicketKind `json:"kind"`
	Title    string     `json:"title"`
	Category string     `json:"category"`
	Detail   string     `json:"detail,omitempty"`
	Severity int        `json:"severity"`
	Impact   int        `json:"impact"`
	Effort   int        `json:"effort"`
	AgeSec   int        `json:"age_sec"`
	Deferred bool       `json:"deferred"`
}

// openTicket files a ticket unless one of the same kind is already open and not deferred.
// Impact is damped once the kind has been at least half patched.
func (s *Simulator) openTicket(kind TicketKind, title, category string, severity, impact, effort int) (*Ticket, bool) {
	if t := s.activeTicket(kind); t != nil {
		return t, false
	}
	damped := float64(impact)
	if p := s.patchFor(kind); p >= 0.5 {
		damped *= 1 - 0.5*p
	}
	t := &Ticket{
		ID:       s.nextTicketID,
		Kind:     kind,
		Title:    title,
		Category: category,
		Severity: clampInt(severity, 0, 3),
		Impact:   clampInt(int(math.Round(damped)), 0, 100),
		Effort:   clampInt(effort, 1, 8),
	}
	s.nextTicketID++
	s.tickets = append(s.tickets, t)
	return t, true
}

func (s *Simulator) activeTicket(kind TicketKind) *Ticket {
	for _, t := range s.tickets {
		if t.Kind == kind && !t.Deferred {
			return t
		}
	}
	return nil
}

func (s *Simulator) ticket(id int) (*Ticket, int) {
	for i, t := range s.tickets {
		if t.ID == id {
			return t, i
		}
	}
	return nil, -1
}

func (s *Simulator) closeTicket(idx int) {
	s.tickets = append(s.tickets[:idx], s.tickets[idx+1:]...)
}

func (s *Simulator) patchFor(kind TicketKind) float64 {
	p := s.patch
	switch kind {
	case TicketCrashSpike:
		return p.crash
	case TicketANRRisk:
		return p.anr
	case TicketJank:
		return p.jank
	case TicketHeap:
		return p.heap
	case TicketBattery:
		return p.battery
	case TicketA11yRegression:
		return p.a11y
	case TicketPrivacyComplaints, TicketComplianceEU, TicketComplianceUK:
		return p.privacy
	case TicketSecurityExposure, TicketComplianceUS:
		return p.security
	case TicketCompatPlatform, TicketStoreRejection:
		return p.compat
	}
	return 0
}

// tickTickets ages the backlog, files tickets from live signals and applies backlog pressure.
func (s *Simulator) tickTickets() {
	for _, t := range s.tickets {
		t.AgeSec++
	}
	for _, a := range s.advisories {
		a.AgeSec++
	}

	t, p := s.tech, s.perception
	if t.FailureRate > 0.08 {
		s.openTicket(TicketCrashSpike, "Crash spike", CategoryReliability, 3, 85, 5)
	}
	if t.ANRRisk > 0.22 {
		s.openTicket(TicketANRRisk, "ANR risk elevated", CategoryReliability, 3, 80, 5)
	}
	if t.JankPct > 28 {
		s.openTicket(TicketJank, "Jank regression", CategoryPerformance, 2, 65, 4)
	}
	if t.HeapMB/t.HeapMaxMB > 0.78 {
		s.openTicket(TicketHeap, "Memory pressure", CategoryPerformance, 2, 60, 4)
	}
	if t.Battery < 25 {
		s.openTicket(TicketBattery, "Battery complaints", CategoryPerformance, 1, 45, 3)
	}
	if p.A11y < 80 {
		s.openTicket(TicketA11yRegression, "Accessibility regression", CategoryA11y, 2, 70, 4)
	}
	if p.Privacy < 80 {
		s.openTicket(TicketPrivacyComplaints, "Privacy complaints", CategoryPrivacy, 2, 70, 4)
	}
	if p.Security < 78 {
		s.openTicket(TicketSecurityExposure, "Security exposure", CategorySecurity, 3, 90, 6)
	}
	if s.platform.Pressure > 0.55 && s.patch.compat < 0.40 {
		s.openTicket(TicketCompatPlatform, fmt.Sprintf("Compat on platform API %d", s.platform.LatestAPI), CategoryPlatform, 2, 60, 5)
	}

	impact, support := s.backlogPressure()
	s.perception.SupportLoad = clamp(s.perception.SupportLoad+support-0.3, 0, 100)
	s.adjustRating(-impact)
}

// backlogPressure returns the rating and support pressure of the open backlog.
func (s *Simulator) backlogPressure() (rating, support float64) {
	for _, t := range s.tickets {
		age := clamp(float64(t.AgeSec)/240, 0, 2)
		weight := float64(t.Impact) / 100 * float64(t.Severity+1)
		deferred := boolf(t.Deferred, 0.6, 1)
		rating += weight * 0.004 * (1 + 0.25*age) * deferred
		support += weight * 0.22 * (1 + 0.40*age) * deferred
	}
	return rating, support
}

// FixTicket spends engineering capacity equal to the ticket's effort and applies its remediation.
func (s *Simulator) FixTicket(id int) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	t, idx := s.ticket(id)
	if t == nil {
		return reject(ReasonNoTicket)
	}
	if t.Kind == TicketArchitectureDebt {
		return reject(ReasonRefactorOnly)
	}
	cost := float64(t.Effort)
	if s.capacity.cur+1e-9 < cost {
		return reject(ReasonCapacity)
	}
	s.capacity.cur = math.Max(0, s.capacity.cur-cost)
	s.applyPatch(t.Kind)
	s.closeTicket(idx)
	s.logf(CategoryOther, "Fixed ticket: %s", t.Title)
	s.emit(TicketFixedEvent{AtSec: s.timeSec, Kind: t.Kind, Effort: t.Effort})
	s.verify()
	return accepted()
}

func (s *Simulator) applyPatch(kind TicketKind) {
	p := &s.patch
	bump := func(v *float64, d float64) { *v = clamp(*v+d, 0, 1) }
	switch kind {
	case TicketCrashSpike:
		bump(&p.crash, 0.35)
	case TicketANRRisk:
		bump(&p.anr, 0.35)
	case TicketJank:
		bump(&p.jank, 0.35)
	case TicketHeap:
		bump(&p.heap, 0.35)
	case TicketBattery:
		bump(&p.battery, 0.30)
	case TicketA11yRegression:
		bump(&p.a11y, 0.50)
	case TicketPrivacyComplaints:
		bump(&p.privacy, 0.50)
	case TicketSecurityExposure:
		bump(&p.security, 0.55)
		for _, a := range s.advisories {
			a.Mitigated = true
		}
		bump(&p.zeroDay, 0.60)
	case TicketCompatPlatform:
		bump(&p.compat, 0.55)
	case TicketComplianceEU:
		bump(&p.privacy, 0.35)
		bump(&p.security, 0.20)
	case TicketComplianceUS:
		bump(&p.security, 0.35)
	case TicketComplianceUK:
		bump(&p.privacy, 0.30)
		bump(&p.security, 0.25)
	case TicketStoreRejection:
		bump(&p.compat, 0.25)
		bump(&p.privacy, 0.25)
	case TicketTestCoverage:
		s.coverage.pct = clamp(s.coverage.pct+9, 0, 100)
		bump(&s.coverage.quality, 0.18)
	case TicketArchitectureDebt:
	}
}

// DeferTicket toggles a ticket's deferred flag.
func (s *Simulator) DeferTicket(id int) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	t, _ := s.ticket(id)
	if t == nil {
		return reject(ReasonNoTicket)
	}
	t.Deferred = !t.Deferred
	return accepted()
}

// Tickets returns a copy of the open backlog in filing order.
func (s *Simulator) Tickets() []Ticket {
	out := make([]Ticket, len(s.tickets))
	for i, t := range s.tickets {
		out[i] = *t
	}
	return out
}

// mostSevere returns up to n open tickets ordered by severity, impact, then age.
func (s *Simulator) mostSevere(n int) []Ticket {
	all := s.Tickets()
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Impact != b.Impact {
			return a.Impact > b.Impact
		}
		return a.AgeSec > b.AgeSec
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
