package sim

import (
	"fmt"
	"math"
	"strings"

	"archops-sim/internal/catalog"
)

// Debt charged per violation class.
const (
	UpwardPenalty = 10.0
	SkipPenalty   = 6.0

	// strictSpan is the layer distance the strictest preset refuses outright.
	strictSpan = 3
)

// Violation is a link that breaks the layering rule.
type Violation struct {
	Key      string       `json:"key"`
	From     int          `json:"from"`
	To       int          `json:"to"`
	FromKind catalog.Kind `json:"from_kind"`
	ToKind   catalog.Kind `json:"to_kind"`
	Upward   bool         `json:"upward"`
	Skip     bool         `json:"skip"`
	Span     int          `json:"span"`
	Reason   string       `json:"reason"`
	Penalty  float64      `json:"penalty"`
}

// classify lints a link between two archetypes. ok is false when the link is
// ordinary or touches a sidecar.
func classify(from, to catalog.Kind) (v Violation, ok bool) {
	fl, fok := catalog.LayerOf(from)
	tl, tok := catalog.LayerOf(to)
	if !fok || !tok {
		return Violation{}, false
	}
	v = Violation{FromKind: from, ToKind: to}
	d := int(tl) - int(fl)
	v.Span = d
	if d < 0 {
		v.Span = -d
		v.Upward = true
		v.Penalty += UpwardPenalty
	}
	// A skip is any jump of more than one layer, so a long upward link is both.
	if v.Span > 1 {
		v.Skip = true
		v.Penalty += SkipPenalty
	}
	if !v.Upward && !v.Skip {
		return Violation{}, false
	}
	switch {
	case v.Upward && v.Skip:
		v.Reason = fmt.Sprintf("upward dependency %s (%s) -> %s (%s) across %d layers", from, fl, to, tl, v.Span)
	case v.Upward:
		v.Reason = fmt.Sprintf("upward dependency %s (%s) -> %s (%s)", from, fl, to, tl)
	default:
		v.Reason = fmt.Sprintf("%s skips %d layer(s) to reach %s", from, v.Span-1, to)
	}
	return v, true
}

func (v Violation) blocked(p Preset) bool {
	return p == PresetPrincipal && (v.Upward || v.Span >= strictSpan)
}

// Link creates a dependency from one component to another after linting it.
// Violations are recorded as debt even when the preset refuses the link.
func (s *Simulator) Link(from, to int) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	if from == to {
		return reject(ReasonSelfLink)
	}
	src, dst := s.component(from), s.component(to)
	if src == nil || dst == nil {
		return reject(ReasonNoComponent)
	}
	if s.hasLink(from, to) {
		return reject(ReasonDuplicateLink)
	}

	v, bad := classify(src.Kind, dst.Kind)
	if bad {
		v.From, v.To = from, to
		v.Key = Link{From: from, To: to}.Key()
		s.recordDebt(v)
		if v.blocked(s.preset) {
			s.logf(CategoryOther, "Link %s rejected: %s", v.Key, v.Reason)
			s.verify()
			return reject(ReasonLintRejected)
		}
		s.logf(CategoryOther, "Link %s taxed: %s (+%.0f debt)", v.Key, v.Reason, v.Penalty)
	}
	s.links = append(s.links, Link{From: from, To: to})
	s.verify()
	return accepted()
}

func (s *Simulator) recordDebt(v Violation) {
	s.debt = clamp(s.debt+v.Penalty, 0, 100)
	sev := 1
	switch {
	case s.debt >= 60:
		sev = 3
	case s.debt >= 30:
		sev = 2
	}
	impact := clampInt(int(math.Round(40+s.debt/2)), 0, 100)
	detail := fmt.Sprintf("%s: %s", v.Key, v.Reason)
	if t := s.activeTicket(TicketArchitectureDebt); t != nil {
		t.Severity, t.Impact, t.Detail = sev, impact, detail
		return
	}
	t, _ := s.openTicket(TicketArchitectureDebt, "Architecture debt", CategoryArchitecture, sev, impact, 6)
	t.Detail = detail
}

// ArchViolations returns every current link that breaks the layering rule, in link order.
func (s *Simulator) ArchViolations() []Violation {
	var out []Violation
	for _, l := range s.links {
		src, dst := s.component(l.From), s.component(l.To)
		if src == nil || dst == nil {
			continue
		}
		if v, bad := classify(src.Kind, dst.Kind); bad {
			v.From, v.To, v.Key = l.From, l.To, l.Key()
			out = append(out, v)
		}
	}
	return out
}

// RefactorAction names a debt remediation.
type RefactorAction string

// Refactor actions.
const (
	RefactorIntroduceBoundary RefactorAction = "INTRODUCE_BOUNDARY"
	RefactorMoveMapping       RefactorAction = "MOVE_MAPPING"
	RefactorSplitAggregator   RefactorAction = "SPLIT_AGGREGATOR"
	RefactorExtractModule     RefactorAction = "EXTRACT_MODULE"
)

// ParseRefactorAction resolves an action name case-insensitively.
func ParseRefactorAction(s string) (RefactorAction, bool) {
	a := RefactorAction(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := refactorCatalog[a]
	return a, ok
}

type refactorDef struct {
	title string
	cost  float64
	debt  float64
	bonus float64
}

var refactorOrder = []RefactorAction{RefactorIntroduceBoundary, RefactorMoveMapping, RefactorSplitAggregator, RefactorExtractModule}

var refactorCatalog = map[RefactorAction]refactorDef{
	RefactorIntroduceBoundary: {"Introduce a boundary (dependency inversion)", 180, 18, 40},
	RefactorMoveMapping:       {"Move mapping into the data layer", 120, 10, 20},
	RefactorSplitAggregator:   {"Split an overloaded aggregation point", 220, 14, 30},
	RefactorExtractModule:     {"Extract a module boundary", 260, 22, 45},
}

// RefactorOption is one priced entry of a debt ticket's remediation menu.
type RefactorOption struct {
	Action     RefactorAction `json:"action"`
	Title      string         `json:"title"`
	Cost       float64        `json:"cost"`
	DebtDelta  float64        `json:"debt_delta"`
	ScoreBonus float64        `json:"score_bonus"`
	Affordable bool           `json:"affordable"`
}

func (s *Simulator) refactorBonus(base float64) float64 {
	if s.preset != PresetPrincipal {
		return base
	}
	return math.Round(base * (1 + (1 - s.debt/100)))
}

// RefactorOptions returns the remediation menu for a debt ticket. ok is false
// when id is not an open architecture debt ticket.
func (s *Simulator) RefactorOptions(id int) ([]RefactorOption, bool) {
	t, _ := s.ticket(id)
	if t == nil || t.Kind != TicketArchitectureDebt {
		return nil, false
	}
	out := make([]RefactorOption, 0, len(refactorOrder))
	for _, a := range refactorOrder {
		d := refactorCatalog[a]
		out = append(out, RefactorOption{
			Action:     a,
			Title:      d.title,
			Cost:       d.cost,
			DebtDelta:  -d.debt,
			ScoreBonus: s.refactorBonus(d.bonus),
			Affordable: s.budget >= d.cost,
		})
	}
	return out, true
}

// RoadmapStep is a suggested refactor with the observation that prompted it.
type RoadmapStep struct {
	Action    RefactorAction `json:"action"`
	Why       string         `json:"why"`
	TargetKey string         `json:"target,omitempty"`
}

// RefactorRoadmap suggests refactors in priority order from the current graph and debt.
func (s *Simulator) RefactorRoadmap() []RoadmapStep {
	vs := s.ArchViolations()
	var steps []RoadmapStep
	if v, ok := worst(vs, func(v Violation) bool { return v.Upward }); ok {
		steps = append(steps, RoadmapStep{RefactorIntroduceBoundary, "invert " + v.Reason, v.Key})
	}
	if v, ok := worst(vs, func(v Violation) bool { return v.Skip }); ok {
		steps = append(steps, RoadmapStep{RefactorMoveMapping, v.Reason, v.Key})
	}
	if c, n := s.hotspot(); c != nil {
		steps = append(steps, RoadmapStep{Action: RefactorSplitAggregator, Why: fmt.Sprintf("%s #%d has %d inbound links", c.Kind, c.ID, n)})
	}
	if s.debt >= 40 || len(vs) >= 3 {
		steps = append(steps, RoadmapStep{Action: RefactorExtractModule, Why: fmt.Sprintf("debt %.0f across %d violation(s)", s.debt, len(vs))})
	}
	return steps
}

// worst returns the highest-penalty violation matching keep; ties go to the earliest link.
func worst(vs []Violation, keep func(Violation) bool) (Violation, bool) {
	var best Violation
	found := false
	for _, v := range vs {
		if keep(v) && (!found || v.Penalty > best.Penalty) {
			best, found = v, true
		}
	}
	return best, found
}

// hotspot returns the layered component with the most inbound links, if it has at least three.
func (s *Simulator) hotspot() (*Component, int) {
	var best *Component
	bestN := 0
	for _, c := range s.components {
		if _, layered := catalog.LayerOf(c.Kind); !layered {
			continue
		}
		n := 0
		for _, l := range s.links {
			if l.To == c.ID {
				n++
			}
		}
		if n > bestN {
			best, bestN = c, n
		}
	}
	if bestN < 3 {
		return nil, 0
	}
	return best, bestN
}

// ApplyRefactor spends budget on a remediation for debt ticket id. targetKey
// optionally names the "from->to" link to remove for boundary refactors.
func (s *Simulator) ApplyRefactor(id int, action RefactorAction, targetKey string) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	t, idx := s.ticket(id)
	if t == nil || t.Kind != TicketArchitectureDebt {
		return reject(ReasonNoTicket)
	}
	d, ok := refactorCatalog[action]
	if !ok {
		return reject(ReasonUnknownAction)
	}
	if s.budget < d.cost {
		return reject(ReasonBudget)
	}

	s.budget -= d.cost
	bonus := s.refactorBonus(d.bonus)
	s.debt = clamp(s.debt-d.debt, 0, 100)
	s.score += bonus

	vs := s.ArchViolations()
	switch action {
	case RefactorIntroduceBoundary:
		removed := false
		for _, v := range vs {
			if v.Key == targetKey {
				removed = s.removeLink(Link{From: v.From, To: v.To})
				break
			}
		}
		if !removed {
			if v, ok := worst(vs, func(Violation) bool { return true }); ok {
				s.removeLink(Link{From: v.From, To: v.To})
			}
		}
	case RefactorMoveMapping:
		if v, ok := worst(vs, func(v Violation) bool { return v.Skip }); ok {
			s.removeLink(Link{From: v.From, To: v.To})
		}
	case RefactorSplitAggregator:
		s.blastAmp = math.Max(0.6, s.blastAmp-0.15)
	case RefactorExtractModule:
		for i := 0; i < 2 && i < len(vs); i++ {
			s.removeLink(Link{From: vs[i].From, To: vs[i].To})
		}
		s.debtAmp = math.Max(0.7, s.debtAmp-0.1)
	}

	s.closeTicket(idx)
	s.logf(CategoryOther, "Refactor %s applied: debt -%.0f, score +%.0f", action, d.debt, bonus)
	s.verify()
	return accepted()
}

// FirstArchitectureDebtTicketID returns the oldest open debt ticket, or 0.
func (s *Simulator) FirstArchitectureDebtTicketID() int {
	for _, t := range s.tickets {
		if t.Kind == TicketArchitectureDebt {
			return t.ID
		}
	}
	return 0
}
