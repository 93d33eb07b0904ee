package sim

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// EndReason records why a run terminated.
type EndReason string

// End reasons.
const (
	EndBudgetDepleted  EndReason = "BUDGET_DEPLETED"
	EndRatingCollapsed EndReason = "RATING_COLLAPSED"
	EndShiftComplete   EndReason = "SHIFT_COMPLETE"
)

const maxTickScore = 12.0

var shiftDuration = map[Preset]int{
	PresetJuniorMid: 480,
	PresetSenior:    600,
	PresetStaff:     720,
	PresetPrincipal: 900,
}

// ShiftDurationSec returns the run length of the current preset.
func (s *Simulator) ShiftDurationSec() int { return shiftDuration[s.preset] }

// RunResult is the immutable record of a finished run.
type RunResult struct {
	RunID        string     `json:"run_id"`
	Seed         uint32     `json:"seed"`
	Preset       Preset     `json:"preset"`
	EndReason    EndReason  `json:"end_reason"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at"`
	DurationSec  int        `json:"duration_sec"`
	RawScore     float64    `json:"raw_score"`
	Multiplier   float64    `json:"multiplier"`
	FinalScore   int        `json:"final_score"`
	Rating       float64    `json:"rating"`
	Budget       float64    `json:"budget"`
	Tech         Tech       `json:"tech"`
	Perception   Perception `json:"perception"`
	Debt         float64    `json:"architecture_debt"`
	OpenTickets  int        `json:"open_tickets"`
	Incidents    int        `json:"incidents"`
	SummaryLines []string   `json:"summary"`
}

// Summary joins the result's summary lines.
func (r RunResult) Summary() string {
	return strings.Join(r.SummaryLines, "\n")
}

// LastRun returns the result of the current run once it has ended.
func (s *Simulator) LastRun() (RunResult, bool) {
	if s.lastRun == nil {
		return RunResult{}, false
	}
	r := *s.lastRun
	r.SummaryLines = append([]string(nil), r.SummaryLines...)
	return r, true
}

func (s *Simulator) stability() float64 {
	t := s.tech
	return (1 - t.FailureRate) * (1 - t.ANRRisk) * (1 - clamp(t.JankPct/300, 0, 1)) * (1 - clamp((t.P95Ms-120)/600, 0, 1))
}

func (s *Simulator) quality() float64 {
	p := s.perception
	return p.A11y / 100 * p.Privacy / 100 * p.Security / 100
}

// tickScore is this second's score contribution in [0,12].
func (s *Simulator) tickScore() float64 {
	return clamp(maxTickScore*s.stability()*s.quality()*s.compliance()*(1-s.debt/200), 0, maxTickScore)
}

func (s *Simulator) opsCost() float64 {
	c := 0.6 + float64(s.timeSec)/180*0.35
	if s.tech.FailureRate > 0.2 {
		c++
	}
	return c
}

// settle accrues score, charges running costs and ends the run when a terminal condition holds.
func (s *Simulator) settle() {
	s.score += s.tickScore()
	s.budget = math.Max(0, s.budget-s.opsCost())

	switch {
	case s.budget <= 0:
		s.end(EndBudgetDepleted)
	case s.rating <= MinRating:
		s.end(EndRatingCollapsed)
	case s.timeSec >= s.ShiftDurationSec():
		s.end(EndShiftComplete)
	}
}

func (s *Simulator) multiplier() float64 {
	switch s.preset {
	case PresetSenior:
		return 1.25
	case PresetStaff:
		return 1.5
	case PresetPrincipal:
		return 2.0 * clamp(1-s.debt/150, 0.4, 1)
	}
	return 1.0
}

func (s *Simulator) end(reason EndReason) {
	if s.ended {
		return
	}
	s.ended = true
	s.endReason = reason

	mult := s.multiplier()
	final := int(math.Round(s.score * mult))
	r := &RunResult{
		RunID:       s.runID,
		Seed:        s.gen.Seed(),
		Preset:      s.preset,
		EndReason:   reason,
		StartedAt:   s.startedAt,
		EndedAt:     s.now(),
		DurationSec: s.timeSec,
		RawScore:    s.score,
		Multiplier:  mult,
		FinalScore:  final,
		Rating:      s.rating,
		Budget:      s.budget,
		Tech:        s.tech,
		Perception:  s.perception,
		Debt:        s.debt,
		OpenTickets: len(s.tickets),
		Incidents:   s.incidents,
	}
	r.SummaryLines = s.summary(r)
	s.lastRun = r

	s.logf(CategoryOther, "Run ended: %s", reason)
	s.emit(RunEndEvent{AtSec: s.timeSec, Reason: reason, Score: float64(final)})
}

var endHeadlines = map[EndReason]string{
	EndBudgetDepleted:  "Out of budget.",
	EndRatingCollapsed: "Rating collapsed.",
	EndShiftComplete:   "Shift complete.",
}

func (s *Simulator) summary(r *RunResult) []string {
	lines := []string{
		fmt.Sprintf("%s (%s, %ds)", endHeadlines[r.EndReason], r.Preset, r.DurationSec),
		fmt.Sprintf("Score %d (raw %.0f x %.2f)", r.FinalScore, r.RawScore, r.Multiplier),
		fmt.Sprintf("Rating %.2f  Budget %.0f  Debt %.0f", r.Rating, r.Budget, r.Debt),
		fmt.Sprintf("Failures %.1f%%  ANR %.1f%%  p95 %.0fms  Jank %.0f%%", r.Tech.FailureRate*100, r.Tech.ANRRisk*100, r.Tech.P95Ms, r.Tech.JankPct),
		fmt.Sprintf("A11y %.0f  Privacy %.0f  Security %.0f  Support %.0f", r.Perception.A11y, r.Perception.Privacy, r.Perception.Security, r.Perception.SupportLoad),
	}
	top := s.mostSevere(3)
	if len(top) == 0 {
		return append(lines, "Backlog clear.")
	}
	lines = append(lines, fmt.Sprintf("Open tickets: %d", r.OpenTickets))
	for _, t := range top {
		lines = append(lines, fmt.Sprintf("  [S%d] %s (impact %d, age %ds)", t.Severity, t.Title, t.Impact, t.AgeSec))
	}
	return lines
}
