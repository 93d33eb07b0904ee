package sim

import "fmt"

const (
	coverageHistory    = 90
	regressionDrop     = 10.0
	regressionInterval = 30
)

type coverageState struct {
	pct         float64
	threshold   float64
	riskMult    float64
	quality     float64
	history     []float64
	pendingAdds int

	addTax    float64
	baseDecay float64
	severityW float64
}

func newCoverage(p Preset) coverageState {
	c := coverageState{pct: 78, threshold: 70, riskMult: 1}
	switch p {
	case PresetJuniorMid:
		c.addTax, c.baseDecay, c.severityW = 0.35, 0.010, 0.55
	case PresetSenior:
		c.addTax, c.baseDecay, c.severityW = 0.55, 0.016, 1.0
	default:
		c.addTax, c.baseDecay, c.severityW = 0.70, 0.022, 1.20
		c.threshold = 75
	}
	return c
}

// Coverage is the test-coverage gate as seen by hosts.
type Coverage struct {
	Pct            float64 `json:"pct"`
	Threshold      float64 `json:"threshold"`
	RiskMultiplier float64 `json:"risk_multiplier"`
	Quality        float64 `json:"quality_process"`
}

// Coverage returns the current coverage gate state.
func (s *Simulator) Coverage() Coverage {
	c := s.coverage
	return Coverage{Pct: c.pct, Threshold: c.threshold, RiskMultiplier: c.riskMult, Quality: c.quality}
}

func (s *Simulator) tickCoverage() {
	c := &s.coverage
	if len(c.history) == 0 {
		c.history = append(c.history, c.pct)
	}
	// Compare against the history before this tick's mutations so a burst of
	// placements shows up as a drop.
	maxBefore := c.history[0]
	for _, v := range c.history[1:] {
		if v > maxBefore {
			maxBefore = v
		}
	}

	if c.pendingAdds > 0 {
		c.pct = clamp(c.pct-float64(c.pendingAdds)*c.addTax, 0, 100)
		c.pendingAdds = 0
	}

	n := float64(len(s.components))
	churn := s.platform.Pressure*0.030 + s.regPressure/100*0.010
	complexity := clamp(n/30, 0, 1) * 0.020
	decay := (c.baseDecay + churn + complexity) * (1 - c.quality*0.55)
	c.pct = clamp(c.pct-decay, 0, 100)

	shortfall := clamp((c.threshold-c.pct)/c.threshold, 0, 1)
	c.riskMult = 1 + shortfall*c.severityW*0.40

	if c.pct < c.threshold {
		s.openTicket(TicketTestCoverage, fmt.Sprintf("Test coverage below %.0f%%", c.threshold), CategoryReliability, 2, 68, 4)
	}

	if maxBefore-c.pct >= regressionDrop && s.timeSec%regressionInterval == 0 {
		s.logf(CategoryOther, "Escaped regression due to low coverage")
		s.openTicket(TicketCrashSpike, "Regression crash spike", CategoryReliability, 3, 85, 5)
	}

	c.history = append(c.history, c.pct)
	if len(c.history) > coverageHistory {
		c.history = c.history[len(c.history)-coverageHistory:]
	}
}
