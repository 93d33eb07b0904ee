package sim

import (
	"strings"

	"archops-sim/internal/catalog"
)

const emptyEventLog = "No incidents… yet."

// SelectedView describes the selected component.
type SelectedView struct {
	ID          int          `json:"id"`
	Kind        catalog.Kind `json:"kind"`
	Tier        int          `json:"tier"`
	UpgradeCost float64      `json:"upgrade_cost,omitempty"`
	RepairCost  float64      `json:"repair_cost"`
	Description string       `json:"description"`
}

// Snapshot is the full host-facing view of a running world.
type Snapshot struct {
	RunID       string        `json:"run_id"`
	Seed        uint32        `json:"seed"`
	Preset      Preset        `json:"preset"`
	TimeSec     int           `json:"time_sec"`
	ShiftSec    int           `json:"shift_sec"`
	Budget      float64       `json:"budget"`
	Rating      float64       `json:"rating"`
	Score       float64       `json:"score"`
	Debt        float64       `json:"architecture_debt"`
	Traffic     float64       `json:"traffic"`
	Tech        Tech          `json:"tech"`
	Perception  Perception    `json:"perception"`
	Votes       Votes         `json:"votes"`
	Reviews     []string      `json:"recent_reviews"`
	Capacity    CapacityView  `json:"capacity"`
	Coverage    Coverage      `json:"coverage"`
	Platform    Platform      `json:"platform"`
	RegPressure float64       `json:"reg_pressure"`
	Components  int           `json:"components"`
	Links       int           `json:"links"`
	OpenTickets int           `json:"open_tickets"`
	Selected    *SelectedView `json:"selected,omitempty"`
	EventsText  string        `json:"events_text"`
	Ended       bool          `json:"ended"`
	EndReason   EndReason     `json:"end_reason,omitempty"`
}

// Snapshot returns the current state. It does not mutate the world.
func (s *Simulator) Snapshot() Snapshot {
	snap := Snapshot{
		RunID:       s.runID,
		Seed:        s.gen.Seed(),
		Preset:      s.preset,
		TimeSec:     s.timeSec,
		ShiftSec:    s.ShiftDurationSec(),
		Budget:      s.budget,
		Rating:      s.rating,
		Score:       s.score,
		Debt:        s.debt,
		Traffic:     s.traffic,
		Tech:        s.tech,
		Perception:  s.perception,
		Votes:       s.votes,
		Reviews:     append([]string(nil), s.reviews...),
		Capacity:    s.Capacity(),
		Coverage:    s.Coverage(),
		Platform:    s.platform,
		RegPressure: s.regPressure,
		Components:  len(s.components),
		Links:       len(s.links),
		OpenTickets: len(s.tickets),
		EventsText:  emptyEventLog,
		Ended:       s.ended,
		EndReason:   s.endReason,
	}
	if len(s.eventLines) > 0 {
		snap.EventsText = strings.Join(s.eventLines, "\n")
	}
	if c := s.component(s.selected); c != nil {
		v := &SelectedView{
			ID:          c.ID,
			Kind:        c.Kind,
			Tier:        c.Tier,
			RepairCost:  s.repairCost(c),
			Description: s.describe(c),
		}
		if c.Tier < catalog.MaxTier {
			v.UpgradeCost = s.upgradeCost(c)
		}
		snap.Selected = v
	}
	return snap
}
