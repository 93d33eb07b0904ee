package session

import "archops-sim/internal/sim"

// milestone is one tier of a per-run goal.
type milestone struct {
	target int
	reward sim.Reward
}

var (
	fixMilestones = []milestone{
		{1, sim.Reward{Budget: 80}},
		{5, sim.Reward{Budget: 120}},
		{10, sim.Reward{Budget: 160}},
	}
	surviveMilestones = []milestone{
		{180, sim.Reward{Budget: 120}},
		{300, sim.Reward{Budget: 160}},
		{420, sim.Reward{Budget: 220}},
	}
	calmMilestones = []milestone{
		{30, sim.Reward{Budget: 120}},
		{60, sim.Reward{Budget: 170}},
		{90, sim.Reward{Budget: 240}},
	}
)

const calmBacklog = 2

// Milestones grants budget for tiered per-run goals: tickets fixed, seconds
// survived and seconds spent with a small backlog. Progress restarts on
// every RUN_RESET event.
type Milestones struct {
	fixed    int
	survived int
	calm     int
	reached  map[string]int
}

// NewMilestones returns a reward source with no progress.
func NewMilestones() *Milestones {
	return &Milestones{reached: map[string]int{}}
}

// Observe implements RewardSource.
func (m *Milestones) Observe(events []sim.Event, tick sim.TickSummary) []sim.Reward {
	for _, e := range events {
		switch e.EventType() {
		case sim.EventRunReset:
			*m = Milestones{reached: map[string]int{}}
		case sim.EventTicketFixed:
			m.fixed++
		}
	}
	m.survived = tick.AtSec
	if tick.Backlog <= calmBacklog {
		m.calm++
	} else {
		m.calm = 0
	}

	var out []sim.Reward
	out = m.advance("fix", m.fixed, fixMilestones, out)
	out = m.advance("survive", m.survived, surviveMilestones, out)
	out = m.advance("calm", m.calm, calmMilestones, out)
	return out
}

// Reached reports how many tiers of goal have been granted this run.
func (m *Milestones) Reached(goal string) int { return m.reached[goal] }

func (m *Milestones) advance(goal string, progress int, tiers []milestone, out []sim.Reward) []sim.Reward {
	for m.reached[goal] < len(tiers) && progress >= tiers[m.reached[goal]].target {
		out = append(out, tiers[m.reached[goal]].reward)
		m.reached[goal]++
	}
	return out
}
