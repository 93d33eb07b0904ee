package session

import (
	"testing"

	"archops-sim/internal/sim"
)

func TestMilestonesFixTiers(t *testing.T) {
	m := NewMilestones()
	fixed := []sim.Event{sim.TicketFixedEvent{AtSec: 1}}
	got := m.Observe(fixed, sim.TickSummary{AtSec: 1, Backlog: 5})
	if len(got) != 1 || got[0].Budget != 80 {
		t.Fatalf("first fix rewards = %+v", got)
	}
	for i := 0; i < 4; i++ {
		got = m.Observe(fixed, sim.TickSummary{AtSec: 2 + i, Backlog: 5})
	}
	if len(got) != 1 || got[0].Budget != 120 {
		t.Fatalf("fifth fix rewards = %+v", got)
	}
	if m.Reached("fix") != 2 {
		t.Fatalf("fix tiers = %d", m.Reached("fix"))
	}
}

func TestMilestonesCalmStreakBreaks(t *testing.T) {
	m := NewMilestones()
	for sec := 1; sec <= 29; sec++ {
		m.Observe(nil, sim.TickSummary{AtSec: sec, Backlog: 1})
	}
	m.Observe(nil, sim.TickSummary{AtSec: 30, Backlog: 3})
	if got := m.Observe(nil, sim.TickSummary{AtSec: 31, Backlog: 0}); len(got) != 0 {
		t.Fatalf("broken streak rewarded: %+v", got)
	}
	for sec := 32; sec <= 60; sec++ {
		m.Observe(nil, sim.TickSummary{AtSec: sec, Backlog: 0})
	}
	if m.Reached("calm") != 1 {
		t.Fatalf("calm tiers = %d", m.Reached("calm"))
	}
}

func TestMilestonesSurviveAndReset(t *testing.T) {
	m := NewMilestones()
	got := m.Observe(nil, sim.TickSummary{AtSec: 300, Backlog: 9})
	if len(got) != 2 || got[0].Budget != 120 || got[1].Budget != 160 {
		t.Fatalf("survive rewards = %+v", got)
	}
	m.Observe([]sim.Event{sim.RunResetEvent{}}, sim.TickSummary{AtSec: 0, Backlog: 9})
	if m.Reached("survive") != 0 {
		t.Fatalf("reset kept survive progress: %d", m.Reached("survive"))
	}
}
