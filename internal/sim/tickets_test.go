package sim

import "testing"

func TestTicketGenerationIsIdempotentPerKind(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.perception.Security = 50
	s.tickTickets()
	s.tickTickets()
	if n := countTickets(s, TicketSecurityExposure); n != 1 {
		t.Fatalf("security tickets = %d, want 1", n)
	}

	id := s.Tickets()[0].ID
	if r := s.DeferTicket(id); !r.OK {
		t.Fatalf("defer: %s", r.Reason)
	}
	s.tickTickets()
	if n := countTickets(s, TicketSecurityExposure); n != 2 {
		t.Fatalf("security tickets after defer = %d, want 2", n)
	}
}

func TestCoverageBelowThresholdOpensOneTicket(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.coverage.pct = 50
	s.Tick()
	if n := countTickets(s, TicketTestCoverage); n != 1 {
		t.Fatalf("coverage tickets = %d, want 1", n)
	}
	if s.Coverage().RiskMultiplier <= 1 {
		t.Errorf("risk multiplier = %v", s.Coverage().RiskMultiplier)
	}
	s.Tick()
	if n := countTickets(s, TicketTestCoverage); n != 1 {
		t.Fatalf("coverage tickets after second tick = %d, want 1", n)
	}
}

func TestSharpCoverageDropEscapesOnCadence(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.coverage.history = []float64{78}
	s.coverage.pct = 66

	s.timeSec = 29
	s.tickCoverage()
	if n := countTickets(s, TicketCrashSpike); n != 0 {
		t.Fatalf("crash spike off cadence: %d", n)
	}
	s.timeSec = 30
	s.tickCoverage()
	if n := countTickets(s, TicketCrashSpike); n != 1 {
		t.Fatalf("crash spikes = %d, want 1", n)
	}
	tk := s.activeTicket(TicketCrashSpike)
	if tk.Severity != 3 || tk.Category != CategoryReliability {
		t.Fatalf("ticket = %+v", tk)
	}
}

func TestSmallCoverageDropDoesNotEscape(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.coverage.history = []float64{78}
	s.coverage.pct = 70
	s.timeSec = 60
	s.tickCoverage()
	if n := countTickets(s, TicketCrashSpike); n != 0 {
		t.Fatalf("crash spikes = %d after an 8 point drop", n)
	}
}

func TestCoverageTaxesPlacements(t *testing.T) {
	s := newTestSim(t, 1, PresetSenior)
	s.Place("CACHE", Position{})
	s.Place("CACHE", Position{})
	before := s.coverage.pct
	s.tickCoverage()
	// Two placements at 0.55 each plus a small decay.
	drop := before - s.coverage.pct
	if drop < 1.1 || drop > 1.2 {
		t.Fatalf("coverage drop = %v", drop)
	}
	if s.coverage.pendingAdds != 0 {
		t.Error("pending adds not consumed")
	}
}

func TestCoverageThresholdByPreset(t *testing.T) {
	for p, want := range map[Preset]float64{PresetJuniorMid: 70, PresetSenior: 70, PresetStaff: 75, PresetPrincipal: 75} {
		if got := newCoverage(p).threshold; got != want {
			t.Errorf("%s threshold = %v, want %v", p, got, want)
		}
	}
}

func TestFixTicketSpendsCapacity(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.advisories = append(s.advisories, &Advisory{ID: 1, Dep: "net"})
	s.perception.Security = 50
	s.tickTickets()
	tk := s.Tickets()[0]

	s.capacity.cur = 2
	if r := s.FixTicket(tk.ID); r.Reason != ReasonCapacity {
		t.Fatalf("fix with low capacity = %+v", r)
	}
	if s.capacity.cur != 2 {
		t.Fatalf("capacity changed on rejection: %v", s.capacity.cur)
	}

	s.capacity.cur = 12
	s.DrainEvents()
	if r := s.FixTicket(tk.ID); !r.OK {
		t.Fatalf("fix: %s", r.Reason)
	}
	if s.capacity.cur != 12-float64(tk.Effort) {
		t.Errorf("capacity = %v", s.capacity.cur)
	}
	if s.patch.security != 0.55 || !s.Advisories()[0].Mitigated {
		t.Errorf("patch=%v advisories=%+v", s.patch.security, s.Advisories())
	}
	if len(s.Tickets()) != 0 {
		t.Errorf("ticket not closed: %+v", s.Tickets())
	}

	var fixed *TicketFixedEvent
	for _, e := range s.DrainEvents() {
		if f, ok := e.(TicketFixedEvent); ok {
			fixed = &f
		}
	}
	if fixed == nil || fixed.Kind != TicketSecurityExposure || fixed.Effort != tk.Effort {
		t.Fatalf("fixed event = %+v", fixed)
	}
	if r := s.FixTicket(tk.ID); r.Reason != ReasonNoTicket {
		t.Errorf("fix twice = %+v", r)
	}
}

func TestPatchedKindsRegenerateWithLowerImpact(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.patch.crash = 0.7
	tk, created := s.openTicket(TicketCrashSpike, "Crash spike", CategoryReliability, 3, 80, 5)
	if !created || tk.Impact != 52 {
		t.Fatalf("ticket = %+v created=%v", tk, created)
	}
	s.patch.jank = 0.3
	tk, _ = s.openTicket(TicketJank, "Jank", CategoryPerformance, 2, 65, 4)
	if tk.Impact != 65 {
		t.Fatalf("lightly patched impact = %d", tk.Impact)
	}
}

func TestBacklogPressureGrowsWithAge(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.openTicket(TicketJank, "Jank", CategoryPerformance, 2, 60, 4)
	fresh, _ := s.backlogPressure()
	s.tickets[0].AgeSec = 480
	old, _ := s.backlogPressure()
	if old <= fresh {
		t.Fatalf("old pressure %v <= fresh %v", old, fresh)
	}
	s.tickets[0].Deferred = true
	deferred, _ := s.backlogPressure()
	if deferred >= old {
		t.Fatalf("deferred pressure %v >= %v", deferred, old)
	}
}

func TestSummaryListsMostSevereTickets(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.openTicket(TicketBattery, "Battery complaints", CategoryPerformance, 1, 45, 3)
	s.openTicket(TicketSecurityExposure, "Security exposure", CategorySecurity, 3, 90, 6)
	s.openTicket(TicketJank, "Jank regression", CategoryPerformance, 2, 65, 4)
	s.openTicket(TicketCrashSpike, "Crash spike", CategoryReliability, 3, 85, 5)
	top := s.mostSevere(3)
	if len(top) != 3 || top[0].Kind != TicketSecurityExposure || top[1].Kind != TicketCrashSpike || top[2].Kind != TicketJank {
		t.Fatalf("top = %+v", top)
	}
}
