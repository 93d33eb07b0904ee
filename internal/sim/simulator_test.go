package sim

import (
	"math"
	"reflect"
	"testing"
	"time"

	"archops-sim/internal/catalog"
	"archops-sim/internal/rng"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSim(t *testing.T, seed uint32, preset Preset) *Simulator {
	t.Helper()
	s := New(
		WithClock(func() time.Time { return testEpoch }),
		WithRunIDs(func() string { return "run-test" }),
		WithInvariantChecks(),
	)
	s.Reset(DefaultBounds, WithSeed(seed), WithPreset(preset))
	s.DrainEvents()
	return s
}

func countTickets(s *Simulator, kind TicketKind) int {
	n := 0
	for _, t := range s.Tickets() {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

func TestResetLaysOutStarterGraph(t *testing.T) {
	s := New(WithClock(func() time.Time { return testEpoch }), WithRunIDs(func() string { return "r1" }))
	s.Reset(Bounds{Width: 1000, Height: 600}, WithSeed(9), WithPreset(PresetSenior))

	if got := len(s.Components()); got != 10 {
		t.Fatalf("components = %d, want 10", got)
	}
	if got := len(s.Links()); got != 7 {
		t.Fatalf("links = %d, want 7", got)
	}
	if len(s.ArchViolations()) != 0 {
		t.Errorf("starter graph has violations: %+v", s.ArchViolations())
	}
	if s.Budget() != StartBudget || s.Rating() != StartRating || s.TimeSec() != 0 {
		t.Errorf("unexpected start: budget=%v rating=%v t=%d", s.Budget(), s.Rating(), s.TimeSec())
	}
	if s.Coverage().Pct != 78 {
		t.Errorf("coverage = %v, want 78", s.Coverage().Pct)
	}
	snap := s.Snapshot()
	if snap.Selected == nil || snap.Selected.Kind != catalog.Repo {
		t.Errorf("selected = %+v, want REPO", snap.Selected)
	}
	if snap.EventsText != emptyEventLog {
		t.Errorf("events text = %q", snap.EventsText)
	}

	events := s.DrainEvents()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	reset, ok := events[len(events)-1].(RunResetEvent)
	if !ok || reset.Seed != 9 || reset.Preset != PresetSenior {
		t.Fatalf("reset event = %#v", events[0])
	}
}

func TestSameSeedSameRun(t *testing.T) {
	play := func() (Snapshot, []Ticket, []Link) {
		s := newTestSim(t, 42, PresetStaff)
		for i := 0; i < 240 && !s.Ended(); i++ {
			switch i {
			case 10:
				s.Place(catalog.Cache, Position{X: 10, Y: 10})
			case 20:
				s.Link(1, 4)
			case 30:
				s.Upgrade(4)
			}
			s.Tick()
		}
		if s.TimeSec() < 60 {
			t.Fatalf("run ended at t=%d (%s), too short to compare", s.TimeSec(), s.EndReason())
		}
		return s.Snapshot(), s.Tickets(), s.Links()
	}
	snapA, ticketsA, linksA := play()
	snapB, ticketsB, linksB := play()
	if !reflect.DeepEqual(snapA, snapB) {
		t.Fatalf("snapshots differ:\n%+v\n%+v", snapA, snapB)
	}
	if !reflect.DeepEqual(ticketsA, ticketsB) || !reflect.DeepEqual(linksA, linksB) {
		t.Fatal("tickets or links differ between identical runs")
	}
}

func TestIdleRunAdvancesClockAndSpendsBudget(t *testing.T) {
	s := newTestSim(t, 12345, PresetJuniorMid)
	for i := 0; i < 60; i++ {
		s.Tick()
	}
	if s.Ended() {
		t.Fatalf("idle run ended at t=%d: %s", s.TimeSec(), s.EndReason())
	}
	if s.TimeSec() != 60 {
		t.Fatalf("t = %d, want 60", s.TimeSec())
	}
	if s.Budget() >= StartBudget {
		t.Fatalf("budget = %v, want below %v", s.Budget(), StartBudget)
	}
}

func TestStarterLayoutSurvivesIdleShiftStart(t *testing.T) {
	presets := []Preset{PresetJuniorMid, PresetSenior, PresetStaff, PresetPrincipal}
	for _, p := range presets {
		for seed := uint32(1); seed <= 8; seed++ {
			s := newTestSim(t, seed, p)
			for i := 0; i < 60 && !s.Ended(); i++ {
				s.Tick()
			}
			if s.Ended() {
				t.Fatalf("%s seed %d: idle run ended at t=%d: %s", p, seed, s.TimeSec(), s.EndReason())
			}
			if s.Rating() < 2.5 {
				t.Errorf("%s seed %d: idle rating %v", p, seed, s.Rating())
			}
			for _, c := range s.Components() {
				if catalog.IsMainPath(c.Kind) && c.Down {
					t.Errorf("%s seed %d: %s down after idle start", p, seed, c.Kind)
				}
			}
		}
	}
}

func TestBoundsHoldUnderRandomCommands(t *testing.T) {
	presets := []Preset{PresetJuniorMid, PresetSenior, PresetStaff, PresetPrincipal}
	for i, p := range presets {
		s := newTestSim(t, uint32(100+i), p)
		s.SetShopUnlocks(true, true)
		cmd := rng.New(uint32(7 + i))
		for !s.Ended() && s.TimeSec() < 400 {
			switch cmd.Int(0, 9) {
			case 0:
				s.Place(catalog.Kinds[cmd.Int(0, len(catalog.Kinds)-1)], Position{})
			case 1:
				s.Link(cmd.Int(1, 14), cmd.Int(1, 14))
			case 2:
				s.Repair(cmd.Int(1, 14))
			case 3:
				if ts := s.Tickets(); len(ts) > 0 {
					s.FixTicket(ts[cmd.Int(0, len(ts)-1)].ID)
				}
			case 4:
				s.Buy(ShopItems[cmd.Int(0, len(ShopItems)-1)])
			case 5:
				if id := s.FirstArchitectureDebtTicketID(); id != 0 {
					s.ApplyRefactor(id, refactorOrder[cmd.Int(0, 3)], "")
				}
			}
			s.Tick()

			c := s.Capacity()
			if c.Cur < 0 || c.Cur > c.Max {
				t.Fatalf("%s t=%d: capacity %v/%v", p, s.TimeSec(), c.Cur, c.Max)
			}
			if s.Rating() < MinRating || s.Rating() > MaxRating {
				t.Fatalf("%s t=%d: rating %v", p, s.TimeSec(), s.Rating())
			}
			if d := s.ArchitectureDebt(); d < 0 || d > 100 {
				t.Fatalf("%s t=%d: debt %v", p, s.TimeSec(), d)
			}
			if cov := s.Coverage().Pct; cov < 0 || cov > 100 {
				t.Fatalf("%s t=%d: coverage %v", p, s.TimeSec(), cov)
			}
			for _, comp := range s.Components() {
				if comp.Health < 0 || comp.Health > 100 {
					t.Fatalf("%s t=%d: component %d health %v", p, s.TimeSec(), comp.ID, comp.Health)
				}
			}
		}
	}
}

func TestRatingCollapseEndsRunOnce(t *testing.T) {
	s := newTestSim(t, 5, PresetJuniorMid)
	for i := 0; i < 50 && s.Rating() > MinRating; i++ {
		if r := s.TriggerIncident(IncidentMITM); !r.OK {
			t.Fatalf("trigger: %s", r.Reason)
		}
	}
	if s.Rating() != MinRating {
		t.Fatalf("rating = %v, want floor", s.Rating())
	}
	s.Tick()
	if !s.Ended() || s.EndReason() != EndRatingCollapsed {
		t.Fatalf("ended=%v reason=%q", s.Ended(), s.EndReason())
	}

	at := s.TimeSec()
	s.Tick()
	s.Tick()
	if s.TimeSec() != at {
		t.Errorf("ticks after end advanced clock to %d", s.TimeSec())
	}

	ends := 0
	for _, e := range s.DrainEvents() {
		if _, ok := e.(RunEndEvent); ok {
			ends++
		}
	}
	if ends != 1 {
		t.Fatalf("run end events = %d, want 1", ends)
	}
	res, ok := s.LastRun()
	if !ok || res.EndReason != EndRatingCollapsed || res.RunID != "run-test" {
		t.Fatalf("last run = %+v, %v", res, ok)
	}
	if len(res.SummaryLines) < 5 {
		t.Errorf("summary too short: %q", res.Summary())
	}
	if _, r := s.Place(catalog.UI, Position{}); r.OK || r.Reason != ReasonRunEnded {
		t.Errorf("place after end = %+v", r)
	}
}

func TestShiftCompleteAppliesPresetMultiplier(t *testing.T) {
	s := newTestSim(t, 77, PresetStaff)
	s.timeSec = s.ShiftDurationSec() - 1
	s.score = 100
	s.Tick()
	if s.EndReason() != EndShiftComplete {
		t.Fatalf("end reason = %q", s.EndReason())
	}
	res, _ := s.LastRun()
	if res.Multiplier != 1.5 {
		t.Errorf("multiplier = %v, want 1.5", res.Multiplier)
	}
	if want := int(res.RawScore*1.5 + 0.5); res.FinalScore != want {
		t.Errorf("final = %d, want %d", res.FinalScore, want)
	}
}

func TestTickScoreBoundedAndScaledByDebt(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	clean := s.tickScore()
	if want := maxTickScore * s.compliance(); math.Abs(clean-want) > 1e-9 {
		t.Fatalf("clean score = %v, want %v", clean, want)
	}
	for _, c := range []struct{ debt, factor float64 }{{50, 0.75}, {100, 0.5}} {
		s.debt = c.debt
		if got := s.tickScore(); math.Abs(got-clean*c.factor) > 1e-9 {
			t.Errorf("debt %v: score %v, want %v", c.debt, got, clean*c.factor)
		}
	}

	s.debt = 0
	for i := range s.regions {
		s.regions[i].Compliance = 100
	}
	if got := s.tickScore(); math.Abs(got-maxTickScore) > 1e-9 || got > maxTickScore {
		t.Fatalf("perfect score = %v, want %v", got, maxTickScore)
	}
	s.debt = 250
	if got := s.tickScore(); got != 0 {
		t.Fatalf("score past debt limit = %v, want 0", got)
	}
	s.debt = 0
	s.tech.FailureRate = 1
	if got := s.tickScore(); got != 0 {
		t.Fatalf("score with every request failing = %v", got)
	}
}

func TestPrincipalMultiplierPenalizesDebt(t *testing.T) {
	s := newTestSim(t, 1, PresetPrincipal)
	if got := s.multiplier(); got != 2.0 {
		t.Fatalf("clean multiplier = %v", got)
	}
	s.debt = 75
	if got := s.multiplier(); got != 1.0 {
		t.Fatalf("multiplier at debt 75 = %v, want 1.0", got)
	}
	s.debt = 100
	if got := s.multiplier(); got != 2.0*0.4 {
		t.Fatalf("multiplier floor = %v", got)
	}
}

func TestBudgetDepletionWinsOverOtherEndings(t *testing.T) {
	s := newTestSim(t, 3, PresetJuniorMid)
	s.budget = 0.1
	s.rating = MinRating
	s.Tick()
	if s.EndReason() != EndBudgetDepleted {
		t.Fatalf("end reason = %q, want %q", s.EndReason(), EndBudgetDepleted)
	}
}

func TestSnapshotHasNoSideEffects(t *testing.T) {
	s := newTestSim(t, 11, PresetSenior)
	for i := 0; i < 30; i++ {
		s.Tick()
	}
	a := s.Snapshot()
	b := s.Snapshot()
	if !reflect.DeepEqual(a, b) {
		t.Fatal("consecutive snapshots differ")
	}
}

func TestTickEventListsPlacedKinds(t *testing.T) {
	s := newTestSim(t, 2, PresetJuniorMid)
	ev := s.TickEvent()
	if len(ev.Kinds) != 10 {
		t.Fatalf("kinds = %v", ev.Kinds)
	}
	s.ApplyReward(Reward{Budget: 50, Score: 7})
	if s.Budget() != StartBudget+50 || s.Score() != 7 {
		t.Fatalf("reward not applied: budget=%v score=%v", s.Budget(), s.Score())
	}
}
