package sim

import (
	"testing"

	"archops-sim/internal/catalog"
)

// Starter IDs: UI 1, VM 2, DOMAIN 3, REPO 4, CACHE 5, DB 6, NET 7, WORK 8, OBS 9, FLAGS 10.

func TestClassify(t *testing.T) {
	cases := []struct {
		from, to     catalog.Kind
		bad          bool
		upward, skip bool
		penalty      float64
	}{
		{catalog.UI, catalog.VM, false, false, false, 0},
		{catalog.Cache, catalog.DB, false, false, false, 0},
		{catalog.Domain, catalog.VM, true, true, false, UpwardPenalty},
		{catalog.DB, catalog.Repo, true, true, false, UpwardPenalty},
		{catalog.DB, catalog.UI, true, true, true, UpwardPenalty + SkipPenalty},
		{catalog.Net, catalog.Domain, true, true, true, UpwardPenalty + SkipPenalty},
		{catalog.UI, catalog.Repo, true, false, true, SkipPenalty},
		{catalog.UI, catalog.Obs, false, false, false, 0},
		{catalog.Flags, catalog.UI, false, false, false, 0},
	}
	for _, c := range cases {
		v, bad := classify(c.from, c.to)
		if bad != c.bad || v.Upward != c.upward || v.Skip != c.skip || v.Penalty != c.penalty {
			t.Errorf("%s->%s: got bad=%v %+v", c.from, c.to, bad, v)
		}
	}
}

func TestPrincipalRejectsUpwardLinkButRecordsDebt(t *testing.T) {
	s := newTestSim(t, 1, PresetPrincipal)
	links := len(s.Links())

	r := s.Link(3, 2)
	if r.OK || r.Reason != ReasonLintRejected {
		t.Fatalf("link = %+v, want lint rejection", r)
	}
	if len(s.Links()) != links {
		t.Fatalf("links = %d, want %d", len(s.Links()), links)
	}
	if s.ArchitectureDebt() != UpwardPenalty {
		t.Fatalf("debt = %v, want %v", s.ArchitectureDebt(), UpwardPenalty)
	}
	if countTickets(s, TicketArchitectureDebt) != 1 {
		t.Fatalf("tickets = %+v", s.Tickets())
	}
}

func TestPrincipalAdjacentUpwardAttemptsChargeUpwardPenalty(t *testing.T) {
	s := newTestSim(t, 1, PresetPrincipal)
	pairs := [][2]int{{3, 2}, {4, 3}, {6, 4}, {2, 1}, {7, 4}}
	for _, p := range pairs {
		before := s.ArchitectureDebt()
		if r := s.Link(p[0], p[1]); r.OK {
			t.Fatalf("upward link %v accepted", p)
		}
		if got := s.ArchitectureDebt() - before; got != UpwardPenalty {
			t.Fatalf("link %v added %v debt, want %v", p, got, UpwardPenalty)
		}
	}
	if countTickets(s, TicketArchitectureDebt) != 1 {
		t.Fatalf("debt tickets = %d, want one refreshed ticket", countTickets(s, TicketArchitectureDebt))
	}
	tk, _ := s.ticket(s.FirstArchitectureDebtTicketID())
	if tk.Severity != 2 || tk.Detail == "" {
		t.Errorf("ticket not refreshed: %+v", tk)
	}
}

func TestLongUpwardLinkIsBothUpwardAndSkip(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	if r := s.Link(6, 1); !r.OK {
		t.Fatalf("DB->UI = %+v, want taxed acceptance", r)
	}
	if want := UpwardPenalty + SkipPenalty; s.ArchitectureDebt() != want {
		t.Fatalf("debt = %v, want %v", s.ArchitectureDebt(), want)
	}
	vs := s.ArchViolations()
	if len(vs) != 1 || !vs[0].Upward || !vs[0].Skip || vs[0].Span != 4 {
		t.Fatalf("violations = %+v", vs)
	}

	p := newTestSim(t, 1, PresetPrincipal)
	if r := p.Link(7, 3); r.Reason != ReasonLintRejected {
		t.Fatalf("NET->DOMAIN = %+v, want rejection", r)
	}
	if want := UpwardPenalty + SkipPenalty; p.ArchitectureDebt() != want {
		t.Fatalf("principal debt = %v, want %v", p.ArchitectureDebt(), want)
	}
}

func TestPrincipalRejectsWideSkip(t *testing.T) {
	s := newTestSim(t, 1, PresetPrincipal)
	if r := s.Link(1, 4); r.Reason != ReasonLintRejected {
		t.Fatalf("UI->REPO = %+v", r)
	}
	if r := s.Link(2, 4); !r.OK {
		t.Fatalf("VM->REPO = %+v, want taxed acceptance", r)
	}
	if s.ArchitectureDebt() != 2*SkipPenalty {
		t.Errorf("debt = %v", s.ArchitectureDebt())
	}
}

func TestLooserPresetTaxesViolation(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	if r := s.Link(3, 2); !r.OK {
		t.Fatalf("link rejected: %s", r.Reason)
	}
	vs := s.ArchViolations()
	if len(vs) != 1 || vs[0].Key != "3->2" || !vs[0].Upward {
		t.Fatalf("violations = %+v", vs)
	}
	if s.ArchitectureDebt() != UpwardPenalty {
		t.Errorf("debt = %v", s.ArchitectureDebt())
	}
}

func TestLinkRejectsSelfAndDuplicates(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	if r := s.Link(2, 2); r.Reason != ReasonSelfLink {
		t.Errorf("self = %+v", r)
	}
	if r := s.Link(1, 2); r.Reason != ReasonDuplicateLink {
		t.Errorf("duplicate = %+v", r)
	}
	if r := s.Link(1, 99); r.Reason != ReasonNoComponent {
		t.Errorf("missing = %+v", r)
	}
	if s.ArchitectureDebt() != 0 {
		t.Errorf("rejected links recorded debt %v", s.ArchitectureDebt())
	}
}

func TestRefactorRetiresDebtAndClosesTicket(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.Link(1, 4)
	id := s.FirstArchitectureDebtTicketID()
	if id == 0 {
		t.Fatal("no debt ticket")
	}
	opts, ok := s.RefactorOptions(id)
	if !ok || len(opts) != 4 {
		t.Fatalf("options = %+v, %v", opts, ok)
	}

	if r := s.FixTicket(id); r.Reason != ReasonRefactorOnly {
		t.Fatalf("fixing debt ticket = %+v", r)
	}
	if r := s.ApplyRefactor(id, RefactorAction("REWRITE_IN_RUST"), ""); r.Reason != ReasonUnknownAction {
		t.Fatalf("unknown action = %+v", r)
	}

	budget := s.Budget()
	if r := s.ApplyRefactor(id, RefactorMoveMapping, ""); !r.OK {
		t.Fatalf("refactor: %s", r.Reason)
	}
	if s.Budget() != budget-120 || s.ArchitectureDebt() != 0 || s.Score() != 20 {
		t.Errorf("budget=%v debt=%v score=%v", s.Budget(), s.ArchitectureDebt(), s.Score())
	}
	if len(s.ArchViolations()) != 0 {
		t.Errorf("skip link survived: %+v", s.ArchViolations())
	}
	if s.FirstArchitectureDebtTicketID() != 0 {
		t.Error("debt ticket still open")
	}
}

func TestIntroduceBoundaryRemovesTargetedLink(t *testing.T) {
	s := newTestSim(t, 1, PresetSenior)
	s.Link(3, 2)
	s.Link(6, 4)
	id := s.FirstArchitectureDebtTicketID()
	if r := s.ApplyRefactor(id, RefactorIntroduceBoundary, "6->4"); !r.OK {
		t.Fatalf("refactor: %s", r.Reason)
	}
	vs := s.ArchViolations()
	if len(vs) != 1 || vs[0].Key != "3->2" {
		t.Fatalf("violations = %+v", vs)
	}
}

func TestSplitAndExtractLowerAmplifiers(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.Link(3, 2)
	if r := s.ApplyRefactor(s.FirstArchitectureDebtTicketID(), RefactorSplitAggregator, ""); !r.OK {
		t.Fatalf("split: %s", r.Reason)
	}
	if s.blastAmp != 0.85 {
		t.Errorf("blast amp = %v", s.blastAmp)
	}
	s.Link(6, 4)
	if r := s.ApplyRefactor(s.FirstArchitectureDebtTicketID(), RefactorExtractModule, ""); !r.OK {
		t.Fatalf("extract: %s", r.Reason)
	}
	if s.debtAmp != 0.9 || len(s.ArchViolations()) != 0 {
		t.Errorf("debt amp = %v violations = %+v", s.debtAmp, s.ArchViolations())
	}
}

func TestPrincipalBonusScalesWithCleanliness(t *testing.T) {
	s := newTestSim(t, 1, PresetPrincipal)
	s.Link(3, 2)
	opts, _ := s.RefactorOptions(s.FirstArchitectureDebtTicketID())
	// debt 10: 40 * (1 + 0.9)
	if opts[0].Action != RefactorIntroduceBoundary || opts[0].ScoreBonus != 76 {
		t.Fatalf("option = %+v", opts[0])
	}
}

func TestRoadmapOrder(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	if steps := s.RefactorRoadmap(); len(steps) != 0 {
		t.Fatalf("clean graph roadmap = %+v", steps)
	}
	s.Link(1, 4)
	s.Link(3, 2)
	s.Link(8, 6)
	steps := s.RefactorRoadmap()
	want := []RefactorAction{RefactorIntroduceBoundary, RefactorMoveMapping, RefactorSplitAggregator, RefactorExtractModule}
	if len(steps) != len(want) {
		t.Fatalf("steps = %+v", steps)
	}
	for i, a := range want {
		if steps[i].Action != a {
			t.Errorf("step %d = %s, want %s", i, steps[i].Action, a)
		}
	}
	if steps[0].TargetKey != "3->2" {
		t.Errorf("boundary target = %q", steps[0].TargetKey)
	}
}
