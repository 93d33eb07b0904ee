package sim

import (
	"math"
	"testing"

	"archops-sim/internal/catalog"
)

func enqueue(c *Component, a catalog.Action, n int) {
	for i := 0; i < n; i++ {
		c.queue = append(c.queue, Request{Action: a, TTL: RequestTTL})
	}
}

func TestLayeredMainPathAddsNoANR(t *testing.T) {
	for _, id := range []int{1, 2, 3} {
		s := newTestSim(t, 1, PresetJuniorMid)
		c := s.component(id)
		c.Fail = 0
		enqueue(c, catalog.Upload, 5)
		var st tickStats
		s.process(c, &st)
		if st.ok != 5 {
			t.Fatalf("%s ok = %d", c.Kind, st.ok)
		}
		if st.anrPoints != 0 || st.ioOnMain != 0 {
			t.Fatalf("%s charged IO on main: anr=%v io=%v", c.Kind, st.anrPoints, st.ioOnMain)
		}
		if st.mainThreadMs == 0 {
			t.Fatalf("%s did no main-thread work", c.Kind)
		}
	}
}

func TestMainPathShortcutToStorageAddsANR(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.links = []Link{{From: 1, To: 6}}
	ui := s.component(1)
	ui.Fail = 0
	enqueue(ui, catalog.Upload, 5)

	var st tickStats
	s.process(ui, &st)
	a := catalog.Profile(catalog.Upload)
	if want := 5 * (a.IO + a.Net) * 1.2; math.Abs(st.anrPoints-want) > 1e-9 {
		t.Fatalf("anr points = %v, want %v", st.anrPoints, want)
	}
	if got := len(s.component(6).queue); got != 5 {
		t.Fatalf("db queue = %d, want 5", got)
	}
}

func TestStressStartsPastLoadPerSlot(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	s.links = nil
	db := s.component(6)
	db.Fail = 0

	enqueue(db, catalog.Read, 8)
	var st tickStats
	s.process(db, &st)
	if db.Health != 100 {
		t.Fatalf("typical reads stressed db: health %v load %v", db.Health, db.Load)
	}

	db.Load = 0
	enqueue(db, catalog.Search, 8)
	s.process(db, &st)
	want := 100 - (db.Load-db.Cap*loadPerSlot)*0.7
	if db.Load <= db.Cap*loadPerSlot || math.Abs(db.Health-want) > 1e-9 {
		t.Fatalf("health = %v, want %v (load %v)", db.Health, want, db.Load)
	}
}

func TestOverflowOnMainPathAddsANR(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	dom := s.component(3)
	dom.Fail = 0
	enqueue(dom, catalog.Read, int(dom.Cap)+4)

	var st tickStats
	s.process(dom, &st)
	if math.Abs(st.anrPoints-4*0.9) > 1e-9 {
		t.Fatalf("anr points = %v, want %v", st.anrPoints, 4*0.9)
	}
	if len(dom.queue) != 4 {
		t.Fatalf("overflow left queued = %d, want 4", len(dom.queue))
	}
}

func TestExpiredRequestsCountAsFailures(t *testing.T) {
	s := newTestSim(t, 1, PresetJuniorMid)
	repo := s.component(4)
	repo.queue = []Request{{Action: catalog.Read, TTL: 1}, {Action: catalog.Read, TTL: 5}}

	var st tickStats
	s.expireRequests(&st)
	if st.fail != 1 || len(repo.queue) != 1 || repo.queue[0].TTL != 4 {
		t.Fatalf("fail=%d queue=%+v", st.fail, repo.queue)
	}
}
