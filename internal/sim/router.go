package sim

import (
	"math"
	"sort"

	"archops-sim/internal/catalog"
)

const (
	// loadPerSlot is the load weight one capacity slot absorbs before the
	// component takes stress damage.
	loadPerSlot = 3.0
	// heapPerRequest scales an action's memory cost into heap growth.
	heapPerRequest = 0.35
)

// tickStats accumulates what the router observed during one tick.
type tickStats struct {
	spawned      int
	ok           int
	fail         int
	anrPoints    float64
	mainThreadMs float64
	ioOnMain     float64
	heapDelta    float64
	latencies    []float64
}

func (s *Simulator) stepRouter() tickStats {
	for _, c := range s.components {
		s.computeStats(c)
		c.Load = 0
	}

	var st tickStats
	s.expireRequests(&st)
	st.spawned = s.spawnRequests()

	// components is kept in creation order, which is ascending ID order.
	for _, c := range s.components {
		s.process(c, &st)
	}
	for _, c := range s.components {
		c.QueueLen = len(c.queue)
	}
	return st
}

// expireRequests ages every queued request and drops those out of time as failures.
func (s *Simulator) expireRequests(st *tickStats) {
	for _, c := range s.components {
		kept := c.queue[:0]
		for _, r := range c.queue {
			r.TTL--
			if r.TTL <= 0 {
				st.fail++
				continue
			}
			kept = append(kept, r)
		}
		c.queue = kept
	}
}

func (s *Simulator) spawnRequests() int {
	var ui, work *Component
	for _, c := range s.components {
		if ui == nil && c.Kind == catalog.UI {
			ui = c
		}
		if work == nil && c.Kind == catalog.Work {
			work = c
		}
	}
	if ui == nil || ui.Down {
		return 0
	}

	volume := 7.5 * (1 + float64(s.timeSec)/90) * s.mods.spawnMul
	spawned := 0
	for _, m := range catalog.TrafficMix {
		want := volume * m.Share
		n := int(math.Floor(want))
		if s.gen.Chance(want - float64(n)) {
			n++
		}
		origin := ui
		if m.Action == catalog.Sync && work != nil && !work.Down {
			origin = work
		}
		for i := 0; i < n; i++ {
			origin.queue = append(origin.queue, Request{Action: m.Action, TTL: RequestTTL})
		}
		spawned += n
	}
	return spawned
}

func (s *Simulator) process(c *Component, st *tickStats) {
	if len(c.queue) == 0 {
		return
	}
	main := catalog.IsMainPath(c.Kind)
	canProcess := int(math.Floor(c.Cap))
	if canProcess > len(c.queue) {
		canProcess = len(c.queue)
	}
	overflow := len(c.queue) - canProcess
	if overflow > 0 && main {
		st.anrPoints += float64(overflow) * 0.9
	}

	batch := c.queue[:canProcess]
	c.queue = append([]Request(nil), c.queue[canProcess:]...)

	obs := s.has(catalog.Obs)
	flags := s.has(catalog.Flags)
	fragility := 1 + s.debt/100*0.6*s.debtAmp

	for _, req := range batch {
		a := catalog.Profile(req.Action)
		weight := a.CPU*boolf(main, 1.2, 1) +
			a.IO*boolf(c.Kind == catalog.DB, 1.3, 0.4) +
			a.Net*boolf(c.Kind == catalog.Net, 1.4, 0.2)
		c.Load += weight

		latency := c.Lat + float64(overflow)*2.5 + boolf(a.HeavyCPU, 4, 0)
		st.latencies = append(st.latencies, latency)

		if main {
			st.mainThreadMs += a.CPU*4 + boolf(a.HeavyCPU, 2, 0)
		}
		st.heapDelta += a.MemCost * heapPerRequest * boolf(main, 1, 0.6)

		failP := c.Fail
		switch c.Kind {
		case catalog.Net:
			failP *= 1 + a.Net*0.25
		case catalog.DB:
			failP *= 1 + a.IO*0.20
		}
		if obs {
			failP *= 0.92
		}
		failP *= fragility

		if s.gen.Chance(failP) || c.Down {
			st.fail++
			blast := boolf(flags, 0.55, 1) * s.blastAmp
			s.damage(c, (6+weight*1.2)*blast)
			continue
		}
		st.ok++
		ioHop := false
		for _, t := range s.route(c, req.Action) {
			t.queue = append(t.queue, req)
			ioHop = ioHop || catalog.IsIOSink(t.Kind)
		}
		// The UI thread blocks when it calls storage or the network itself.
		if main && ioHop && a.IO+a.Net > 1.2 {
			st.ioOnMain += a.IO + a.Net
			st.anrPoints += (a.IO + a.Net) * 1.2
			st.mainThreadMs += (a.IO + a.Net) * 2.5
		}
	}

	if limit := c.Cap * loadPerSlot; c.Load > limit {
		s.damage(c, (c.Load-limit)*0.7)
	}

	if c.Kind == catalog.Work {
		drain := (float64(canProcess) + float64(overflow)*0.5) * 0.06 * s.mods.workRestriction
		s.tech.Battery = clamp(s.tech.Battery-drain, 0, 100)
	}
}

func (s *Simulator) damage(c *Component, amount float64) {
	if c.Down {
		return
	}
	c.Health -= amount
	if c.Health <= 0 {
		c.Health = 0
		c.Down = true
		c.Cap = 0
		s.logf(CategoryOther, "%s went DOWN.", c.Kind)
	}
}

// route picks downstream targets for a request that succeeded at c.
func (s *Simulator) route(c *Component, action catalog.Action) []*Component {
	outs := s.outLinks(c.ID)
	if len(outs) == 0 {
		return nil
	}
	if c.Kind != catalog.Repo {
		return outs[:1]
	}

	var cache, db, net *Component
	for _, o := range outs {
		switch {
		case o.Kind == catalog.Cache && cache == nil:
			cache = o
		case o.Kind == catalog.DB && db == nil:
			db = o
		case o.Kind == catalog.Net && net == nil:
			net = o
		}
	}

	var targets []*Component
	add := func(t *Component) {
		if t != nil {
			targets = append(targets, t)
		}
	}
	switch action {
	case catalog.Upload:
		add(net)
		return targets
	case catalog.Write:
		add(db)
		if net != nil && s.gen.Chance(0.25) {
			add(net)
		}
		return targets
	case catalog.Sync:
		add(net)
		add(db)
		return targets
	}

	add(cache)
	hit := false
	if cache != nil {
		base := 0.40
		if action == catalog.Search {
			base = 0.15
		}
		hit = s.gen.Chance(clamp(base+float64(cache.Tier-1)*0.18, 0, 0.88))
	}
	if !hit {
		add(db)
	}
	if action == catalog.Scroll && net != nil && s.gen.Chance(0.55) {
		add(net)
	}
	if action == catalog.Search && net != nil && s.gen.Chance(0.20) {
		add(net)
	}
	if len(targets) == 0 {
		return outs[:1]
	}
	return targets
}

// percentile returns the q-quantile of samples using the nearest-rank-below rule.
func percentile(samples []float64, q float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	idx := int(math.Floor(float64(len(sorted)-1) * q))
	return sorted[idx]
}
