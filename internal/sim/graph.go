package sim

import (
	"fmt"
	"math"

	"archops-sim/internal/catalog"
)

func (s *Simulator) createComponent(k catalog.Kind, pos Position) *Component {
	c := &Component{ID: s.nextCompID, Kind: k, Pos: pos, Tier: 1, Health: 100}
	s.nextCompID++
	s.components = append(s.components, c)
	s.computeStats(c)
	s.coverage.pendingAdds++
	return c
}

func (s *Simulator) component(id int) *Component {
	for _, c := range s.components {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// tierOf returns the tier of the first live component of kind k, or 0.
func (s *Simulator) tierOf(k catalog.Kind) int {
	for _, c := range s.components {
		if c.Kind == k && !c.Down {
			return c.Tier
		}
	}
	return 0
}

func (s *Simulator) has(k catalog.Kind) bool { return s.tierOf(k) > 0 }

// computeStats refreshes derived capacity, latency and failure rate.
func (s *Simulator) computeStats(c *Component) {
	a := catalog.MustLookup(c.Kind)
	c.Cap = a.BaseCap * catalog.TierMultiplier(c.Tier)
	c.Lat = a.BaseLat
	if c.Kind == catalog.DB {
		c.Lat = a.BaseLat / (1 + float64(c.Tier-1)*0.15)
	}
	c.Fail = a.BaseFail / (1 + float64(c.Tier-1)*0.55)
	if c.Kind == catalog.Net {
		c.Fail *= s.mods.netBadness
	}
	if c.Down {
		c.Cap = 0
	}
}

func (s *Simulator) outLinks(id int) []*Component {
	var out []*Component
	for _, l := range s.links {
		if l.From != id {
			continue
		}
		if c := s.component(l.To); c != nil && !c.Down {
			out = append(out, c)
		}
	}
	return out
}

func (s *Simulator) upgradeCost(c *Component) float64 {
	if c.Tier >= catalog.MaxTier {
		return math.Inf(1)
	}
	return float64(catalog.MustLookup(c.Kind).UpgradeCost[c.Tier])
}

func (s *Simulator) repairCost(c *Component) float64 {
	base := (100-c.Health)*0.6 + boolf(c.Down, 40, 0)
	obs := boolf(s.has(catalog.Obs), 0.85, 1)
	support := clamp(1+s.perception.SupportLoad/180, 1, 1.6)
	return math.Ceil(base * obs * support)
}

// Place buys a component of kind k at pos and selects it.
func (s *Simulator) Place(k catalog.Kind, pos Position) (int, Result) {
	if s.ended {
		return 0, reject(ReasonRunEnded)
	}
	a, ok := catalog.Lookup(k)
	if !ok {
		return 0, reject(ReasonUnknownKind)
	}
	cost := float64(a.Cost)
	if s.budget < cost {
		return 0, reject(ReasonBudget)
	}
	s.budget -= cost
	c := s.createComponent(k, pos)
	s.selected = c.ID
	return c.ID, accepted()
}

// Select marks a component as the subject of the snapshot's detail view.
// Passing 0 clears the selection.
func (s *Simulator) Select(id int) Result {
	if id == 0 {
		s.selected = 0
		return accepted()
	}
	if s.component(id) == nil {
		return reject(ReasonNoComponent)
	}
	s.selected = id
	return accepted()
}

// Upgrade raises a component one tier.
func (s *Simulator) Upgrade(id int) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	c := s.component(id)
	if c == nil {
		return reject(ReasonNoSelection)
	}
	if c.Tier >= catalog.MaxTier {
		return reject(ReasonMaxTier)
	}
	cost := s.upgradeCost(c)
	if s.budget < cost {
		return reject(ReasonBudget)
	}
	s.budget -= cost
	c.Tier++
	s.computeStats(c)
	s.logf(CategoryOther, "%s upgraded to Tier %d.", c.Kind, c.Tier)
	return accepted()
}

// Repair restores a component to full health.
func (s *Simulator) Repair(id int) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	c := s.component(id)
	if c == nil {
		return reject(ReasonNoSelection)
	}
	if c.Health >= 100 && !c.Down {
		return reject(ReasonHealthy)
	}
	cost := s.repairCost(c)
	if s.budget < cost {
		return reject(ReasonBudget)
	}
	s.budget -= cost
	c.Health = 100
	c.Down = false
	s.computeStats(c)
	s.logf(CategoryOther, "%s repaired.", c.Kind)
	return accepted()
}

// Delete removes a component with its links and queued work.
func (s *Simulator) Delete(id int) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	idx := -1
	for i, c := range s.components {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return reject(ReasonNoSelection)
	}
	kind := s.components[idx].Kind
	s.components = append(s.components[:idx], s.components[idx+1:]...)
	kept := s.links[:0]
	for _, l := range s.links {
		if l.From != id && l.To != id {
			kept = append(kept, l)
		}
	}
	s.links = kept
	if s.selected == id {
		s.selected = 0
	}
	s.logf(CategoryOther, "Deleted %s #%d.", kind, id)
	return accepted()
}

// Unlink removes the link from->to.
func (s *Simulator) Unlink(from, to int) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	for i, l := range s.links {
		if l.From == from && l.To == to {
			s.links = append(s.links[:i], s.links[i+1:]...)
			return accepted()
		}
	}
	return reject(ReasonNoLink)
}

func (s *Simulator) removeLink(target Link) bool {
	for i, l := range s.links {
		if l == target {
			s.links = append(s.links[:i], s.links[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Simulator) hasLink(from, to int) bool {
	for _, l := range s.links {
		if l.From == from && l.To == to {
			return true
		}
	}
	return false
}

// Components returns a copy of every placed component in creation order.
func (s *Simulator) Components() []Component {
	out := make([]Component, len(s.components))
	for i, c := range s.components {
		out[i] = *c
		out[i].queue = nil
	}
	return out
}

// Links returns a copy of every link in creation order.
func (s *Simulator) Links() []Link {
	return append([]Link(nil), s.links...)
}

func (s *Simulator) describe(c *Component) string {
	a := catalog.MustLookup(c.Kind)
	return fmt.Sprintf("health=%.0f  down=%s\ncap=%.1f  load=%.1f  queue=%d\nfail=%.2f%%  lat~%.0fms\n%s",
		c.Health, yesNo(c.Down), c.Cap, c.Load, len(c.queue), c.Fail*100, c.Lat, a.Description)
}

func boolf(b bool, t, f float64) float64 {
	if b {
		return t
	}
	return f
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
