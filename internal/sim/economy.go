package sim

import (
	"math"
	"strings"
)

// ShopItem names a capacity shop purchase.
type ShopItem string

// Shop items in display order.
const (
	ItemRefill  ShopItem = "refill"
	ItemRegen   ShopItem = "regen"
	ItemHire    ShopItem = "hire"
	ItemBooster ShopItem = "booster"
	ItemShield  ShopItem = "shield"
)

// ShopItems lists every item in display order.
var ShopItems = []ShopItem{ItemRefill, ItemRegen, ItemHire, ItemBooster, ItemShield}

// ParseShopItem resolves an item name case-insensitively.
func ParseShopItem(s string) (ShopItem, bool) {
	it := ShopItem(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ShopItems {
		if it == known {
			return it, true
		}
	}
	return "", false
}

const (
	maxRegenTier     = 3
	maxHires         = 3
	hireCapacity     = 4
	adrenalineSec    = 20
	boosterSec       = 45
	boosterCooldown  = 120
	maxShieldCharges = 1
)

type capacityState struct {
	cur, max float64

	refills   int
	regenTier int
	hires     int
	boosters  int
	shields   int

	adrenalineUntil int
	boosterUntil    int
	boosterReadyAt  int
	shieldCharges   int

	boosterUnlocked bool
	shieldUnlocked  bool
}

func newCapacity() capacityState {
	return capacityState{cur: StartCapacity, max: StartCapacity}
}

// regen returns this tick's capacity regeneration.
func (s *Simulator) regen() float64 {
	c := s.capacity
	r := 0.20
	r += math.Min(float64(s.timeSec)/600, 1) * 0.10
	r += float64(c.regenTier) * 0.06
	r += 0.08 * clamp((float64(len(s.tickets))-5)/5, 0, 1)
	if s.timeSec < c.adrenalineUntil {
		r += 0.15
	}
	if s.timeSec < c.boosterUntil {
		r += 0.25
	}
	return r
}

func (s *Simulator) tickCapacity() {
	s.capacity.cur = clamp(s.capacity.cur+s.regen(), 0, s.capacity.max)
}

// CapacityView is the engineering capacity meter.
type CapacityView struct {
	Cur           float64 `json:"cur"`
	Max           float64 `json:"max"`
	RegenPerSec   float64 `json:"regen_per_sec"`
	RegenTier     int     `json:"regen_tier"`
	Hires         int     `json:"hires"`
	BoosterActive bool    `json:"booster_active"`
	ShieldCharges int     `json:"shield_charges"`
}

// Capacity returns the capacity meter.
func (s *Simulator) Capacity() CapacityView {
	c := s.capacity
	return CapacityView{
		Cur:           c.cur,
		Max:           c.max,
		RegenPerSec:   s.regen(),
		RegenTier:     c.regenTier,
		Hires:         c.hires,
		BoosterActive: s.timeSec < c.boosterUntil,
		ShieldCharges: c.shieldCharges,
	}
}

// Offer is one shop entry with its current price and availability.
type Offer struct {
	Item      ShopItem `json:"item"`
	Cost      float64  `json:"cost"`
	Available bool     `json:"available"`
	Reason    string   `json:"reason,omitempty"`
}

func (s *Simulator) price(it ShopItem) float64 {
	c := s.capacity
	switch it {
	case ItemRefill:
		return 60 + 25*float64(c.refills)
	case ItemRegen:
		return math.Round(150 * math.Pow(1.8, float64(c.regenTier)))
	case ItemHire:
		return math.Round(300 * math.Pow(1.6, float64(c.hires)))
	case ItemBooster:
		return 90 + 40*float64(c.boosters)
	case ItemShield:
		return 140 + 60*float64(c.shields)
	}
	return math.Inf(1)
}

// blocker returns why it cannot be bought right now, or "".
func (s *Simulator) blocker(it ShopItem) string {
	c := s.capacity
	if s.ended {
		return ReasonRunEnded
	}
	switch it {
	case ItemRefill:
		if c.cur >= c.max {
			return ReasonCapacityFull
		}
	case ItemRegen:
		if c.regenTier >= maxRegenTier {
			return ReasonLimit
		}
	case ItemHire:
		if c.hires >= maxHires {
			return ReasonLimit
		}
	case ItemBooster:
		switch {
		case !c.boosterUnlocked:
			return ReasonLocked
		case s.timeSec < c.boosterUntil:
			return ReasonActive
		case s.timeSec < c.boosterReadyAt:
			return ReasonCooldown
		}
	case ItemShield:
		switch {
		case !c.shieldUnlocked:
			return ReasonLocked
		case c.shieldCharges >= maxShieldCharges:
			return ReasonShieldCharged
		}
	default:
		return ReasonUnknownAction
	}
	if s.budget < s.price(it) {
		return ReasonBudget
	}
	return ""
}

// Shop lists every offer in display order.
func (s *Simulator) Shop() []Offer {
	out := make([]Offer, 0, len(ShopItems))
	for _, it := range ShopItems {
		r := s.blocker(it)
		out = append(out, Offer{Item: it, Cost: s.price(it), Available: r == "", Reason: r})
	}
	return out
}

// Buy purchases it from the capacity shop.
func (s *Simulator) Buy(it ShopItem) Result {
	if r := s.blocker(it); r != "" {
		return reject(r)
	}
	cost := s.price(it)
	s.budget -= cost
	c := &s.capacity
	switch it {
	case ItemRefill:
		c.refills++
		c.cur = c.max
	case ItemRegen:
		c.regenTier++
	case ItemHire:
		c.hires++
		c.max += hireCapacity
		c.cur = math.Min(c.max, c.cur+hireCapacity)
	case ItemBooster:
		c.boosters++
		c.boosterUntil = s.timeSec + boosterSec
		c.boosterReadyAt = s.timeSec + boosterCooldown
	case ItemShield:
		c.shields++
		c.shieldCharges++
	}
	s.logf(CategoryOther, "Bought %s for %.0f", it, cost)
	s.emit(PurchaseEvent{AtSec: s.timeSec, Item: it, Cost: cost})
	s.verify()
	return accepted()
}

// BuyRefill tops engineering capacity up to its max.
func (s *Simulator) BuyRefill() Result { return s.Buy(ItemRefill) }

// BuyRegenUpgrade raises the regeneration tier.
func (s *Simulator) BuyRegenUpgrade() Result { return s.Buy(ItemRegen) }

// Hire raises max capacity.
func (s *Simulator) Hire() Result { return s.Buy(ItemHire) }

// BuyBooster temporarily raises regeneration.
func (s *Simulator) BuyBooster() Result { return s.Buy(ItemBooster) }

// BuyShield charges the incident shield.
func (s *Simulator) BuyShield() Result { return s.Buy(ItemShield) }

// SetShopUnlocks enables the booster and shield items.
func (s *Simulator) SetShopUnlocks(booster, shield bool) {
	s.capacity.boosterUnlocked = booster
	s.capacity.shieldUnlocked = shield
}
