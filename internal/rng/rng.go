// Package rng provides the seeded generator every simulation component draws from.
package rng

import "math/rand"

// DefaultSeed replaces a zero seed so that a zero-value run is still reproducible.
const DefaultSeed uint32 = 0x12345678

// Generator is a deterministic pseudo-random source.
// It is not safe for concurrent use; the engine owns exactly one.
type Generator struct {
	seed uint32
	r    *rand.Rand
}

// New returns a Generator seeded with seed.
func New(seed uint32) *Generator {
	if seed == 0 {
		seed = DefaultSeed
	}
	return &Generator{seed: seed, r: rand.New(rand.NewSource(int64(seed)))}
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() uint32 { return g.seed }

// Float64 returns a value in [0,1).
func (g *Generator) Float64() float64 { return g.r.Float64() }

// Range returns a value in [lo,hi).
func (g *Generator) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*g.r.Float64()
}

// Int returns an integer in the inclusive range [lo,hi]. Bounds may be given in either order.
func (g *Generator) Int(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + g.r.Intn(hi-lo+1)
}

// Chance reports whether a roll lands under p.
func (g *Generator) Chance(p float64) bool {
	return g.r.Float64() < p
}

// Pick returns an index chosen proportionally to weights.
// Non-positive weights are never chosen unless every weight is non-positive,
// in which case the last index is returned.
func (g *Generator) Pick(weights []float64) int {
	if len(weights) == 0 {
		return -1
	}
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return len(weights) - 1
	}
	roll := g.r.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		roll -= w
		if roll < 0 {
			return i
		}
	}
	return len(weights) - 1
}
