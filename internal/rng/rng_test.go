package rng

import "testing"

func TestSameSeedSameSequence(t *testing.T) {
	a := New(12345)
	b := New(12345)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestZeroSeedUsesDefault(t *testing.T) {
	g := New(0)
	if g.Seed() != DefaultSeed {
		t.Fatalf("seed = %x, want %x", g.Seed(), DefaultSeed)
	}
}

func TestIntInclusiveAndOrderInsensitive(t *testing.T) {
	g := New(7)
	seenLo, seenHi := false, false
	for i := 0; i < 500; i++ {
		v := g.Int(5, 3)
		if v < 3 || v > 5 {
			t.Fatalf("value %d out of range", v)
		}
		if v == 3 {
			seenLo = true
		}
		if v == 5 {
			seenHi = true
		}
	}
	if !seenLo || !seenHi {
		t.Errorf("bounds not reached: lo=%v hi=%v", seenLo, seenHi)
	}
}

func TestPickRespectsZeroWeights(t *testing.T) {
	g := New(99)
	for i := 0; i < 200; i++ {
		if idx := g.Pick([]float64{0, 1, 0}); idx != 1 {
			t.Fatalf("picked %d, want 1", idx)
		}
	}
	if idx := g.Pick(nil); idx != -1 {
		t.Errorf("empty pick = %d, want -1", idx)
	}
}
