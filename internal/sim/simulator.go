// Package sim is the deterministic, tick-driven engine that simulates an app's
// architecture under operational pressure.
//
// A Simulator is a single logical actor: it is not safe for concurrent use and
// has no timers of its own. Hosts call Tick once per logical second and issue
// commands in between.
package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"archops-sim/internal/catalog"
	"archops-sim/internal/rng"
)

// Starting resources of every run.
const (
	StartBudget   = 3000.0
	StartRating   = 5.0
	MinRating     = 1.0
	MaxRating     = 5.0
	StartCapacity = 12.0
	StartHeapMB   = 64.0
	HeapMaxMB     = 320.0
	eventLogLimit = 18
	latencyWindow = 400
)

// Simulator owns all engine state.
type Simulator struct {
	gen             *rng.Generator
	now             func() time.Time
	newRunID        func() string
	checkInvariants bool

	preset    Preset
	bounds    Bounds
	runID     string
	startedAt time.Time

	timeSec  int
	budget   float64
	rating   float64
	score    float64
	debt     float64
	debtAmp  float64
	blastAmp float64

	components []*Component
	links      []Link
	nextCompID int
	selected   int

	tech         Tech
	perception   Perception
	votes        Votes
	reviews      []string
	nextReviewAt int

	reqOK      float64
	reqFail    float64
	anrPoints  float64
	latSamples []float64
	traffic    float64

	mods  modifiers
	patch patches

	lastIncidentAt int
	incidents      int

	tickets        []*Ticket
	nextTicketID   int
	advisories     []*Advisory
	nextAdvisoryID int
	platform       Platform
	regions        []Region
	regPressure    float64

	coverage coverageState
	capacity capacityState

	eventLines []string
	events     []Event

	ended     bool
	endReason EndReason
	lastRun   *RunResult
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock overrides the wall clock used for run timestamps and seed derivation.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithRunIDs overrides run identifier generation.
func WithRunIDs(fn func() string) Option {
	return func(s *Simulator) { s.newRunID = fn }
}

// WithInvariantChecks makes the engine panic as soon as a tick or command
// leaves state outside its documented bounds.
func WithInvariantChecks() Option {
	return func(s *Simulator) { s.checkInvariants = true }
}

// ResetOption configures a run.
type ResetOption func(*resetConfig)

type resetConfig struct {
	seed    uint32
	hasSeed bool
	preset  Preset
}

// WithSeed fixes the generator seed for the run.
func WithSeed(seed uint32) ResetOption {
	return func(c *resetConfig) { c.seed, c.hasSeed = seed, true }
}

// WithPreset selects the evaluation preset for the run.
func WithPreset(p Preset) ResetOption {
	return func(c *resetConfig) { c.preset = p }
}

// DefaultBounds is used by New for the initial run.
var DefaultBounds = Bounds{Width: 1280, Height: 800}

// New returns a Simulator with a fresh run already started.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
		preset:   PresetJuniorMid,
	}
	for _, o := range opts {
		o(s)
	}
	s.Reset(DefaultBounds)
	return s
}

// Reset discards the current run and starts a new one with the starter layout.
func (s *Simulator) Reset(bounds Bounds, opts ...ResetOption) {
	cfg := resetConfig{preset: s.preset}
	for _, o := range opts {
		o(&cfg)
	}
	if !cfg.hasSeed {
		cfg.seed = uint32(s.now().UnixNano())
	}
	if cfg.preset == "" {
		cfg.preset = PresetJuniorMid
	}

	booster, shield := s.capacity.boosterUnlocked, s.capacity.shieldUnlocked
	*s = Simulator{
		gen:             rng.New(cfg.seed),
		now:             s.now,
		newRunID:        s.newRunID,
		checkInvariants: s.checkInvariants,
		preset:          cfg.preset,
		bounds:          bounds,
		runID:           s.newRunID(),
		startedAt:       s.now(),
		budget:          StartBudget,
		rating:          StartRating,
		debtAmp:         1,
		blastAmp:        1,
		nextCompID:      1,
		nextTicketID:    1,
		nextAdvisoryID:  1,
		nextReviewAt:    25,
		lastIncidentAt:  0,
		tech:            Tech{Battery: 100, HeapMB: StartHeapMB, HeapMaxMB: HeapMaxMB},
		perception:      Perception{A11y: 100, Privacy: 100, Security: 100},
		mods:            modifiers{spawnMul: 1, netBadness: 1, workRestriction: 1},
		platform:        newPlatform(),
		regions:         newRegions(),
		capacity:        newCapacity(),
	}
	s.coverage = newCoverage(s.preset)
	s.SetShopUnlocks(booster, shield)
	s.layoutStarter()
	s.emit(RunResetEvent{AtSec: 0, Seed: s.gen.Seed(), Preset: s.preset, Budget: s.budget, Debt: s.debt})
}

func (s *Simulator) layoutStarter() {
	cx := s.bounds.Width * 0.40
	cy := s.bounds.Height * 0.50
	add := func(k catalog.Kind, dx, dy float64) int {
		return s.createComponent(k, Position{X: cx + dx, Y: cy + dy}).ID
	}
	ui := add(catalog.UI, -260, -20)
	vm := add(catalog.VM, -150, -20)
	dom := add(catalog.Domain, -40, -20)
	repo := add(catalog.Repo, 70, -20)
	cache := add(catalog.Cache, 190, -80)
	db := add(catalog.DB, 310, -80)
	net := add(catalog.Net, 190, 60)
	work := add(catalog.Work, -40, 110)
	add(catalog.Obs, -260, 120)
	add(catalog.Flags, 310, 60)

	for _, l := range []Link{{ui, vm}, {vm, dom}, {dom, repo}, {repo, cache}, {cache, db}, {repo, net}, {work, repo}} {
		s.links = append(s.links, l)
	}
	s.selected = repo
	// The starter graph is free and does not tax coverage.
	s.coverage.pendingAdds = 0
}

// Tick advances the world by one logical second. It is a no-op once the run has ended.
func (s *Simulator) Tick() {
	if s.ended {
		return
	}
	s.timeSec++

	st := s.stepRouter()
	s.aggregate(st)
	s.tickTickets()
	s.tickPlatform()
	s.tickZeroDay()
	s.tickRegions()
	s.tickCoverage()
	s.tickCapacity()
	s.updatePerception()
	s.maybeIncident()
	s.settle()

	s.verify()
}

// Seed returns the generator seed of the current run.
func (s *Simulator) Seed() uint32 { return s.gen.Seed() }

// RunID returns the identifier of the current run.
func (s *Simulator) RunID() string { return s.runID }

// Preset returns the evaluation preset of the current run.
func (s *Simulator) Preset() Preset { return s.preset }

// TimeSec returns elapsed logical seconds.
func (s *Simulator) TimeSec() int { return s.timeSec }

// Budget returns the remaining budget.
func (s *Simulator) Budget() float64 { return s.budget }

// Rating returns the store rating in [1,5].
func (s *Simulator) Rating() float64 { return s.rating }

// Score returns the raw accumulated score.
func (s *Simulator) Score() float64 { return s.score }

// ArchitectureDebt returns the recorded debt in [0,100].
func (s *Simulator) ArchitectureDebt() float64 { return s.debt }

// Ended reports whether the run has terminated.
func (s *Simulator) Ended() bool { return s.ended }

// EndReason returns why the run ended, or "" while running.
func (s *Simulator) EndReason() EndReason { return s.endReason }

func (s *Simulator) verify() {
	if !s.checkInvariants {
		return
	}
	fail := func(format string, args ...any) {
		panic(fmt.Sprintf("sim invariant at t=%d: "+format, append([]any{s.timeSec}, args...)...))
	}
	for _, c := range s.components {
		if c.Health < 0 || c.Health > 100 {
			fail("component %d health %v", c.ID, c.Health)
		}
	}
	if s.capacity.cur < 0 || s.capacity.cur > s.capacity.max+1e-9 {
		fail("capacity %v of %v", s.capacity.cur, s.capacity.max)
	}
	if s.debt < 0 || s.debt > 100 {
		fail("debt %v", s.debt)
	}
	if s.coverage.pct < 0 || s.coverage.pct > 100 {
		fail("coverage %v", s.coverage.pct)
	}
	if s.rating < MinRating || s.rating > MaxRating {
		fail("rating %v", s.rating)
	}
	p := s.perception
	for name, v := range map[string]float64{"a11y": p.A11y, "privacy": p.Privacy, "security": p.Security, "support": p.SupportLoad} {
		if v < 0 || v > 100 {
			fail("%s %v", name, v)
		}
	}
}
