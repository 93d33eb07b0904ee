// Package session hosts one simulator for concurrent callers: a ticker loop,
// typed commands from the TUI or admin API, and fan-out to sinks.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"archops-sim/internal/metrics"
	"archops-sim/internal/scenario"
	"archops-sim/internal/scoreboard"
	"archops-sim/internal/sim"
	"archops-sim/internal/sink"
	"archops-sim/internal/telemetry"
)

// RewardSource consumes each tick's drained events and summary and returns
// budget/score deltas for the session to apply.
type RewardSource interface {
	Observe(events []sim.Event, tick sim.TickSummary) []sim.Reward
}

// RewardFunc adapts a function to RewardSource.
type RewardFunc func(events []sim.Event, tick sim.TickSummary) []sim.Reward

// Observe implements RewardSource.
func (f RewardFunc) Observe(events []sim.Event, tick sim.TickSummary) []sim.Reward {
	return f(events, tick)
}

type batchEventWriter interface {
	WriteEvents(rows []telemetry.EventRow) error
}

// Session serializes every engine call behind one mutex and is the only
// place engine events are drained.
type Session struct {
	mu     sync.Mutex
	sim    *sim.Simulator
	bounds sim.Bounds
	paused bool

	out      sink.StateWriter
	board    *scoreboard.Board
	metrics  *metrics.Metrics
	rewards  RewardSource
	scenario *scenario.Scenario
	log      *slog.Logger
	now      func() time.Time

	persisted string
	last      telemetry.StateRow
	// unrewarded holds events drained by commands until the next tick
	// hands them to the reward source.
	unrewarded []sim.Event
}

// Option configures a Session.
type Option func(*Session)

// WithSink sets the writer receiving state, event and run rows.
func WithSink(w sink.StateWriter) Option { return func(s *Session) { s.out = w } }

// WithScoreboard records each finished run on b.
func WithScoreboard(b *scoreboard.Board) Option { return func(s *Session) { s.board = b } }

// WithMetrics updates m after every tick.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Session) { s.metrics = m } }

// WithRewards installs the achievement collaborator.
func WithRewards(r RewardSource) Option { return func(s *Session) { s.rewards = r } }

// WithScenario applies sc's steps as the run reaches each second.
func WithScenario(sc *scenario.Scenario) Option { return func(s *Session) { s.scenario = sc } }

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.log = l } }

// WithClock overrides the clock used to stamp rows.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// WithBounds sets the surface used when the session resets the run.
func WithBounds(b sim.Bounds) Option { return func(s *Session) { s.bounds = b } }

// New wraps engine. The engine must not be used directly afterwards.
func New(engine *sim.Simulator, opts ...Option) *Session {
	s := &Session{
		sim:    engine,
		bounds: sim.DefaultBounds,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Step advances the run by one tick and delivers everything it produced.
// It is a no-op while paused or after the run has ended.
func (s *Session) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.sim.Ended() {
		return nil
	}
	start := time.Now()
	s.applyScenario(s.sim.TimeSec() + 1)
	s.sim.Tick()
	s.flush(true)
	if s.metrics != nil {
		s.metrics.ObserveTick(time.Since(start))
	}
	return nil
}

// Run ticks every interval until ctx is done or the run ends.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	s.log.Info("session starting", "interval", interval, "run_id", s.RunID())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("session stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				return nil
			}
			if s.Ended() {
				s.log.Info("run ended", "run_id", s.RunID())
				return nil
			}
		}
	}
}

// RunFast ticks without pacing until the run ends, ctx is done or maxTicks
// ticks have run (0 means no limit). It returns the number of ticks.
func (s *Session) RunFast(ctx context.Context, maxTicks int) (int, error) {
	n := 0
	for !s.Ended() && (maxTicks <= 0 || n < maxTicks) {
		if err := s.Step(ctx); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Do runs fn against the engine under the session lock, then delivers any
// events fn produced.
func (s *Session) Do(fn func(*sim.Simulator)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.sim)
	s.flush(false)
}

// Pause stops Step from advancing the run.
func (s *Session) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume lets Step advance the run again.
func (s *Session) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Paused reports whether the session is paused.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Ended reports whether the current run has ended.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Ended()
}

// RunID returns the current run identifier.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.RunID()
}

// Snapshot returns the current UI state.
func (s *Session) Snapshot() sim.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Snapshot()
}

// LastState returns the most recent state row delivered to the sink.
func (s *Session) LastState() telemetry.StateRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Reset starts a new run on the session's bounds.
func (s *Session) Reset(opts ...sim.ResetOption) {
	s.Do(func(e *sim.Simulator) { e.Reset(s.bounds, opts...) })
}

// Execute runs one command, returning the engine result. Host commands
// (pause, resume, reset) are accepted here as well.
func (s *Session) Execute(c Command) (sim.Result, error) {
	switch c.Action {
	case "pause":
		s.Pause()
		return sim.Result{OK: true}, nil
	case "resume":
		s.Resume()
		return sim.Result{OK: true}, nil
	case "reset":
		opts, err := resetOptions(c)
		if err != nil {
			return sim.Result{}, err
		}
		s.Reset(opts...)
		return sim.Result{OK: true}, nil
	}
	var r sim.Result
	var err error
	s.Do(func(e *sim.Simulator) { r, err = apply(e, c) })
	return r, err
}

// Exec parses and runs a command line and returns a one-line reply. It
// serves as the TUI command handler.
func (s *Session) Exec(line string) string {
	c, err := ParseCommand(line)
	if err != nil {
		return err.Error()
	}
	r, err := s.Execute(c)
	if err != nil {
		return err.Error()
	}
	return describe(c, r)
}

// resetOptions parses "reset [SEED] [PRESET]".
func resetOptions(c Command) ([]sim.ResetOption, error) {
	var opts []sim.ResetOption
	for _, a := range c.Args {
		if n, err := strconv.ParseUint(a, 10, 32); err == nil {
			opts = append(opts, sim.WithSeed(uint32(n)))
			continue
		}
		p, err := sim.ParsePreset(a)
		if err != nil {
			return nil, fmt.Errorf("%w: reset [SEED] [PRESET]: %v", ErrUsage, err)
		}
		opts = append(opts, sim.WithPreset(p))
	}
	return opts, nil
}

// applyScenario issues the steps due at sec. Rejections are logged and the
// scenario carries on.
func (s *Session) applyScenario(sec int) {
	if s.scenario == nil {
		return
	}
	for _, st := range s.scenario.Due(sec) {
		c, err := ParseCommand(st.Line())
		if err != nil {
			s.log.Warn("scenario step skipped", "at", st.At, "error", err)
			continue
		}
		var r sim.Result
		switch c.Action {
		case "pause", "resume", "reset":
			err = fmt.Errorf("%w: %s is not allowed in scenarios", ErrUsage, c.Action)
		default:
			r, err = apply(s.sim, c)
		}
		switch {
		case err != nil:
			s.log.Warn("scenario step failed", "at", st.At, "step", st.Line(), "error", err)
		case !r.OK:
			s.log.Info("scenario step rejected", "at", st.At, "step", st.Line(), "reason", r.Reason)
		default:
			s.log.Debug("scenario step applied", "at", st.At, "step", st.Line())
		}
	}
}

// flush drains engine events to the sink. After a tick it also applies
// rewards, writes the state row and persists a finished run once.
func (s *Session) flush(ticked bool) {
	ts := s.now()
	runID := s.sim.RunID()
	events := s.sim.DrainEvents()

	if s.rewards != nil && !ticked {
		s.unrewarded = append(s.unrewarded, events...)
	}
	if ticked && s.rewards != nil {
		seen := append(s.unrewarded, events...)
		s.unrewarded = nil
		for _, r := range s.rewards.Observe(seen, s.sim.TickEvent()) {
			s.sim.ApplyReward(r)
		}
		// Rewards may not emit events, but drain again so nothing is stranded.
		events = append(events, s.sim.DrainEvents()...)
	}

	if len(events) > 0 {
		rows := make([]telemetry.EventRow, 0, len(events))
		for _, e := range events {
			rows = append(rows, telemetry.EventFromSim(runID, e, ts))
		}
		s.writeEvents(rows)
		if s.metrics != nil {
			for _, r := range rows {
				s.metrics.ObserveEvent(r)
			}
		}
	}

	if ticked {
		row := telemetry.StateFromSnapshot(s.sim.Snapshot(), ts)
		s.last = row
		if s.out != nil {
			if err := s.out.WriteState(row); err != nil {
				s.log.Warn("state write failed", "run_id", runID, "time_sec", row.TimeSec, "error", err)
			}
		}
		if s.metrics != nil {
			s.metrics.ObserveState(row)
		}
	}
	s.persistResult()
}

func (s *Session) writeEvents(rows []telemetry.EventRow) {
	var err error
	switch w := s.out.(type) {
	case nil:
		return
	case batchEventWriter:
		err = w.WriteEvents(rows)
	case sink.EventWriter:
		for _, r := range rows {
			if err = w.WriteEvent(r); err != nil {
				break
			}
		}
	}
	if err != nil {
		s.log.Warn("event write failed", "count", len(rows), "error", err)
	}
}

// persistResult records the finished run exactly once per run ID.
func (s *Session) persistResult() {
	res, ok := s.sim.LastRun()
	if !ok || res.RunID == s.persisted {
		return
	}
	s.persisted = res.RunID
	row := telemetry.RunFromResult(res)
	if s.board != nil {
		if _, err := s.board.Add(scoreboard.EntryFromResult(res)); err != nil {
			s.log.Warn("scoreboard update failed", "run_id", res.RunID, "error", err)
		}
	}
	if rw, ok := s.out.(sink.RunWriter); ok {
		if err := rw.WriteRun(row); err != nil {
			s.log.Warn("run write failed", "run_id", res.RunID, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveRun(row)
	}
	s.log.Info("run finished", "run_id", res.RunID, "reason", res.EndReason, "score", res.FinalScore,
		"duration_sec", res.DurationSec)
	for _, l := range strings.Split(res.Summary(), "\n") {
		if l != "" {
			s.log.Debug("summary", "line", l)
		}
	}
}
