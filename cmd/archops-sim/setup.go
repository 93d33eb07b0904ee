package main

import (
	"fmt"
	"io"
	"log/slog"

	"archops-sim/internal/config"
	"archops-sim/internal/logging"
	"archops-sim/internal/metrics"
	"archops-sim/internal/scenario"
	"archops-sim/internal/scoreboard"
	"archops-sim/internal/session"
	"archops-sim/internal/sim"
	"archops-sim/internal/sink"
)

// openBoard opens the SQLite scoreboard at path, or an in-memory one when
// path is empty.
func openBoard(path string) (*scoreboard.Board, func() error, error) {
	if path == "" {
		return scoreboard.New(scoreboard.NewMemoryKV()), func() error { return nil }, nil
	}
	kv, err := scoreboard.OpenSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open scoreboard: %w", err)
	}
	return scoreboard.New(kv), kv.Close, nil
}

func loadScenario(name string) (*scenario.Scenario, error) {
	if name == "" {
		return nil, nil
	}
	sc, err := scenario.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", name, err)
	}
	return sc, nil
}

// resetOptions translates the configured seed and preset. A zero seed
// lets the engine derive one from the clock.
func resetOptions(cfg *config.SimulationConfig) []sim.ResetOption {
	opts := []sim.ResetOption{sim.WithPreset(cfg.PresetValue())}
	if cfg.Seed != 0 {
		opts = append(opts, sim.WithSeed(cfg.Seed))
	}
	return opts
}

type runDeps struct {
	out     sink.StateWriter
	board   *scoreboard.Board
	metrics *metrics.Metrics
	log     *slog.Logger
	// pinPreset keeps cfg.Preset even when the scenario names one.
	pinPreset bool
}

// newSession builds the engine for cfg and wraps it in a session.
func newSession(cfg *config.SimulationConfig, d runDeps) (*session.Session, error) {
	sc, err := loadScenario(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	if sc != nil && sc.Preset != "" && !d.pinPreset {
		cfg.Preset = sc.Preset
	}

	engine := sim.New()
	engine.SetShopUnlocks(cfg.Unlocks.Booster, cfg.Unlocks.Shield)
	engine.Reset(cfg.SimBounds(), resetOptions(cfg)...)

	opts := []session.Option{
		session.WithBounds(cfg.SimBounds()),
		session.WithRewards(session.NewMilestones()),
	}
	if d.log != nil {
		opts = append(opts, session.WithLogger(d.log))
	}
	if d.out != nil {
		opts = append(opts, session.WithSink(d.out))
	}
	if d.board != nil {
		opts = append(opts, session.WithScoreboard(d.board))
	}
	if d.metrics != nil {
		opts = append(opts, session.WithMetrics(d.metrics))
	}
	if sc != nil {
		opts = append(opts, session.WithScenario(sc))
	}
	return session.New(engine, opts...), nil
}

func newLogger(cfg *config.SimulationConfig, w io.Writer) (*slog.Logger, error) {
	return logging.NewLevel(cfg.LogLevel, w)
}
