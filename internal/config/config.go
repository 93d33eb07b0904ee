// YAML/TOML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"archops-sim/internal/sim"
)

// Bounds is the drawing area handed to the engine on reset.
type Bounds struct {
	Width  float64 `yaml:"width" toml:"width"`
	Height float64 `yaml:"height" toml:"height"`
}

// Greptime selects the GreptimeDB sink.
type Greptime struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Database string `yaml:"database" toml:"database"`
}

// Kafka selects the event-stream sink.
type Kafka struct {
	Brokers []string `yaml:"brokers" toml:"brokers"`
	Topic   string   `yaml:"topic" toml:"topic"`
}

// Outputs lists where ticks and events are written.
type Outputs struct {
	PrintOnly bool     `yaml:"print_only" toml:"print_only"`
	TUI       bool     `yaml:"tui" toml:"tui"`
	LogFile   string   `yaml:"log_file" toml:"log_file"`
	Greptime  Greptime `yaml:"greptime" toml:"greptime"`
	Kafka     Kafka    `yaml:"kafka" toml:"kafka"`
}

// Unlocks enables the gated shop items.
type Unlocks struct {
	Booster bool `yaml:"booster" toml:"booster"`
	Shield  bool `yaml:"shield" toml:"shield"`
}

// SimulationConfig is the root configuration for a run.
type SimulationConfig struct {
	Seed           uint32        `yaml:"seed" toml:"seed"`
	Preset         string        `yaml:"preset" toml:"preset"`
	TickInterval   time.Duration `yaml:"tick_interval" toml:"tick_interval"`
	Bounds         Bounds        `yaml:"bounds" toml:"bounds"`
	Scenario       string        `yaml:"scenario" toml:"scenario"`
	AdminAddr      string        `yaml:"admin_addr" toml:"admin_addr"`
	ScoreboardPath string        `yaml:"scoreboard_path" toml:"scoreboard_path"`
	LogLevel       string        `yaml:"log_level" toml:"log_level"`
	Unlocks        Unlocks       `yaml:"unlocks" toml:"unlocks"`
	Outputs        Outputs       `yaml:"outputs" toml:"outputs"`
}

// Default returns the configuration used when no file is given.
func Default() *SimulationConfig {
	return &SimulationConfig{
		Seed:         12345,
		Preset:       string(sim.PresetJuniorMid),
		TickInterval: time.Second,
		Bounds:       Bounds{Width: sim.DefaultBounds.Width, Height: sim.DefaultBounds.Height},
		AdminAddr:    ":8080",
		LogLevel:     "info",
		Outputs:      Outputs{Greptime: Greptime{Database: "public"}, Kafka: Kafka{Topic: "archops.events"}},
	}
}

// Load reads a YAML or TOML file, validates it against the CUE schema and
// applies environment overrides. An empty schemaPath uses the built-in schema.
func Load(configPath, schemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, schemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}
	cfg := Default()
	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode toml config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode yaml config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// ApplyEnv overrides fields from GREPTIMEDB_ENDPOINT, GREPTIMEDB_DATABASE,
// KAFKA_BROKERS, KAFKA_TOPIC and TICK_INTERVAL.
func (c *SimulationConfig) ApplyEnv() error {
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Outputs.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Outputs.Greptime.Database = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Outputs.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Outputs.Kafka.Topic = v
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}
	return nil
}

// Validate checks the values the schema cannot express.
func (c *SimulationConfig) Validate() error {
	if _, err := sim.ParsePreset(c.Preset); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.Bounds.Width <= 0 || c.Bounds.Height <= 0 {
		return fmt.Errorf("bounds must be positive, got %vx%v", c.Bounds.Width, c.Bounds.Height)
	}
	return nil
}

// PresetValue returns the parsed difficulty preset.
func (c *SimulationConfig) PresetValue() sim.Preset {
	if p, err := sim.ParsePreset(c.Preset); err == nil {
		return p
	}
	return sim.PresetJuniorMid
}

// SimBounds returns the configured bounds in engine form.
func (c *SimulationConfig) SimBounds() sim.Bounds {
	return sim.Bounds{Width: c.Bounds.Width, Height: c.Bounds.Height}
}
