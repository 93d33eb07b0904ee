package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archops-sim/internal/config"
	"archops-sim/internal/sim"
)

var (
	configPath string
	schemaPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "archops-sim",
	Short:        "Architecture operations simulation toolkit",
	Long:         "ArchOps-Sim runs, replays and scores a tick-driven simulation of an app architecture under pressure.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to simulation configuration (YAML or TOML); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path to CUE schema file; built-in schema when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(scoreboardCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// loadConfig reads --config, or the defaults plus environment overrides
// when no file is given.
func loadConfig() (*config.SimulationConfig, error) {
	var cfg *config.SimulationConfig
	if configPath != "" {
		c, err := config.Load(configPath, schemaPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// runFlags are the run-selection flags shared by simulate and run.
type runFlags struct {
	seed     uint32
	preset   string
	scenario string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&f.seed, "seed", 0, "Generator seed (0 derives one from the clock)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Evaluation preset (JUNIOR_MID, SENIOR, STAFF, PRINCIPAL)")
	cmd.Flags().StringVar(&f.scenario, "scenario", "", "Built-in scenario name or scenario YAML path")
}

// apply copies the flags the user set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.SimulationConfig) error {
	if cmd.Flags().Changed("seed") {
		cfg.Seed = f.seed
	}
	if cmd.Flags().Changed("preset") {
		if _, err := sim.ParsePreset(f.preset); err != nil {
			return err
		}
		cfg.Preset = f.preset
	}
	if cmd.Flags().Changed("scenario") {
		cfg.Scenario = f.scenario
	}
	return nil
}
