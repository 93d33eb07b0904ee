package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"archops-sim/internal/sink"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a state log file",
	Long:  "replay feeds state rows from a JSONL log back into GreptimeDB, Kafka or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		writer, err := newReplayWriter(cfg, replayPrintOnly)
		if err != nil {
			return err
		}
		defer writer.Close()
		n, err := sink.ReplayLogFile(replayInput, writer, replaySpeed)
		if err != nil {
			return fmt.Errorf("replay %s: %w", replayInput, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "replayed %d rows\n", n)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to state log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 disables pacing)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print state to STDOUT instead of writing to GreptimeDB and Kafka")
	replayCmd.MarkFlagRequired("input")
}
