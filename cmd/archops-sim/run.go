package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"archops-sim/internal/sim"
)

var (
	runOpts     runFlags
	runMaxTicks int
	runJSON     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play one run headless as fast as possible",
	Long:  "run ticks a run without pacing until it ends, records it on the scoreboard and prints the result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := runOpts.apply(cmd, cfg); err != nil {
			return err
		}
		logger, err := newLogger(cfg, os.Stderr)
		if err != nil {
			return err
		}

		board, closeBoard, err := openBoard(cfg.ScoreboardPath)
		if err != nil {
			return err
		}
		defer closeBoard()

		writer, err := newWriters(cfg, false)
		if err != nil {
			return err
		}
		defer writer.Close()

		sess, err := newSession(cfg, runDeps{
			out:       writer,
			board:     board,
			log:       logger,
			pinPreset: cmd.Flags().Changed("preset"),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ticks, err := sess.RunFast(ctx, runMaxTicks)
		if err != nil {
			return err
		}

		var (
			res   sim.RunResult
			ended bool
		)
		sess.Do(func(e *sim.Simulator) { res, ended = e.LastRun() })
		if !ended {
			return fmt.Errorf("run %s did not end within %d ticks", sess.RunID(), ticks)
		}

		out := cmd.OutOrStdout()
		if runJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Fprintf(out, "run %s (%s, seed %d): %s after %ds\n", res.RunID, res.Preset, res.Seed, res.EndReason, res.DurationSec)
		fmt.Fprintf(out, "final score %d (raw %.0f x%.2f)\n", res.FinalScore, res.RawScore, res.Multiplier)
		if s := res.Summary(); s != "" {
			fmt.Fprintln(out, s)
		}
		return nil
	},
}

func init() {
	runOpts.register(runCmd)
	runCmd.Flags().IntVar(&runMaxTicks, "max-ticks", 3600, "Stop after this many ticks (0 means no limit)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run result as JSON")
}
