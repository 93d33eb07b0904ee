package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"archops-sim/internal/scoreboard"
)

var scoreboardJSON bool

var scoreboardCmd = &cobra.Command{
	Use:   "scoreboard",
	Short: "Inspect the persistent scoreboard",
}

var scoreboardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ranked runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		board, closeBoard, err := configuredBoard()
		if err != nil {
			return err
		}
		defer closeBoard()
		entries, err := board.List()
		if err != nil {
			return err
		}
		return printEntries(cmd, entries)
	},
}

var scoreboardClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every scoreboard entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		board, closeBoard, err := configuredBoard()
		if err != nil {
			return err
		}
		defer closeBoard()
		if err := board.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "scoreboard cleared")
		return nil
	},
}

func configuredBoard() (*scoreboard.Board, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.ScoreboardPath == "" {
		return nil, nil, errors.New("no scoreboard_path configured")
	}
	return openBoard(cfg.ScoreboardPath)
}

func printEntries(cmd *cobra.Command, entries []scoreboard.Entry) error {
	out := cmd.OutOrStdout()
	if scoreboardJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tDURATION\tPRESET\tEND\tRATING\tDEBT\tRUN")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%ds\t%s\t%s\t%.2f\t%.0f\t%s\n",
			i+1, e.FinalScore, e.DurationSec, e.Preset, e.EndReason, e.Rating, e.Debt, e.RunID)
	}
	return tw.Flush()
}

func init() {
	scoreboardListCmd.Flags().BoolVar(&scoreboardJSON, "json", false, "Print entries as JSON")
	scoreboardCmd.AddCommand(scoreboardListCmd)
	scoreboardCmd.AddCommand(scoreboardClearCmd)
}
