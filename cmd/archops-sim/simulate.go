package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"archops-sim/internal/admin"
	"archops-sim/internal/logging"
	"archops-sim/internal/metrics"
	"archops-sim/internal/session"
)

var (
	simFlags     runFlags
	simPrintOnly bool
	simTUI       bool
	simTick      time.Duration
	simLogFile   string
	simAdminAddr string
	simAccessLog bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time architecture simulator",
	Long:  "simulate ticks a run once per interval, streams state and events to the configured sinks and serves the admin API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := simFlags.apply(cmd, cfg); err != nil {
			return err
		}
		if cmd.Flags().Changed("print-only") {
			cfg.Outputs.PrintOnly = simPrintOnly
		}
		if cmd.Flags().Changed("tui") {
			cfg.Outputs.TUI = simTUI
		}
		if cmd.Flags().Changed("tick") {
			cfg.TickInterval = simTick
		}
		if cmd.Flags().Changed("log-file") {
			cfg.Outputs.LogFile = simLogFile
		}
		if cmd.Flags().Changed("admin-addr") {
			cfg.AdminAddr = simAdminAddr
		}

		// The TUI owns the terminal, so logs go next to the log file or nowhere.
		var logOut io.Writer = os.Stderr
		if cfg.Outputs.TUI {
			logOut = io.Discard
			if cfg.Outputs.LogFile != "" {
				f, err := os.OpenFile(cfg.Outputs.LogFile+".log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}
		}
		logger, err := newLogger(cfg, logOut)
		if err != nil {
			return err
		}

		board, closeBoard, err := openBoard(cfg.ScoreboardPath)
		if err != nil {
			return err
		}
		defer closeBoard()

		writer, err := newWriters(cfg, true)
		if err != nil {
			return err
		}
		defer writer.Close()

		m := metrics.New()
		sess, err := newSession(cfg, runDeps{
			out:       writer,
			board:     board,
			metrics:   m,
			log:       logger,
			pinPreset: cmd.Flags().Changed("preset"),
		})
		if err != nil {
			return err
		}
		writer.SetCommandHandler(sess.Exec)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		var srv *admin.Server
		if cfg.AdminAddr != "" {
			opts := []admin.Option{admin.WithMetrics(m), admin.WithScoreboard(board), admin.WithLogger(logger)}
			if simAccessLog {
				opts = append(opts, admin.WithAccessLog(logOut))
			}
			srv = admin.NewServer(sess, opts...)
			go func() {
				if err := srv.Start(cfg.AdminAddr); err != nil {
					logger.Error("admin server failed", "err", err)
				}
			}()
			writer.SetAdminStatus(true)
		}

		// Without a control surface nothing can start another run.
		controllable := srv != nil || cfg.Outputs.TUI
		for {
			if err := sess.Run(ctx, cfg.TickInterval); err != nil {
				return err
			}
			if !controllable || !waitForReset(ctx, sess, cfg.TickInterval) {
				break
			}
		}

		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("admin shutdown", "err", err)
			}
		}
		logger.Info("simulation stopped", "run_id", sess.RunID())
		return nil
	},
}

// waitForReset blocks after a run has ended until a reset starts a new run
// (true) or ctx is done (false).
func waitForReset(ctx context.Context, sess *session.Session, poll time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	logging.FromContext(ctx).Info("run ended; waiting for reset", "run_id", sess.RunID())
	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			if !sess.Ended() {
				return true
			}
		}
	}
}

func init() {
	simFlags.register(simulateCmd)
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print state to STDOUT instead of writing to GreptimeDB and Kafka")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render the run in an interactive terminal UI")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "Tick interval (e.g. 250ms, 1s)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Base path for JSONL state, event and run logs")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin API listen address; empty disables it")
	simulateCmd.Flags().BoolVar(&simAccessLog, "access-log", false, "Log admin HTTP requests")
}
