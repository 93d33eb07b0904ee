package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"archops-sim/internal/config"
	"archops-sim/internal/scoreboard"
	"archops-sim/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Outputs.PrintOnly = true
	cfg.Outputs.Greptime.Endpoint = "db:4001"
	cfg.Outputs.Kafka.Brokers = []string{"kafka:9092"}
	mw, err := newWriters(cfg, true)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer mw.Close()
	if mw.Len() != 1 {
		t.Fatalf("expected only the stdout sink, got %d sinks", mw.Len())
	}
}

func TestNewWritersHeadlessWithoutOutputs(t *testing.T) {
	mw, err := newWriters(config.Default(), false)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer mw.Close()
	if mw.Len() != 0 {
		t.Fatalf("expected no sinks, got %d", mw.Len())
	}
}

func TestNewWritersKafka(t *testing.T) {
	cfg := config.Default()
	cfg.Outputs.Kafka.Brokers = []string{"localhost:9092"}
	mw, err := newWriters(cfg, true)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer mw.Close()
	if mw.Len() != 2 {
		t.Fatalf("expected stdout and kafka sinks, got %d", mw.Len())
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.log")
	cfg := config.Default()
	cfg.Outputs.LogFile = path
	mw, err := newWriters(cfg, false)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if mw.Len() != 1 {
		t.Fatalf("expected the file sink only, got %d", mw.Len())
	}
	row := telemetry.StateRow{RunID: "r1", TimeSec: 1, Budget: 900, Timestamp: time.Now()}
	if err := mw.WriteState(row); err != nil {
		t.Fatalf("write state failed: %v", err)
	}
	if err := mw.WriteRun(telemetry.RunRow{RunID: "r1", FinalScore: 10}); err != nil {
		t.Fatalf("write run failed: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	for _, p := range []string{path, path + ".runs"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s failed: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestNewReplayWriterSkipsLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.log")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Outputs.LogFile = path
	cfg.Outputs.TUI = true
	mw, err := newReplayWriter(cfg, true)
	if err != nil {
		t.Fatalf("newReplayWriter returned error: %v", err)
	}
	defer mw.Close()
	if mw.Len() != 1 {
		t.Fatalf("expected the stdout sink only, got %d", mw.Len())
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "{}\n" {
		t.Fatalf("input log changed: %q, %v", b, err)
	}
	if !cfg.Outputs.TUI || cfg.Outputs.LogFile != path {
		t.Fatalf("caller config was modified")
	}
}

func TestResetOptionsZeroSeed(t *testing.T) {
	cfg := config.Default()
	if got := len(resetOptions(cfg)); got != 2 {
		t.Fatalf("expected seed and preset options, got %d", got)
	}
	cfg.Seed = 0
	if got := len(resetOptions(cfg)); got != 1 {
		t.Fatalf("expected preset option only, got %d", got)
	}
}

func TestNewSessionScenarioPreset(t *testing.T) {
	cfg := config.Default()
	cfg.Scenario = "security-hardening"
	sess, err := newSession(cfg, runDeps{})
	if err != nil {
		t.Fatalf("newSession returned error: %v", err)
	}
	if sess.RunID() == "" {
		t.Fatalf("expected a run id")
	}

	cfg = config.Default()
	cfg.Scenario = "no-such-scenario"
	if _, err := newSession(cfg, runDeps{}); err == nil {
		t.Fatalf("expected unknown scenario error")
	}
}

func TestOpenBoardSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	board, closeBoard, err := openBoard(path)
	if err != nil {
		t.Fatalf("openBoard returned error: %v", err)
	}
	if _, err := board.Add(scoreboard.Entry{RunID: "a", FinalScore: 7}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := closeBoard(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	board, closeBoard, err = openBoard(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer closeBoard()
	entries, err := board.List()
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 persisted entry, got %d (%v)", len(entries), err)
	}
}

func TestPrintEntriesTable(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	entries := []scoreboard.Entry{
		{RunID: "run-1", FinalScore: 900, DurationSec: 420, Preset: "SENIOR", EndReason: "SHIFT_COMPLETE", Rating: 4.2},
		{RunID: "run-2", FinalScore: 300, DurationSec: 120, Preset: "SENIOR", EndReason: "BUDGET_DEPLETED", Rating: 2.1},
	}
	if err := printEntries(cmd, entries); err != nil {
		t.Fatalf("printEntries returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[1], "1 ") || !strings.Contains(lines[1], "run-1") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}
