// ColorStdoutWriter prints human-friendly, colorized run output to STDOUT.
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"archops-sim/internal/config"
	"archops-sim/internal/sim"
	"archops-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Seed:\t%d\n", w.cfg.Seed)
	fmt.Fprintf(tw, "Preset:\t%s\n", w.cfg.PresetValue())
	fmt.Fprintf(tw, "Tick Interval:\t%s\n", w.cfg.TickInterval)
	fmt.Fprintf(tw, "Scenario:\t%s\n", orNone(w.cfg.Scenario))
	fmt.Fprintf(tw, "Booster / Shield:\t%t / %t\n", w.cfg.Unlocks.Booster, w.cfg.Unlocks.Shield)
	tw.Flush()
	fmt.Fprintln(w.out)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// ratingColor maps a store rating to red, yellow or green.
func ratingColor(r float64) string {
	switch {
	case r < 2.5:
		return colorRed
	case r < 3.8:
		return colorYellow
	}
	return colorGreen
}

// WriteState outputs a single state row in colorized format.
func (w *ColorStdoutWriter) WriteState(row telemetry.StateRow) error {
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintln(w.out, formatState(row))
	return err
}

func formatState(row telemetry.StateRow) string {
	return fmt.Sprintf("%st+%-4d%s %sbudget=%.0f%s %srating=%.2f%s %sscore=%.0f%s %sdebt=%.0f%s %scov=%.1f%%%s %scap=%.1f/%.0f%s %sbacklog=%d%s %sp95=%.0fms%s",
		colorGray, row.TimeSec, colorReset,
		colorGreen, row.Budget, colorReset,
		ratingColor(row.Rating), row.Rating, colorReset,
		colorBlue, row.Score, colorReset,
		colorMagenta, row.Debt, colorReset,
		colorCyan, row.Coverage, colorReset,
		colorYellow, row.Capacity, row.CapacityMax, colorReset,
		colorRed, row.Backlog, colorReset,
		colorGray, row.P95Ms, colorReset,
	)
}

// WriteEvent prints an engine event. Incidents are highlighted.
func (w *ColorStdoutWriter) WriteEvent(row telemetry.EventRow) error {
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintln(w.out, formatEvent(row))
	return err
}

func formatEvent(row telemetry.EventRow) string {
	c := colorGray
	switch {
	case row.Category == sim.CategoryIncident:
		c = colorRed
	case row.Type == sim.EventRunEnd:
		c = colorMagenta
	case row.Type == sim.EventPurchase || row.Type == sim.EventTicketFixed:
		c = colorGreen
	}
	return fmt.Sprintf("%st+%-4d%s %s%-12s%s %s", colorGray, row.AtSec, colorReset, c, row.Type, colorReset, row.Message)
}

// WriteRun prints the final run record.
func (w *ColorStdoutWriter) WriteRun(row telemetry.RunRow) error {
	_, err := fmt.Fprintf(w.out, "%sRUN%s %s %s reason=%s score=%d (raw %.0f x%.2f) duration=%ds\n",
		colorMagenta, colorReset, row.RunID, row.Preset, row.EndReason, row.FinalScore, row.RawScore, row.Multiplier, row.DurationSec)
	return err
}
