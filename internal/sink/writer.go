// Package sink holds the outputs a session writes ticks, events and run results to.
package sink

import (
	"errors"
	"io"

	"archops-sim/internal/telemetry"
)

// StateWriter receives one state row per tick. Every sink implements it.
type StateWriter interface {
	WriteState(row telemetry.StateRow) error
}

// EventWriter receives drained engine events.
type EventWriter interface {
	WriteEvent(row telemetry.EventRow) error
}

// batchEventWriter is implemented by sinks that ship several events at once.
type batchEventWriter interface {
	WriteEvents(rows []telemetry.EventRow) error
}

// RunWriter receives the final record of a run.
type RunWriter interface {
	WriteRun(row telemetry.RunRow) error
}

// CommandHandler executes a typed command line and returns a reply line.
type CommandHandler func(line string) string

type commandSink interface {
	SetCommandHandler(CommandHandler)
}

type adminSink interface {
	SetAdminStatus(active bool)
}

// MultiWriter fans rows out to several sinks. A failing sink does not
// stop the others; the errors are joined.
type MultiWriter struct {
	writers []StateWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...StateWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Add appends a sink.
func (mw *MultiWriter) Add(w StateWriter) { mw.writers = append(mw.writers, w) }

// Len returns the number of sinks.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// WriteState sends a state row to every sink.
func (mw *MultiWriter) WriteState(row telemetry.StateRow) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.WriteState(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteEvent sends one event to every event-capable sink.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	return mw.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents sends events to every event-capable sink, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		ew, ok := w.(EventWriter)
		if !ok {
			continue
		}
		for _, r := range rows {
			if err := ew.WriteEvent(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WriteRun sends the run record to every run-capable sink.
func (mw *MultiWriter) WriteRun(row telemetry.RunRow) error {
	var errs []error
	for _, w := range mw.writers {
		if rw, ok := w.(RunWriter); ok {
			if err := rw.WriteRun(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetCommandHandler forwards h to sinks that accept typed commands.
func (mw *MultiWriter) SetCommandHandler(h CommandHandler) {
	for _, w := range mw.writers {
		if cs, ok := w.(commandSink); ok {
			cs.SetCommandHandler(h)
		}
	}
}

// SetAdminStatus forwards the admin server state to sinks that show it.
func (mw *MultiWriter) SetAdminStatus(active bool) {
	for _, w := range mw.writers {
		if as, ok := w.(adminSink); ok {
			as.SetAdminStatus(active)
		}
	}
}

// Close closes every sink that holds resources.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
