package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"archops-sim/internal/telemetry"
)

// JSONStdoutWriter prints every row as one JSON line.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) emit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteState outputs a state row in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.StateRow) error { return w.emit(row) }

// WriteEvent outputs an event row in JSON format.
func (w *JSONStdoutWriter) WriteEvent(row telemetry.EventRow) error { return w.emit(row) }

// WriteRun outputs the run record in JSON format.
func (w *JSONStdoutWriter) WriteRun(row telemetry.RunRow) error { return w.emit(row) }
