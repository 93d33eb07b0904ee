package sink

import (
	"os"

	"golang.org/x/term"

	"archops-sim/internal/config"
)

// NewStdoutWriter returns the colorized writer when STDOUT is a terminal
// and the JSON writer otherwise, so piped output stays machine-readable.
func NewStdoutWriter(cfg *config.SimulationConfig) StateWriter {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return NewColorStdoutWriter(cfg)
	}
	return NewJSONStdoutWriter()
}
