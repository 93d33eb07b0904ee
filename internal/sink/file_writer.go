package sink

import (
	"encoding/json"
	"fmt"
	"os"

	"archops-sim/internal/telemetry"
)

// FileWriter writes state, event and run rows to JSONL files.
type FileWriter struct {
	stateFile *os.File
	eventFile *os.File
	runFile   *os.File
	stateEnc  *json.Encoder
	eventEnc  *json.Encoder
	runEnc    *json.Encoder
}

// NewFileWriter creates a FileWriter. eventsPath or runsPath may be empty to skip those logs.
func NewFileWriter(statePath, eventsPath, runsPath string) (*FileWriter, error) {
	sf, err := os.Create(statePath)
	if err != nil {
		return nil, fmt.Errorf("create state log: %w", err)
	}
	fw := &FileWriter{stateFile: sf, stateEnc: json.NewEncoder(sf)}
	if eventsPath != "" {
		ef, err := os.Create(eventsPath)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("create event log: %w", err)
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	if runsPath != "" {
		rf, err := os.OpenFile(runsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("open run log: %w", err)
		}
		fw.runFile = rf
		fw.runEnc = json.NewEncoder(rf)
	}
	return fw, nil
}

// NewFileWriterFromBase derives the three paths from one log file path:
// base for state rows, base.events and base.runs.
func NewFileWriterFromBase(base string) (*FileWriter, error) {
	return NewFileWriter(base, base+".events", base+".runs")
}

// WriteState logs a single state row.
func (f *FileWriter) WriteState(row telemetry.StateRow) error {
	return f.stateEnc.Encode(row)
}

// WriteEvent logs a single event row, if enabled.
func (f *FileWriter) WriteEvent(row telemetry.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(row)
}

// WriteEvents logs multiple event rows.
func (f *FileWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		if err := f.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteRun appends a run record, if enabled.
func (f *FileWriter) WriteRun(row telemetry.RunRow) error {
	if f.runEnc == nil {
		return nil
	}
	return f.runEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range []*os.File{f.stateFile, f.eventFile, f.runFile} {
		if file == nil {
			continue
		}
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
