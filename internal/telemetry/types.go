// Row types written by sinks, with greptime column roles noted per field.
package telemetry

import (
	"os"
	"time"
)

// StateRow is one per-tick sample of a run.
type StateRow struct {
	RunID       string    `json:"run_id"`       // TAG
	Preset      string    `json:"preset"`       // TAG
	TimeSec     int       `json:"time_sec"`     // FIELD
	Budget      float64   `json:"budget"`       // FIELD
	Score       float64   `json:"score"`        // FIELD
	Rating      float64   `json:"rating"`       // FIELD
	Debt        float64   `json:"debt"`         // FIELD
	Coverage    float64   `json:"coverage"`     // FIELD
	Capacity    float64   `json:"capacity"`     // FIELD
	CapacityMax float64   `json:"capacity_max"` // FIELD
	Backlog     int       `json:"backlog"`      // FIELD
	Traffic     float64   `json:"traffic"`      // FIELD
	FailureRate float64   `json:"failure_rate"` // FIELD
	P95Ms       float64   `json:"p95_ms"`       // FIELD
	Security    float64   `json:"security"`     // FIELD
	Privacy     float64   `json:"privacy"`      // FIELD
	RegPressure float64   `json:"reg_pressure"` // FIELD
	Ended       bool      `json:"ended"`        // FIELD
	Timestamp   time.Time `json:"ts"`           // TIME INDEX
}

// EventRow is one drained engine event.
type EventRow struct {
	RunID     string    `json:"run_id"`     // TAG
	Type      string    `json:"event_type"` // TAG
	Category  string    `json:"category,omitempty"`
	AtSec     int       `json:"at_sec"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"` // JSON
	Timestamp time.Time `json:"ts"`
}

// RunRow is the final record of a finished run.
type RunRow struct {
	RunID       string    `json:"run_id"` // TAG
	Preset      string    `json:"preset"` // TAG
	Seed        uint32    `json:"seed"`
	EndReason   string    `json:"end_reason"`
	DurationSec int       `json:"duration_sec"`
	RawScore    float64   `json:"raw_score"`
	Multiplier  float64   `json:"multiplier"`
	FinalScore  int       `json:"final_score"`
	Rating      float64   `json:"rating"`
	Debt        float64   `json:"debt"`
	Incidents   int       `json:"incidents"`
	Timestamp   time.Time `json:"ts"`
}

func envOr(key, def string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	return def
}

// Table names used when writing to GreptimeDB. Each can be overridden
// through its environment variable.
var (
	StateTableName  = envOr("GREPTIMEDB_TABLE", "archops_state")
	EventsTableName = envOr("GREPTIMEDB_EVENTS_TABLE", "archops_events")
	RunsTableName   = envOr("GREPTIMEDB_RUNS_TABLE", "archops_runs")
)

func (StateRow) TableName() string { return StateTableName }
func (EventRow) TableName() string { return EventsTableName }
func (RunRow) TableName() string   { return RunsTableName }
