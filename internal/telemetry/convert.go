package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"archops-sim/internal/sim"
)

// StateFromSnapshot flattens a snapshot into a state row stamped at ts.
func StateFromSnapshot(s sim.Snapshot, ts time.Time) StateRow {
	return StateRow{
		RunID:       s.RunID,
		Preset:      string(s.Preset),
		TimeSec:     s.TimeSec,
		Budget:      s.Budget,
		Score:       s.Score,
		Rating:      s.Rating,
		Debt:        s.Debt,
		Coverage:    s.Coverage.Pct,
		Capacity:    s.Capacity.Cur,
		CapacityMax: s.Capacity.Max,
		Backlog:     s.OpenTickets,
		Traffic:     s.Traffic,
		FailureRate: s.Tech.FailureRate,
		P95Ms:       s.Tech.P95Ms,
		Security:    s.Perception.Security,
		Privacy:     s.Perception.Privacy,
		RegPressure: s.RegPressure,
		Ended:       s.Ended,
		Timestamp:   ts.UTC(),
	}
}

// EventFromSim converts a drained engine event. The full payload is kept as JSON in Detail.
func EventFromSim(runID string, e sim.Event, ts time.Time) EventRow {
	row := EventRow{
		RunID:     runID,
		Type:      e.EventType(),
		AtSec:     e.At(),
		Timestamp: ts.UTC(),
	}
	switch ev := e.(type) {
	case sim.RunResetEvent:
		row.Message = fmt.Sprintf("run reset: seed %d, preset %s", ev.Seed, ev.Preset)
	case sim.RunEndEvent:
		row.Message = fmt.Sprintf("run ended: %s, score %.0f", ev.Reason, ev.Score)
	case sim.PurchaseEvent:
		row.Message = fmt.Sprintf("bought %s for %.0f", ev.Item, ev.Cost)
	case sim.TicketFixedEvent:
		row.Message = fmt.Sprintf("fixed %s (effort %d)", ev.Kind, ev.Effort)
	case sim.NoticeEvent:
		row.Category = ev.Category
		row.Message = ev.Message
	}
	if b, err := json.Marshal(e); err == nil {
		row.Detail = string(b)
	}
	return row
}

// RunFromResult converts a finished run.
func RunFromResult(r sim.RunResult) RunRow {
	return RunRow{
		RunID:       r.RunID,
		Preset:      string(r.Preset),
		Seed:        r.Seed,
		EndReason:   string(r.EndReason),
		DurationSec: r.DurationSec,
		RawScore:    r.RawScore,
		Multiplier:  r.Multiplier,
		FinalScore:  r.FinalScore,
		Rating:      r.Rating,
		Debt:        r.Debt,
		Incidents:   r.Incidents,
		Timestamp:   r.EndedAt.UTC(),
	}
}
