package sink

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"archops-sim/internal/telemetry"
)

const (
	defaultGreptimePort = 4001
	greptimeTimeout     = 5 * time.Second
)

// greptimeClient abstracts the ingester client for testing.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes state, event and run rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client     greptimeClient
	stateTable string
	eventTable string
	runTable   string
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and writes into database.
// Tables are created by the first write.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{
		client:     client,
		stateTable: telemetry.StateTableName,
		eventTable: telemetry.EventsTableName,
		runTable:   telemetry.RunsTableName,
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) write(name string, tbl *table.Table) error {
	ctx, cancel := context.WithTimeout(context.Background(), greptimeTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write %s: %w", name, err)
	}
	return nil
}

// WriteState inserts a single state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.StateRow) error {
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("preset", types.STRING)
	tbl.AddFieldColumn("time_sec", types.INT64)
	tbl.AddFieldColumn("budget", types.FLOAT64)
	tbl.AddFieldColumn("score", types.FLOAT64)
	tbl.AddFieldColumn("rating", types.FLOAT64)
	tbl.AddFieldColumn("debt", types.FLOAT64)
	tbl.AddFieldColumn("coverage", types.FLOAT64)
	tbl.AddFieldColumn("capacity", types.FLOAT64)
	tbl.AddFieldColumn("capacity_max", types.FLOAT64)
	tbl.AddFieldColumn("backlog", types.INT64)
	tbl.AddFieldColumn("traffic", types.FLOAT64)
	tbl.AddFieldColumn("failure_rate", types.FLOAT64)
	tbl.AddFieldColumn("p95_ms", types.FLOAT64)
	tbl.AddFieldColumn("security", types.FLOAT64)
	tbl.AddFieldColumn("privacy", types.FLOAT64)
	tbl.AddFieldColumn("reg_pressure", types.FLOAT64)
	tbl.AddFieldColumn("ended", types.BOOLEAN)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	if err := tbl.AddRow(
		row.RunID, row.Preset, int64(row.TimeSec), row.Budget, row.Score, row.Rating, row.Debt,
		row.Coverage, row.Capacity, row.CapacityMax, int64(row.Backlog), row.Traffic,
		row.FailureRate, row.P95Ms, row.Security, row.Privacy, row.RegPressure, row.Ended,
		row.Timestamp,
	); err != nil {
		return err
	}
	return w.write(w.stateTable, tbl)
}

// WriteEvent inserts a single event row.
func (w *GreptimeDBWriter) WriteEvent(row telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents inserts multiple event rows in one request. Detail is stored as JSON.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("event_type", types.STRING)
	tbl.AddFieldColumn("category", types.STRING)
	tbl.AddFieldColumn("at_sec", types.INT64)
	tbl.AddFieldColumn("message", types.STRING)
	tbl.AddFieldColumn("detail", types.JSON)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		detail := r.Detail
		if detail == "" {
			detail = "{}"
		}
		if err := tbl.AddRow(r.RunID, r.Type, r.Category, int64(r.AtSec), r.Message, detail, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.eventTable, tbl)
}

// WriteRun inserts the final run record.
func (w *GreptimeDBWriter) WriteRun(row telemetry.RunRow) error {
	tbl, err := table.New(w.runTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("preset", types.STRING)
	tbl.AddFieldColumn("seed", types.INT64)
	tbl.AddFieldColumn("end_reason", types.STRING)
	tbl.AddFieldColumn("duration_sec", types.INT64)
	tbl.AddFieldColumn("raw_score", types.FLOAT64)
	tbl.AddFieldColumn("multiplier", types.FLOAT64)
	tbl.AddFieldColumn("final_score", types.INT64)
	tbl.AddFieldColumn("rating", types.FLOAT64)
	tbl.AddFieldColumn("debt", types.FLOAT64)
	tbl.AddFieldColumn("incidents", types.INT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	if err := tbl.AddRow(
		row.RunID, row.Preset, int64(row.Seed), row.EndReason, int64(row.DurationSec), row.RawScore,
		row.Multiplier, int64(row.FinalScore), row.Rating, row.Debt, int64(row.Incidents), row.Timestamp,
	); err != nil {
		return err
	}
	return w.write(w.runTable, tbl)
}
