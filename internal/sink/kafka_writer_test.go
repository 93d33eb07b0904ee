package sink

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"

	"archops-sim/internal/telemetry"
)

type fakeProducer struct {
	calls  int
	msgs   []kafka.Message
	closed bool
}

func (f *fakeProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.calls++
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaWriterKeysByRun(t *testing.T) {
	p := &fakeProducer{}
	w := &KafkaWriter{producer: p}
	if err := w.WriteState(telemetry.StateRow{RunID: "r1", TimeSec: 4}); err != nil {
		t.Fatalf("state: %v", err)
	}
	m := p.msgs[0]
	if string(m.Key) != "r1" {
		t.Fatalf("key = %s, want r1", m.Key)
	}
	if header(m, "kind") != KafkaKindState {
		t.Fatalf("kind = %s", header(m, "kind"))
	}
	var row telemetry.StateRow
	if err := json.Unmarshal(m.Value, &row); err != nil || row.TimeSec != 4 {
		t.Fatalf("payload %s (%v)", m.Value, err)
	}
}

func TestKafkaWriterBatchesEvents(t *testing.T) {
	p := &fakeProducer{}
	w := &KafkaWriter{producer: p}
	rows := []telemetry.EventRow{{RunID: "r", Type: "a"}, {RunID: "r", Type: "b"}, {RunID: "r", Type: "c"}}
	if err := w.WriteEvents(rows); err != nil {
		t.Fatalf("events: %v", err)
	}
	if p.calls != 1 || len(p.msgs) != 3 {
		t.Fatalf("calls=%d msgs=%d, want one batch of 3", p.calls, len(p.msgs))
	}
	if err := w.WriteEvents(nil); err != nil || p.calls != 1 {
		t.Fatalf("empty batch should not publish")
	}
	if err := w.WriteRun(telemetry.RunRow{RunID: "r"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if header(p.msgs[3], "kind") != KafkaKindRun {
		t.Fatalf("run kind = %s", header(p.msgs[3], "kind"))
	}
	if err := w.Close(); err != nil || !p.closed {
		t.Fatalf("close: %v", err)
	}
}

func TestNewKafkaWriterValidates(t *testing.T) {
	if _, err := NewKafkaWriter(nil, "t"); err == nil {
		t.Fatalf("expected error for no brokers")
	}
	if _, err := NewKafkaWriter([]string{"localhost:9092"}, ""); err == nil {
		t.Fatalf("expected error for no topic")
	}
}
