package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"archops-sim/internal/telemetry"
)

const kafkaTimeout = 5 * time.Second

// Message kinds carried in the "kind" header.
const (
	KafkaKindState = "state"
	KafkaKindEvent = "event"
	KafkaKindRun   = "run"
)

// kafkaProducer abstracts kafka.Writer for testing.
type kafkaProducer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes rows as JSON messages keyed by run ID, so one
// run's stream stays on one partition in order.
type KafkaWriter struct {
	producer kafkaProducer
}

// NewKafkaWriter creates a writer publishing to topic on brokers.
func NewKafkaWriter(brokers []string, topic string) (*KafkaWriter, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers provided")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: no topic provided")
	}
	return &KafkaWriter{producer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}, nil
}

func kafkaMessage(kind, runID string, v any) (kafka.Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(runID),
		Value:   b,
		Headers: []kafka.Header{{Key: "kind", Value: []byte(kind)}},
	}, nil
}

func (w *KafkaWriter) publish(msgs ...kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), kafkaTimeout)
	defer cancel()
	if err := w.producer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// WriteState publishes a state row.
func (w *KafkaWriter) WriteState(row telemetry.StateRow) error {
	m, err := kafkaMessage(KafkaKindState, row.RunID, row)
	if err != nil {
		return err
	}
	return w.publish(m)
}

// WriteEvent publishes one event row.
func (w *KafkaWriter) WriteEvent(row telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents publishes event rows in a single batch.
func (w *KafkaWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(rows))
	for _, r := range rows {
		m, err := kafkaMessage(KafkaKindEvent, r.RunID, r)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	return w.publish(msgs...)
}

// WriteRun publishes the final run record.
func (w *KafkaWriter) WriteRun(row telemetry.RunRow) error {
	m, err := kafkaMessage(KafkaKindRun, row.RunID, row)
	if err != nil {
		return err
	}
	return w.publish(m)
}

// Close flushes pending messages and closes the producer.
func (w *KafkaWriter) Close() error { return w.producer.Close() }
