package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"tutela/internal/platform/config"
)

// mirrorBuffer bounds the in-flight mirror queue. When the buffer is full
// events are dropped with a warning rather than blocking the write path;
// the store remains the authoritative trail.
const mirrorBuffer = 1024

// KafkaMirror publishes durably appended audit events to a Kafka topic for
// downstream consumers (SIEM, long-term archive). Delivery is asynchronous
// and best-effort by design.
type KafkaMirror struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	inbox  chan Event
	done   chan struct{}
}

// mirrorPayload is the JSON structure published to Kafka.
type mirrorPayload struct {
	ID            string `json:"id"`
	SubjectID     string `json:"subject_id,omitempty"`
	Action        string `json:"action"`
	ResourceType  string `json:"resource_type"`
	ResourceID    string `json:"resource_id,omitempty"`
	OldValue      string `json:"old_value,omitempty"`
	NewValue      string `json:"new_value,omitempty"`
	PerformedBy   string `json:"performed_by,omitempty"`
	Justification string `json:"justification,omitempty"`
	RecordedAt    string `json:"recorded_at"`
}

// NewKafkaMirror connects to the brokers and ensures the audit topic exists.
// Returns nil when no brokers are configured (mirroring off).
func NewKafkaMirror(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaMirror, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, -1, nil, cfg.Topic)
	if err == nil && resp.Err != nil {
		err = resp.Err
	}
	if err != nil {
		// Topic may already exist; anything else surfaces at publish time.
		logger.InfoContext(ctx, "audit topic create",
			"topic", cfg.Topic,
			"result", err.Error(),
		)
	}

	m := &KafkaMirror{
		client: client,
		topic:  cfg.Topic,
		logger: logger,
		inbox:  make(chan Event, mirrorBuffer),
		done:   make(chan struct{}),
	}
	go m.run()
	return m, nil
}

// Publish enqueues an event for mirroring. Never blocks the caller.
func (m *KafkaMirror) Publish(event Event) {
	select {
	case m.inbox <- event:
	default:
		m.logger.Warn("audit mirror buffer full, event dropped",
			"action", event.Action,
			"event_id", event.ID,
		)
	}
}

// run drains the inbox and produces to Kafka until Close.
func (m *KafkaMirror) run() {
	for event := range m.inbox {
		payload := mirrorPayload{
			ID:            event.ID.String(),
			Action:        string(event.Action),
			ResourceType:  event.ResourceType,
			ResourceID:    event.ResourceID,
			OldValue:      event.OldValue,
			NewValue:      event.NewValue,
			PerformedBy:   event.PerformedBy,
			Justification: event.Justification,
			RecordedAt:    event.RecordedAt.Format(time.RFC3339Nano),
		}
		if !event.SubjectID.IsNil() {
			payload.SubjectID = event.SubjectID.String()
		}
		value, err := json.Marshal(payload)
		if err != nil {
			m.logger.Error("marshal audit mirror payload", "error", err)
			continue
		}

		record := &kgo.Record{
			Topic: m.topic,
			Key:   []byte(payload.SubjectID),
			Value: value,
		}
		m.client.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
			if err != nil {
				m.logger.Error("audit mirror produce failed",
					"action", event.Action,
					"event_id", event.ID,
					"error", err,
				)
			}
		})
	}
	close(m.done)
}

// Close flushes pending records and releases the client.
func (m *KafkaMirror) Close() {
	close(m.inbox)
	<-m.done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.client.Flush(ctx)
	m.client.Close()
}

var _ Mirror = (*KafkaMirror)(nil)
