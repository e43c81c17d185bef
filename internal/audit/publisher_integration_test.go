//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"tutela/internal/audit"
	"tutela/internal/platform/config"
	id "tutela/pkg/domain"
	"tutela/pkg/testutil/containers"
)

func TestKafkaMirrorPublishesEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	kafka := containers.NewKafkaContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.KafkaConfig{
		Brokers: kafka.Brokers,
		Topic:   "tutela.audit.compliance.test",
	}

	mirror, err := audit.NewKafkaMirror(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, mirror)

	subjectID := id.NewSubjectID()
	event := audit.Event{
		ID:           id.NewEventID(),
		SubjectID:    subjectID,
		Action:       audit.ActionConsentRecorded,
		ResourceType: audit.ResourceConsent,
		NewValue:     "true",
		RecordedAt:   time.Now().UTC(),
	}
	mirror.Publish(event)
	mirror.Close()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kafka.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, subjectID.String(), string(records[0].Key))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &payload))
	require.Equal(t, event.ID.String(), payload["id"])
	require.Equal(t, string(audit.ActionConsentRecorded), payload["action"])
	require.Equal(t, "true", payload["new_value"])
}

func TestKafkaMirrorDisabledWithoutBrokers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mirror, err := audit.NewKafkaMirror(config.KafkaConfig{}, logger)
	require.NoError(t, err)
	require.Nil(t, mirror)
}
