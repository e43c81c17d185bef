package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tutela/internal/platform/metrics"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/sentinel"
)

// Mirror receives a copy of every durably appended event. Mirror delivery is
// best-effort; the store remains the authoritative trail.
type Mirror interface {
	Publish(event Event)
}

const (
	appendAttempts = 3
	appendBackoff  = 50 * time.Millisecond
)

// Recorder is the single write path into the audit trail. Every mutating
// operation in the engine appends exactly one event through it; a failed
// append fails the enclosing operation.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	mirror  Mirror
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithMirror attaches a best-effort event mirror (e.g. the Kafka publisher).
func WithMirror(m Mirror) Option {
	return func(r *Recorder) { r.mirror = m }
}

// WithMetrics attaches the engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func NewRecorder(store Store, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append assigns the event an immutable ID and timestamp and persists it.
// Transient store failures are retried before the append is reported failed:
// an unaudited mutation is not an acceptable degraded mode, so callers treat
// any error here as a failure of their whole operation.
func (r *Recorder) Append(ctx context.Context, event Event) (Event, error) {
	if event.Action == "" {
		return Event{}, dErrors.New(dErrors.CodeBadRequest, "audit event requires an action")
	}
	if event.ID.IsNil() {
		event.ID = id.NewEventID()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now()
	}

	var err error
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		err = r.store.Append(ctx, event)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrUnavailable) || attempt == appendAttempts {
			break
		}
		if r.metrics != nil {
			r.metrics.AuditAppendRetries.Inc()
		}
		select {
		case <-ctx.Done():
			return Event{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "audit append aborted")
		case <-time.After(appendBackoff * time.Duration(attempt)):
		}
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"subject_id", event.SubjectID,
			"error", err,
		)
		return Event{}, dErrors.Wrap(err, dErrors.CodeAuditWriteFailed, "audit event not durable")
	}

	if r.metrics != nil {
		r.metrics.AuditAppends.Inc()
	}
	if r.mirror != nil {
		r.mirror.Publish(event)
	}
	return event, nil
}

// Query returns matching events, newest first.
func (r *Recorder) Query(ctx context.Context, filter Filter) ([]Event, error) {
	events, err := r.store.Query(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail query failed")
	}
	return events, nil
}

// PurgeSubject trims a subject's trail to the legally retained minimum.
// Called only by the deletion sweeper, inside the purge transaction.
func (r *Recorder) PurgeSubject(ctx context.Context, subjectID id.SubjectID) error {
	if err := r.store.PurgeSubject(ctx, subjectID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail purge failed")
	}
	return nil
}
