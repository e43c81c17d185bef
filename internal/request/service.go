package request

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tutela/internal/audit"
	"tutela/internal/platform/config"
	"tutela/internal/platform/metrics"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/sentinel"
	"tutela/pkg/platform/subjectlock"
	"tutela/pkg/platform/tx"
	"tutela/pkg/requestcontext"
)

// DeletionScheduler schedules an account purge when a deletion request is
// filed. Implemented by deletion.Scheduler; the interface lives here so the
// two packages stay acyclic.
type DeletionScheduler interface {
	Create(ctx context.Context, subjectID id.SubjectID, justification string) error
}

// Manager owns the data subject request lifecycle. Every filing and every
// transition commits together with its audit event.
type Manager struct {
	store     Store
	recorder  *audit.Recorder
	runner    tx.Runner
	locks     *subjectlock.Table
	scheduler DeletionScheduler
	policy    config.Policy
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewManager(
	store Store,
	recorder *audit.Recorder,
	runner tx.Runner,
	locks *subjectlock.Table,
	scheduler DeletionScheduler,
	policy config.Policy,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Manager {
	return &Manager{
		store:     store,
		recorder:  recorder,
		runner:    runner,
		locks:     locks,
		scheduler: scheduler,
		policy:    policy,
		logger:    logger,
		metrics:   m,
	}
}

// File registers a new request in status pending with its statutory response
// deadline. A deletion request additionally schedules the account purge; the
// request row, the schedule, and the audit event commit together.
func (m *Manager) File(ctx context.Context, subjectID id.SubjectID, reqType id.RequestType, description string) (Request, error) {
	if subjectID.IsNil() {
		return Request{}, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}

	unlock := m.locks.Lock(subjectID)
	defer unlock()

	now := requestcontext.Now(ctx)
	req := Request{
		ID:          id.NewRequestID(),
		SubjectID:   subjectID,
		Type:        reqType,
		Status:      id.StatusPending,
		Description: description,
		CreatedAt:   now,
		Deadline:    now.Add(m.policy.ResponseWindow),
	}

	err := m.runner.RunInTx(ctx, func(ctx context.Context) error {
		// Schedule first so an already-scheduled deletion fails before the
		// request row exists.
		if reqType == id.RequestTypeDeletion {
			if err := m.scheduler.Create(ctx, subjectID, description); err != nil {
				return err
			}
		}
		if err := m.store.Create(ctx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "create data request")
		}
		_, err := m.recorder.Append(ctx, audit.Event{
			SubjectID:    subjectID,
			Action:       audit.ActionRequestCreated,
			ResourceType: audit.ResourceRequest,
			ResourceID:   req.ID.String(),
			NewValue:     req.Status.String(),
			RecordedAt:   now,
		})
		return err
	})
	if err != nil {
		return Request{}, err
	}

	if m.metrics != nil {
		m.metrics.RequestsFiled.WithLabelValues(reqType.String()).Inc()
	}
	m.logger.InfoContext(ctx, "data subject request filed",
		"request_id", req.ID,
		"subject_id", subjectID,
		"request_type", reqType,
		"deadline", req.Deadline,
	)
	return req, nil
}

// Transition moves a request along the lifecycle graph. Illegal moves fail
// with CodeInvalidTransition and leave no trace: no state change, no audit
// event. Completion stamps CompletedAt; rejection requires notes explaining
// the decision.
func (m *Manager) Transition(ctx context.Context, requestID id.RequestID, next id.RequestStatus, notes string) (Request, error) {
	req, err := m.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}

	unlock := m.locks.Lock(req.SubjectID)
	defer unlock()

	// Re-read under the lock; a concurrent transition may have won.
	req, err = m.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}

	if !req.Status.CanTransitionTo(next) {
		return Request{}, dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot transition request from %s to %s", req.Status, next)
	}
	if next == id.StatusRejected && notes == "" {
		return Request{}, dErrors.New(dErrors.CodeBadRequest, "rejection requires processing notes")
	}

	now := requestcontext.Now(ctx)
	prev := req.Status
	req.Status = next
	if notes != "" {
		req.ProcessingNotes = notes
	}
	if next.Terminal() {
		completedAt := now
		req.CompletedAt = &completedAt
	}

	err = m.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := m.store.Update(ctx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "update data request")
		}
		_, err := m.recorder.Append(ctx, audit.Event{
			SubjectID:     req.SubjectID,
			Action:        actionForStatus(next),
			ResourceType:  audit.ResourceRequest,
			ResourceID:    req.ID.String(),
			OldValue:      prev.String(),
			NewValue:      next.String(),
			PerformedBy:   requestcontext.Actor(ctx),
			Justification: notes,
			RecordedAt:    now,
		})
		return err
	})
	if err != nil {
		return Request{}, err
	}

	if m.metrics != nil {
		m.metrics.RequestTransitions.WithLabelValues(prev.String(), next.String()).Inc()
	}
	m.logger.InfoContext(ctx, "data subject request transitioned",
		"request_id", req.ID,
		"subject_id", req.SubjectID,
		"from", prev,
		"to", next,
		"actor", requestcontext.Actor(ctx),
	)
	return req, nil
}

// Get returns a request by ID.
func (m *Manager) Get(ctx context.Context, requestID id.RequestID) (Request, error) {
	req, err := m.store.Get(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Request{}, dErrors.New(dErrors.CodeNotFound, "data request not found")
	}
	if err != nil {
		return Request{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "data request lookup failed")
	}
	return req, nil
}

// ListBySubject returns a subject's requests, newest first.
func (m *Manager) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]Request, error) {
	requests, err := m.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "data request listing failed")
	}
	return requests, nil
}

// ListOverdue returns pending requests past their deadline at now. Overdue is
// derived, never stored: the same request stops being reported once it leaves
// pending.
func (m *Manager) ListOverdue(ctx context.Context, now time.Time) ([]Request, error) {
	requests, err := m.store.ListOverdue(ctx, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "overdue listing failed")
	}
	if m.metrics != nil {
		m.metrics.OverdueRequests.Set(float64(len(requests)))
	}
	return requests, nil
}

// CountByStatus returns request counts per lifecycle status.
func (m *Manager) CountByStatus(ctx context.Context) (map[id.RequestStatus]int, error) {
	counts, err := m.store.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "status counts failed")
	}
	return counts, nil
}

// CountByType returns request counts per request type.
func (m *Manager) CountByType(ctx context.Context) (map[id.RequestType]int, error) {
	counts, err := m.store.CountByType(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "type counts failed")
	}
	return counts, nil
}

// PurgeSubject removes the subject's request history during an account purge.
func (m *Manager) PurgeSubject(ctx context.Context, subjectID id.SubjectID) error {
	if err := m.store.PurgeSubject(ctx, subjectID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "purge data requests")
	}
	return nil
}

func actionForStatus(status id.RequestStatus) audit.Action {
	switch status {
	case id.StatusProcessing:
		return audit.ActionRequestProcessing
	case id.StatusCompleted:
		return audit.ActionRequestCompleted
	default:
		return audit.ActionRequestRejected
	}
}
