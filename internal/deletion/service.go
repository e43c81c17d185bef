package deletion

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

// Purger removes one category of subject data during an account purge.
// Implementations must be idempotent: purging an already-purged subject is a
// no-op.
type Purger interface {
	PurgeSubject(ctx context.Context, subjectID id.SubjectID) error
}

// Scheduler owns the deletion grace period: it schedules purges when
// deletion requests are filed, cancels them on the subject's request, and
// executes due purges for the sweeper.
type Scheduler struct {
	store    Store
	recorder *audit.Recorder
	runner   tx.Runner
	locks    *subjectlock.Table
	policy   config.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics

	profiles Purger
	consents Purger
	requests Purger
}

func NewScheduler(
	store Store,
	recorder *audit.Recorder,
	runner tx.Runner,
	locks *subjectlock.Table,
	policy config.Policy,
	logger *slog.Logger,
	m *metrics.Metrics,
	profiles, consents, requests Purger,
) *Scheduler {
	return &Scheduler{
		store:    store,
		recorder: recorder,
		runner:   runner,
		locks:    locks,
		policy:   policy,
		logger:   logger,
		metrics:  m,
		profiles: profiles,
		consents: consents,
		requests: requests,
	}
}

// SetRequestPurger wires the request-history purger after construction. The
// request manager needs the scheduler to file deletion requests and the
// scheduler needs the manager to purge request history, so one side is set
// late.
func (s *Scheduler) SetRequestPurger(p Purger) { s.requests = p }

// Create schedules the subject's purge after the grace period. Called by the
// request manager inside its filing transaction while it holds the subject
// lock, so Create takes neither lock nor transaction of its own. Fails with
// CodeInvalidState when an active schedule already exists.
func (s *Scheduler) Create(ctx context.Context, subjectID id.SubjectID, justification string) error {
	now := requestcontext.Now(ctx)
	schedule := Schedule{
		ID:            id.NewScheduleID(),
		SubjectID:     subjectID,
		RequestedAt:   now,
		PurgeAt:       now.Add(s.policy.GracePeriod),
		Justification: justification,
	}

	err := s.store.Create(ctx, schedule)
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeInvalidState, "deletion already scheduled")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "create deletion schedule")
	}

	_, err = s.recorder.Append(ctx, audit.Event{
		SubjectID:    subjectID,
		Action:       audit.ActionDeletionScheduled,
		ResourceType: audit.ResourceAccount,
		ResourceID:   subjectID.String(),
		NewValue:     schedule.PurgeAt.Format(time.RFC3339),
		RecordedAt:   now,
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "account deletion scheduled",
		"subject_id", subjectID,
		"purge_at", schedule.PurgeAt,
	)
	return nil
}

// ActiveSchedule returns the subject's pending purge schedule.
func (s *Scheduler) ActiveSchedule(ctx context.Context, subjectID id.SubjectID) (Schedule, error) {
	schedule, err := s.store.ActiveBySubject(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Schedule{}, dErrors.New(dErrors.CodeNotFound, "no deletion scheduled")
	}
	if err != nil {
		return Schedule{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "deletion schedule lookup failed")
	}
	return schedule, nil
}

// Cancel withdraws a pending purge. Only possible inside the grace period;
// once PurgeAt has passed the purge is considered committed even if the
// sweeper has not run yet.
func (s *Scheduler) Cancel(ctx context.Context, subjectID id.SubjectID) error {
	unlock := s.locks.Lock(subjectID)
	defer unlock()

	schedule, err := s.store.ActiveBySubject(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeInvalidState, "no deletion scheduled")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "deletion schedule lookup failed")
	}

	now := requestcontext.Now(ctx)
	if !now.Before(schedule.PurgeAt) {
		return dErrors.New(dErrors.CodeInvalidState, "grace period has expired")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.MarkCancelled(ctx, schedule.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "cancel deletion schedule")
		}
		_, err := s.recorder.Append(ctx, audit.Event{
			SubjectID:    subjectID,
			Action:       audit.ActionDeletionCancelled,
			ResourceType: audit.ResourceAccount,
			ResourceID:   subjectID.String(),
			RecordedAt:   now,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "account deletion cancelled", "subject_id", subjectID)
	return nil
}

// RunDuePurges executes every due purge. Cancellation is honored between
// subjects: once a subject's purge starts it runs to completion, so a
// shutdown never leaves an account half-deleted.
func (s *Scheduler) RunDuePurges(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "due schedule listing failed")
	}

	purged := 0
	for _, schedule := range due {
		if err := ctx.Err(); err != nil {
			return purged, dErrors.Wrap(err, dErrors.CodeTimeout, "purge sweep aborted")
		}
		if err := s.purge(ctx, schedule); err != nil {
			s.logger.ErrorContext(ctx, "account purge failed",
				"subject_id", schedule.SubjectID,
				"schedule_id", schedule.ID,
				"error", err,
			)
			continue
		}
		purged++
	}
	return purged, nil
}

func (s *Scheduler) purge(ctx context.Context, schedule Schedule) error {
	unlock := s.locks.Lock(schedule.SubjectID)
	defer unlock()

	// Re-check under the lock: the subject may have cancelled, or a previous
	// sweep may already have purged.
	current, err := s.store.ActiveBySubject(ctx, schedule.SubjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "deletion schedule lookup failed")
	}
	if current.ID != schedule.ID {
		return nil
	}

	subjectID := schedule.SubjectID
	now := requestcontext.Now(ctx)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.PurgeSubject(ctx, subjectID); err != nil {
			return err
		}
		if err := s.consents.PurgeSubject(ctx, subjectID); err != nil {
			return err
		}
		if err := s.requests.PurgeSubject(ctx, subjectID); err != nil {
			return err
		}
		if err := s.recorder.PurgeSubject(ctx, subjectID); err != nil {
			return err
		}
		if err := s.store.MarkPurged(ctx, schedule.ID, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "mark schedule purged")
		}
		_, err := s.recorder.Append(ctx, audit.Event{
			SubjectID:     subjectID,
			Action:        audit.ActionAccountPurged,
			ResourceType:  audit.ResourceAccount,
			ResourceID:    subjectID.String(),
			Justification: schedule.Justification,
			RecordedAt:    now,
		})
		return err
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.PurgesExecuted.Inc()
	}
	s.logger.InfoContext(ctx, "account purged",
		"subject_id", subjectID,
		"schedule_id", schedule.ID,
	)
	return nil
}
