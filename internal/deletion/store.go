package deletion

import (
	"context"
	"time"

	id "tutela/pkg/domain"
)

// Store persists deletion schedules. Schedules are never deleted: cancelled
// and executed schedules stay as the record of what was scheduled and when.
type Store interface {
	// Create inserts a schedule. Returns sentinel.ErrConflict when the
	// subject already has an active (uncancelled, unpurged) schedule.
	Create(ctx context.Context, schedule Schedule) error

	// ActiveBySubject returns the subject's active schedule, or
	// sentinel.ErrNotFound.
	ActiveBySubject(ctx context.Context, subjectID id.SubjectID) (Schedule, error)

	// MarkCancelled flags the schedule cancelled.
	MarkCancelled(ctx context.Context, scheduleID id.ScheduleID) error

	// MarkPurged stamps the schedule with the purge execution time.
	MarkPurged(ctx context.Context, scheduleID id.ScheduleID, purgedAt time.Time) error

	// ListDue returns active schedules with PurgeAt <= now.
	ListDue(ctx context.Context, now time.Time) ([]Schedule, error)
}
