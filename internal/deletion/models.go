package deletion

import (
	"time"

	id "tutela/pkg/domain"
)

// Schedule is a pending account purge. PurgeAt is fixed at scheduling time
// from the grace period; the subject may cancel any time before it.
type Schedule struct {
	ID            id.ScheduleID
	SubjectID     id.SubjectID
	RequestedAt   time.Time
	PurgeAt       time.Time
	Justification string
	Cancelled     bool
	PurgedAt      *time.Time
}

// Active reports whether the schedule still leads to a purge.
func (s Schedule) Active() bool {
	return !s.Cancelled && s.PurgedAt == nil
}

// Due reports whether the purge should run at now.
func (s Schedule) Due(now time.Time) bool {
	return s.Active() && !now.Before(s.PurgeAt)
}
