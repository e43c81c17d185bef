package request

import (
	"time"

	id "tutela/pkg/domain"
)

// Request is one exercise of a data subject right. Deadline is fixed at
// filing time from the statutory response window and never recomputed;
// overdue is always derived by comparing it to the clock.
type Request struct {
	ID              id.RequestID
	SubjectID       id.SubjectID
	Type            id.RequestType
	Status          id.RequestStatus
	Description     string
	CreatedAt       time.Time
	Deadline        time.Time
	CompletedAt     *time.Time
	ProcessingNotes string
}

// Overdue reports whether the request is still pending past its deadline.
func (r Request) Overdue(now time.Time) bool {
	return r.Status == id.StatusPending && r.Deadline.Before(now)
}
