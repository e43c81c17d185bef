package request

import (
	"context"
	"time"

	id "tutela/pkg/domain"
)

// Store persists data subject requests.
type Store interface {
	// Create inserts a new request.
	Create(ctx context.Context, req Request) error

	// Get returns a request by ID, or sentinel.ErrNotFound.
	Get(ctx context.Context, requestID id.RequestID) (Request, error)

	// Update overwrites a request's mutable fields (status, notes,
	// completion time). Returns sentinel.ErrNotFound for unknown IDs.
	Update(ctx context.Context, req Request) error

	// ListBySubject returns a subject's requests, newest first.
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]Request, error)

	// ListOverdue returns pending requests whose deadline is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]Request, error)

	// CountByStatus counts requests per lifecycle status.
	CountByStatus(ctx context.Context) (map[id.RequestStatus]int, error)

	// CountByType counts requests per request type.
	CountByType(ctx context.Context) (map[id.RequestType]int, error)

	// PurgeSubject removes a subject's requests as part of an account purge.
	// Idempotent.
	PurgeSubject(ctx context.Context, subjectID id.SubjectID) error
}
