package audit

import (
	"context"

	id "tutela/pkg/domain"
)

// Store persists the audit trail. The contract is write-once, read in
// creation order: Append never updates or deletes an existing event, and
// Query returns events newest first.
type Store interface {
	Append(ctx context.Context, event Event) error
	Query(ctx context.Context, filter Filter) ([]Event, error)

	// PurgeSubject removes a subject's events except those whose action is
	// retained for legal defense (Action.RetainedOnPurge). It is idempotent.
	PurgeSubject(ctx context.Context, subjectID id.SubjectID) error
}
