package consent

import (
	"context"

	id "tutela/pkg/domain"
)

// Store persists the consent ledger.
type Store interface {
	// Append adds a record. Existing records are never modified.
	Append(ctx context.Context, record Record) error

	// ListBySubject returns a subject's records, newest first.
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]Record, error)

	// CountConsentedSubjects counts distinct subjects whose most recent
	// record carries Given=true. Feeds the admin consent rate.
	CountConsentedSubjects(ctx context.Context) (int, error)

	// PurgeSubject removes a subject's records as part of an account purge.
	// The retained audit trail is the legally required minimum record that
	// consent decisions existed. Idempotent.
	PurgeSubject(ctx context.Context, subjectID id.SubjectID) error
}
