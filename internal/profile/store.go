package profile

import (
	"context"
	"time"

	id "tutela/pkg/domain"
)

// Store persists subject profiles.
type Store interface {
	// Upsert creates or replaces a profile.
	Upsert(ctx context.Context, p Profile) error

	// Get returns a subject's profile, or sentinel.ErrNotFound.
	Get(ctx context.Context, subjectID id.SubjectID) (Profile, error)

	// SetLastExport stamps the profile with the time of its latest data
	// export.
	SetLastExport(ctx context.Context, subjectID id.SubjectID, at time.Time) error

	// Count returns the number of registered subjects.
	Count(ctx context.Context) (int, error)

	// PurgeSubject removes the profile. Idempotent.
	PurgeSubject(ctx context.Context, subjectID id.SubjectID) error
}
