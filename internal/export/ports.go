package export

import (
	"context"
	"time"

	"tutela/internal/audit"
	"tutela/internal/consent"
	"tutela/internal/profile"
	"tutela/internal/request"
	id "tutela/pkg/domain"
)

// Collaborator ports. The aggregator only reads; every port is best-effort
// and a failing one degrades its section to empty rather than failing the
// export.

// ProfileStore reads and stamps the subject profile.
type ProfileStore interface {
	Get(ctx context.Context, subjectID id.SubjectID) (profile.Profile, error)
	SetLastExport(ctx context.Context, subjectID id.SubjectID, at time.Time) error
	Count(ctx context.Context) (int, error)
}

// ConsentHistory reads the subject's consent ledger.
type ConsentHistory interface {
	History(ctx context.Context, subjectID id.SubjectID) ([]consent.Record, error)
}

// RequestHistory reads the subject's data subject requests.
type RequestHistory interface {
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]request.Request, error)
}

// AuditTrail reads the subject's audit events.
type AuditTrail interface {
	Query(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

// AuthLogStore reads authentication history from the identity system.
type AuthLogStore interface {
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]AuthLogEntry, error)
}

// NotificationStore reads the subject's notification history.
type NotificationStore interface {
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]Notification, error)
}

// AnalyticsStore reads analytics events attributed to the subject.
type AnalyticsStore interface {
	ListRecent(ctx context.Context, subjectID id.SubjectID) ([]AnalyticsEvent, error)
}
