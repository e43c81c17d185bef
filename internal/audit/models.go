package audit

import (
	"time"

	id "tutela/pkg/domain"
)

// Action names a compliance-relevant action recorded in the trail.
type Action string

const (
	ActionConsentRecorded   Action = "consent_recorded"
	ActionRequestCreated    Action = "data_request_created"
	ActionRequestProcessing Action = "data_request_processing"
	ActionRequestCompleted  Action = "data_request_completed"
	ActionRequestRejected   Action = "data_request_rejected"
	ActionDataExport        Action = "data_export"
	ActionDeletionScheduled Action = "deletion_scheduled"
	ActionDeletionCancelled Action = "deletion_cancelled"
	ActionAccountPurged     Action = "account_purged"
	ActionTermsPublished    Action = "terms_published"
)

// retainedOnPurge lists the actions kept when a subject's trail is purged.
// These document the deletion itself and the requests that led to it, the
// minimum required for legal defense.
var retainedOnPurge = map[Action]bool{
	ActionAccountPurged:     true,
	ActionRequestCreated:    true,
	ActionRequestCompleted:  true,
	ActionRequestRejected:   true,
	ActionDeletionScheduled: true,
	ActionDeletionCancelled: true,
}

// RetainedOnPurge reports whether events with this action survive an account
// purge.
func (a Action) RetainedOnPurge() bool { return retainedOnPurge[a] }

// Resource types referenced by audit events.
const (
	ResourceConsent = "consent"
	ResourceRequest = "data_request"
	ResourceTerms   = "terms"
	ResourceAccount = "account"
	ResourceExport  = "export"
)

// Event is one append-only entry in the audit trail. Events are immutable
// once written; corrections are expressed as further events, never edits.
type Event struct {
	ID            id.EventID
	SubjectID     id.SubjectID // nil UUID for system-level events
	Action        Action
	ResourceType  string
	ResourceID    string
	OldValue      string
	NewValue      string
	PerformedBy   string
	Justification string
	RecordedAt    time.Time
}

// Filter narrows a trail query. Zero fields match everything; Limit caps the
// result size (0 means no cap).
type Filter struct {
	SubjectID id.SubjectID
	Action    Action
	Since     time.Time
	Limit     int
}
