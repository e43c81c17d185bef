package export

import (
	"time"

	"tutela/internal/audit"
	"tutela/internal/consent"
	"tutela/internal/profile"
	"tutela/internal/request"
)

// Bundle is the complete data export delivered to a subject. Section keys
// are a stable contract; sections whose source failed or holds nothing are
// empty arrays, never omitted.
type Bundle struct {
	ExportInfo         ExportInfo       `json:"export_info"`
	UserProfile        ProfileSection   `json:"user_profile"`
	ConsentHistory     []ConsentEntry   `json:"consent_history"`
	DataRequests       []RequestEntry   `json:"data_requests"`
	AuditTrail         []AuditEntry     `json:"audit_trail"`
	AnalyticsData      []AnalyticsEvent `json:"analytics_data"`
	AuthenticationLogs []AuthLogEntry   `json:"authentication_logs"`
	Notifications      []Notification   `json:"notifications"`
}

// ExportInfo describes the export itself.
type ExportInfo struct {
	GeneratedAt time.Time `json:"generated_at"`
	SubjectID   string    `json:"subject_id"`
	ExportType  string    `json:"export_type"`
}

// ProfileSection is the user_profile section.
type ProfileSection struct {
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	LastDataExport *time.Time `json:"last_data_export,omitempty"`
}

func profileSection(p profile.Profile) ProfileSection {
	section := ProfileSection{
		Name:           p.Name,
		Email:          p.Email,
		LastDataExport: p.LastDataExport,
	}
	if !p.CreatedAt.IsZero() {
		createdAt := p.CreatedAt
		section.CreatedAt = &createdAt
	}
	return section
}

// ConsentEntry is one consent decision in the export.
type ConsentEntry struct {
	ConsentType  string    `json:"consent_type"`
	TermsVersion string    `json:"terms_version"`
	Given        bool      `json:"given"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func consentEntries(records []consent.Record) []ConsentEntry {
	out := make([]ConsentEntry, 0, len(records))
	for _, r := range records {
		out = append(out, ConsentEntry{
			ConsentType:  r.Type.String(),
			TermsVersion: r.TermsVersion,
			Given:        r.Given,
			RecordedAt:   r.RecordedAt,
		})
	}
	return out
}

// RequestEntry is one data subject request in the export.
type RequestEntry struct {
	ID          string     `json:"id"`
	RequestType string     `json:"request_type"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	Deadline    time.Time  `json:"deadline"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func requestEntries(requests []request.Request) []RequestEntry {
	out := make([]RequestEntry, 0, len(requests))
	for _, r := range requests {
		out = append(out, RequestEntry{
			ID:          r.ID.String(),
			RequestType: r.Type.String(),
			Status:      r.Status.String(),
			CreatedAt:   r.CreatedAt,
			Deadline:    r.Deadline,
			CompletedAt: r.CompletedAt,
		})
	}
	return out
}

// AuditEntry is one audit event in the export.
type AuditEntry struct {
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func auditEntries(events []audit.Event) []AuditEntry {
	out := make([]AuditEntry, 0, len(events))
	for _, e := range events {
		out = append(out, AuditEntry{
			Action:       string(e.Action),
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			RecordedAt:   e.RecordedAt,
		})
	}
	return out
}

// AuthLogEntry is one authentication event from the identity system.
type AuthLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Success   bool      `json:"success"`
}

// Notification is one delivered notification.
type Notification struct {
	Title   string    `json:"title"`
	Channel string    `json:"channel"`
	SentAt  time.Time `json:"sent_at"`
}

// AnalyticsEvent is one analytics event attributed to the subject.
type AnalyticsEvent struct {
	Name       string            `json:"name"`
	OccurredAt time.Time         `json:"occurred_at"`
	Properties map[string]string `json:"properties,omitempty"`
}
