package handler

import (
	"time"

	"tutela/internal/consent"
)

// RecordResponse is one consent decision on the wire.
type RecordResponse struct {
	ID           string    `json:"id"`
	SubjectID    string    `json:"subjectId"`
	ConsentType  string    `json:"consentType"`
	TermsVersion string    `json:"termsVersion"`
	Given        bool      `json:"given"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	RecordedAt   time.Time `json:"recordedAt"`
}

func FromRecord(r consent.Record) RecordResponse {
	return RecordResponse{
		ID:           r.ID.String(),
		SubjectID:    r.SubjectID.String(),
		ConsentType:  r.Type.String(),
		TermsVersion: r.TermsVersion,
		Given:        r.Given,
		IPAddress:    r.IPAddress,
		UserAgent:    r.UserAgent,
		RecordedAt:   r.RecordedAt,
	}
}

// HistoryResponse is the GET /consent body.
type HistoryResponse struct {
	Records []RecordResponse `json:"records"`
}

func FromRecords(records []consent.Record) HistoryResponse {
	out := HistoryResponse{Records: make([]RecordResponse, 0, len(records))}
	for _, r := range records {
		out.Records = append(out.Records, FromRecord(r))
	}
	return out
}

// ReconsentResponse is the GET /consent/reconsent body.
type ReconsentResponse struct {
	NeedsReconsent bool `json:"needsReconsent"`
}
