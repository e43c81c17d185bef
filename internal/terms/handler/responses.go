package handler

import (
	"time"

	"tutela/internal/terms"
)

// VersionResponse is one terms version on the wire.
type VersionResponse struct {
	ID           string     `json:"id"`
	DocumentType string     `json:"documentType"`
	Version      string     `json:"version"`
	Content      string     `json:"content"`
	EffectiveAt  time.Time  `json:"effectiveAt"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Active       bool       `json:"active"`
}

func FromVersion(v terms.Version) VersionResponse {
	return VersionResponse{
		ID:           v.ID.String(),
		DocumentType: v.DocumentType.String(),
		Version:      v.Version,
		Content:      v.Content,
		EffectiveAt:  v.EffectiveAt,
		ExpiresAt:    v.ExpiresAt,
		Active:       v.Active,
	}
}

// HistoryResponse wraps a version collection, newest first.
type HistoryResponse struct {
	Versions []VersionResponse `json:"versions"`
}

func FromVersions(versions []terms.Version) HistoryResponse {
	out := HistoryResponse{Versions: make([]VersionResponse, 0, len(versions))}
	for _, v := range versions {
		out.Versions = append(out.Versions, FromVersion(v))
	}
	return out
}
