package handler

import (
	"time"

	"tutela/internal/request"
)

// RequestResponse is one data subject request on the wire.
type RequestResponse struct {
	ID              string     `json:"id"`
	SubjectID       string     `json:"subjectId"`
	RequestType     string     `json:"requestType"`
	Status          string     `json:"status"`
	Description     string     `json:"description"`
	CreatedAt       time.Time  `json:"createdAt"`
	Deadline        time.Time  `json:"deadline"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	ProcessingNotes string     `json:"processingNotes,omitempty"`
}

func FromRequest(r request.Request) RequestResponse {
	return RequestResponse{
		ID:              r.ID.String(),
		SubjectID:       r.SubjectID.String(),
		RequestType:     r.Type.String(),
		Status:          r.Status.String(),
		Description:     r.Description,
		CreatedAt:       r.CreatedAt,
		Deadline:        r.Deadline,
		CompletedAt:     r.CompletedAt,
		ProcessingNotes: r.ProcessingNotes,
	}
}

// ListResponse wraps a request collection.
type ListResponse struct {
	Requests []RequestResponse `json:"requests"`
}

func FromRequests(requests []request.Request) ListResponse {
	out := ListResponse{Requests: make([]RequestResponse, 0, len(requests))}
	for _, r := range requests {
		out.Requests = append(out.Requests, FromRequest(r))
	}
	return out
}
