package domain

import dErrors "tutela/pkg/domain-errors"

// RequestType identifies which data subject right a request exercises.
//
// Usage: construct via ParseRequestType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type RequestType string

const (
	RequestTypeAccess        RequestType = "access"
	RequestTypePortability   RequestType = "portability"
	RequestTypeCorrection    RequestType = "correction"
	RequestTypeDeletion      RequestType = "deletion"
	RequestTypeAnonymization RequestType = "anonymization"
)

// validRequestTypes is the single source of truth for valid request types.
var validRequestTypes = map[RequestType]bool{
	RequestTypeAccess:        true,
	RequestTypePortability:   true,
	RequestTypeCorrection:    true,
	RequestTypeDeletion:      true,
	RequestTypeAnonymization: true,
}

// ParseRequestType constructs a RequestType from external input.
func ParseRequestType(s string) (RequestType, error) {
	t := RequestType(s)
	if !validRequestTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown request type: "+s)
	}
	return t, nil
}

func (t RequestType) String() string { return string(t) }

// RequestTypes lists all valid request types in a stable order. Used by the
// stats aggregator to seed per-type counters.
func RequestTypes() []RequestType {
	return []RequestType{
		RequestTypeAccess,
		RequestTypePortability,
		RequestTypeCorrection,
		RequestTypeDeletion,
		RequestTypeAnonymization,
	}
}

// RequestStatus is the lifecycle state of a data subject request.
//
// The legal transition graph is closed:
//
//	pending -> processing -> completed
//	pending -> processing -> rejected
//	pending -> rejected
//
// completed and rejected are terminal.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusRejected   RequestStatus = "rejected"
)

// legalTransitions is the single source of truth for the lifecycle graph.
var legalTransitions = map[RequestStatus]map[RequestStatus]bool{
	StatusPending:    {StatusProcessing: true, StatusRejected: true},
	StatusProcessing: {StatusCompleted: true, StatusRejected: true},
	StatusCompleted:  {},
	StatusRejected:   {},
}

// ParseRequestStatus constructs a RequestStatus from external input.
func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(s)
	if _, ok := legalTransitions[st]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown request status: "+s)
	}
	return st, nil
}

func (s RequestStatus) String() string { return string(s) }

// Terminal reports whether no transition leads out of this status.
func (s RequestStatus) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// CanTransitionTo reports whether the lifecycle graph permits moving from s to
// next. Validation lives here so the graph is enforced in exactly one place.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return legalTransitions[s][next]
}
