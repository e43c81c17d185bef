package testutil

import (
	"net/http"
	"time"

	id "tutela/pkg/domain"
	"tutela/pkg/requestcontext"
)

// WithSubject adds an authenticated subject ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the subjectID is not a valid UUID, it will not be added to the context.
func WithSubject(req *http.Request, subjectID string) *http.Request {
	if parsed, err := id.ParseSubjectID(subjectID); err == nil {
		return req.WithContext(requestcontext.WithSubjectID(req.Context(), parsed))
	}
	return req
}

// WithSubjectID adds a parsed subject ID to the request context.
func WithSubjectID(req *http.Request, subjectID id.SubjectID) *http.Request {
	return req.WithContext(requestcontext.WithSubjectID(req.Context(), subjectID))
}

// WithActor adds an acting principal to the request context, as the admin
// middleware would for operator requests.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithFrozenTime pins the request-scoped clock, as the request time middleware
// would at the start of a request.
func WithFrozenTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
