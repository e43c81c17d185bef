// Package request provides request correlation ID middleware.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"tutela/pkg/requestcontext"
)

// HeaderRequestID is the inbound/outbound correlation header.
const HeaderRequestID = "X-Request-ID"

// ID assigns a correlation ID to every request. An inbound X-Request-ID is
// trusted for tracing continuity; otherwise a fresh UUID is generated. The ID
// is echoed on the response and stored in the context for log attribution.
func ID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
