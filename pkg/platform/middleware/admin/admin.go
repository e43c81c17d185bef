// Package admin guards operator-only endpoints with a shared admin token.
package admin

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	request "tutela/pkg/platform/middleware/request"
	"tutela/pkg/requestcontext"
)

// HeaderAdminToken carries the operator credential.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken verifies the operator token against its bcrypt hash.
// Only the hash is held in configuration, so a leaked config file does not
// leak the credential. bcrypt comparison is constant-time by construction.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAdminToken)
			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			// Admin actions are audited against the operator identity.
			actor := r.Header.Get("X-Admin-Name")
			if actor == "" {
				actor = "admin"
			}
			ctx := requestcontext.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
