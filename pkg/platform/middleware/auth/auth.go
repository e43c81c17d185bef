// Package auth authenticates data subjects from bearer tokens.
//
// Identity issuance (login, session management) is an external collaborator;
// this middleware only verifies the token signature and extracts the subject
// identity the rest of the engine operates on.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "tutela/pkg/domain"
	request "tutela/pkg/platform/middleware/request"
	"tutela/pkg/requestcontext"
)

// Claims are the JWT claims the engine expects from the identity provider.
type Claims struct {
	SubjectID string `json:"sub"`
	jwt.RegisteredClaims
}

// Validator verifies bearer tokens and extracts the subject identity.
type Validator struct {
	signingKey []byte
}

// NewValidator builds a Validator for HS256 tokens signed with signingKey.
func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a token, returning the subject ID.
func (v *Validator) ValidateToken(tokenString string) (id.SubjectID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return id.SubjectID{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return id.SubjectID{}, jwt.ErrTokenInvalidClaims
	}
	return id.ParseSubjectID(claims.SubjectID)
}

// RequireSubject rejects requests without a valid bearer token and stores the
// authenticated subject ID in the context.
func RequireSubject(validator *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				unauthorized(w)
				return
			}
			subjectID, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithSubjectID(ctx, subjectID)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
