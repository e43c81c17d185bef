// Package httptransport assembles the engine's HTTP surface. It only wires:
// all behavior lives in the feature handlers and middleware.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	consenthandler "tutela/internal/consent/handler"
	deletionhandler "tutela/internal/deletion/handler"
	exporthandler "tutela/internal/export/handler"
	requesthandler "tutela/internal/request/handler"
	statshandler "tutela/internal/stats/handler"
	termshandler "tutela/internal/terms/handler"
	adminmw "tutela/pkg/platform/middleware/admin"
	authmw "tutela/pkg/platform/middleware/auth"
	"tutela/pkg/platform/middleware/metadata"
	requestmw "tutela/pkg/platform/middleware/request"
	"tutela/pkg/platform/middleware/requesttime"
)

// Handlers collects the feature handlers mounted by the router.
type Handlers struct {
	Consent  *consenthandler.Handler
	Requests *requesthandler.Handler
	Deletion *deletionhandler.Handler
	Export   *exporthandler.Handler
	Terms    *termshandler.Handler
	Stats    *statshandler.Handler
}

// Config holds the router's cross-cutting dependencies.
type Config struct {
	JWTValidator   *authmw.Validator
	AdminTokenHash string
	Logger         *slog.Logger
}

// NewRouter mounts the full route tree:
//
//	subject endpoints  (JWT)          /consent, /requests, /me/...
//	admin endpoints    (admin token)  /admin/...
//	operational        (open)         /healthz, /metrics
func NewRouter(h Handlers, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestmw.ID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireSubject(cfg.JWTValidator, cfg.Logger))
		h.Consent.Register(r)
		h.Requests.Register(r)
		h.Deletion.Register(r)
		h.Export.Register(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminTokenHash, cfg.Logger))
		h.Terms.Register(r)
		h.Stats.Register(r)
		h.Requests.RegisterAdmin(r)
	})

	return r
}
