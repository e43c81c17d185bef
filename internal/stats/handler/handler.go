package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tutela/internal/stats"
	"tutela/pkg/platform/httputil"
	"tutela/pkg/requestcontext"
)

// Service defines the interface for compliance statistics.
type Service interface {
	Snapshot(ctx context.Context, now time.Time) (stats.Snapshot, error)
}

// Handler serves the admin stats endpoint.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the stats endpoint on the admin router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/stats", h.HandleStats)
}

// StatsResponse is the GET /admin/stats body.
type StatsResponse struct {
	TotalSubjects     int            `json:"totalSubjects"`
	ConsentedSubjects int            `json:"consentedSubjects"`
	ConsentRate       float64        `json:"consentRate"`
	TotalRequests     int            `json:"totalRequests"`
	PendingRequests   int            `json:"pendingRequests"`
	OverdueRequests   int            `json:"overdueRequests"`
	RequestsByType    map[string]int `json:"requestsByType"`
	ComplianceScore   float64        `json:"complianceScore"`
	GeneratedAt       time.Time      `json:"generatedAt"`
}

// HandleStats handles GET /admin/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := requestcontext.Now(ctx)

	snapshot, err := h.service.Snapshot(ctx, now)
	if err != nil {
		h.logger.ErrorContext(ctx, "stats snapshot failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	byType := make(map[string]int, len(snapshot.RequestsByType))
	for t, n := range snapshot.RequestsByType {
		byType[t.String()] = n
	}

	httputil.WriteJSON(w, http.StatusOK, StatsResponse{
		TotalSubjects:     snapshot.TotalSubjects,
		ConsentedSubjects: snapshot.ConsentedSubjects,
		ConsentRate:       snapshot.ConsentRate,
		TotalRequests:     snapshot.TotalRequests,
		PendingRequests:   snapshot.PendingRequests,
		OverdueRequests:   snapshot.OverdueRequests,
		RequestsByType:    byType,
		ComplianceScore:   snapshot.ComplianceScore,
		GeneratedAt:       now,
	})
}
