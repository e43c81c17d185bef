package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tutela/internal/export"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/httputil"
	"tutela/pkg/requestcontext"
)

// Service defines the interface for export operations.
type Service interface {
	Export(ctx context.Context, subjectID id.SubjectID) (export.Bundle, error)
}

// Handler wires the data export endpoint to the aggregator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the export endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me/export", h.HandleExport)
}

// HandleExport handles GET /me/export. The bundle is the response body;
// its section keys are a stable contract for downstream tooling.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID := requestcontext.SubjectID(ctx)
	if subjectID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	bundle, err := h.service.Export(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "data export failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="data-export.json"`)
	httputil.WriteJSON(w, http.StatusOK, bundle)
}
