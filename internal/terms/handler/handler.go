package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tutela/internal/terms"
	id "tutela/pkg/domain"
	"tutela/pkg/platform/httputil"
	"tutela/pkg/requestcontext"
)

// Service defines the interface for terms registry operations.
type Service interface {
	Publish(ctx context.Context, docType id.DocumentType, version, content string, effectiveAt time.Time) (terms.Version, error)
	Active(ctx context.Context, docType id.DocumentType) (terms.Version, error)
	History(ctx context.Context, docType id.DocumentType) ([]terms.Version, error)
}

// Handler serves the admin terms endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the terms endpoints on the admin router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/terms", h.HandlePublish)
	r.Get("/terms/{type}", h.HandleActive)
	r.Get("/terms/{type}/history", h.HandleHistory)
}

// HandlePublish handles POST /admin/terms.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PublishRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	published, err := h.service.Publish(ctx, req.ParsedType(), req.Version, req.Content, req.EffectiveAt)
	if err != nil {
		h.logger.ErrorContext(ctx, "terms publish failed",
			"request_id", requestID,
			"document_type", req.DocumentType,
			"version", req.Version,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromVersion(published))
}

// HandleActive handles GET /admin/terms/{type}.
func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docType, err := id.ParseDocumentType(chi.URLParam(r, "type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	active, err := h.service.Active(ctx, docType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVersion(active))
}

// HandleHistory handles GET /admin/terms/{type}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docType, err := id.ParseDocumentType(chi.URLParam(r, "type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	versions, err := h.service.History(ctx, docType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromVersions(versions))
}
