package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tutela/internal/request"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/httputil"
	"tutela/pkg/requestcontext"
)

// Service defines the interface for request lifecycle operations.
type Service interface {
	File(ctx context.Context, subjectID id.SubjectID, reqType id.RequestType, description string) (request.Request, error)
	Transition(ctx context.Context, requestID id.RequestID, next id.RequestStatus, notes string) (request.Request, error)
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]request.Request, error)
	ListOverdue(ctx context.Context, now time.Time) ([]request.Request, error)
}

// Handler wires request lifecycle endpoints to the manager.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the subject-facing endpoints. Transition and overdue
// listing are mounted by the admin router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/requests", h.HandleFile)
	r.Get("/requests", h.HandleList)
}

// RegisterAdmin mounts the operator endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/requests/{id}/transition", h.HandleTransition)
	r.Get("/requests/overdue", h.HandleOverdue)
}

// HandleFile handles POST /requests.
func (h *Handler) HandleFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subjectID := requestcontext.SubjectID(ctx)
	if subjectID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[FileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	filed, err := h.service.File(ctx, subjectID, req.ParsedType(), req.Description)
	if err != nil {
		h.logger.ErrorContext(ctx, "request filing failed",
			"request_id", requestID,
			"subject_id", subjectID,
			"request_type", req.RequestType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromRequest(filed))
}

// HandleList handles GET /requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID := requestcontext.SubjectID(ctx)
	if subjectID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	requests, err := h.service.ListBySubject(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "request listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRequests(requests))
}

// HandleTransition handles POST /requests/{id}/transition.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	targetID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.service.Transition(ctx, targetID, req.ParsedStatus(), req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "request transition failed",
			"request_id", requestID,
			"target_request", targetID,
			"to", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRequest(updated))
}

// HandleOverdue handles GET /requests/overdue.
func (h *Handler) HandleOverdue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.service.ListOverdue(ctx, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "overdue listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRequests(requests))
}
