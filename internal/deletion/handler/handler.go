package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tutela/internal/deletion"
	"tutela/internal/request"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/httputil"
	"tutela/pkg/requestcontext"
)

// Filer files the deletion request that backs DELETE /me. Implemented by
// request.Manager, which schedules the purge in the same transaction.
type Filer interface {
	File(ctx context.Context, subjectID id.SubjectID, reqType id.RequestType, description string) (request.Request, error)
}

// Canceller withdraws a pending purge. Implemented by deletion.Scheduler.
type Canceller interface {
	Cancel(ctx context.Context, subjectID id.SubjectID) error
	ActiveSchedule(ctx context.Context, subjectID id.SubjectID) (deletion.Schedule, error)
}

// Handler wires the account deletion endpoints.
type Handler struct {
	filer     Filer
	scheduler Canceller
	logger    *slog.Logger
}

func New(filer Filer, scheduler Canceller, logger *slog.Logger) *Handler {
	return &Handler{filer: filer, scheduler: scheduler, logger: logger}
}

// Register mounts the deletion endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Delete("/me", h.HandleDelete)
	r.Post("/me/deletion/cancel", h.HandleCancel)
}

// DeleteRequest is the optional DELETE /me body.
type DeleteRequest struct {
	Reason string `json:"reason"`
}

// DeleteResponse reports the filed request and when the purge will run.
type DeleteResponse struct {
	RequestID string    `json:"requestId"`
	PurgeAt   time.Time `json:"purgeAt"`
}

// HandleDelete handles DELETE /me. The account is not removed immediately:
// a deletion request is filed and the purge scheduled after the grace
// period.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subjectID := requestcontext.SubjectID(ctx)
	if subjectID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	// Body is optional; a missing or empty one means no stated reason.
	var req DeleteRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "account deletion requested by subject"
	}

	filed, err := h.filer.File(ctx, subjectID, id.RequestTypeDeletion, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "account deletion request failed",
			"request_id", requestID,
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	schedule, err := h.scheduler.ActiveSchedule(ctx, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, DeleteResponse{
		RequestID: filed.ID.String(),
		PurgeAt:   schedule.PurgeAt,
	})
}

// HandleCancel handles POST /me/deletion/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID := requestcontext.SubjectID(ctx)
	if subjectID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.scheduler.Cancel(ctx, subjectID); err != nil {
		h.logger.ErrorContext(ctx, "deletion cancel failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
