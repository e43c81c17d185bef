package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tutela/internal/consent"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/httputil"
	"tutela/pkg/requestcontext"
)

// Service defines the interface for consent ledger operations.
type Service interface {
	Record(ctx context.Context, subjectID id.SubjectID, consentType id.ConsentType, given bool) (consent.Record, error)
	History(ctx context.Context, subjectID id.SubjectID) ([]consent.Record, error)
	NeedsReconsent(ctx context.Context, subjectID id.SubjectID) (bool, error)
}

// Handler wires consent endpoints to the ledger.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts consent endpoints on the router. The router applies
// subject authentication before these run.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consent", h.HandleRecord)
	r.Get("/consent", h.HandleHistory)
	r.Get("/consent/reconsent", h.HandleReconsent)
}

// HandleRecord handles POST /consent requests.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subjectID, ok := requireSubject(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Record(ctx, subjectID, req.ParsedType(), *req.Given)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent record failed",
			"request_id", requestID,
			"subject_id", subjectID,
			"consent_type", req.ConsentType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromRecord(record))
}

// HandleHistory handles GET /consent requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, ok := requireSubject(w, ctx)
	if !ok {
		return
	}

	records, err := h.service.History(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent history lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}

// HandleReconsent handles GET /consent/reconsent requests.
func (h *Handler) HandleReconsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, ok := requireSubject(w, ctx)
	if !ok {
		return
	}

	needed, err := h.service.NeedsReconsent(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "reconsent check failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ReconsentResponse{NeedsReconsent: needed})
}

func requireSubject(w http.ResponseWriter, ctx context.Context) (id.SubjectID, bool) {
	subjectID := requestcontext.SubjectID(ctx)
	if subjectID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.SubjectID{}, false
	}
	return subjectID, true
}
