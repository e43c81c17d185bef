package consent

import (
	"context"
	"log/slog"
	"strconv"

	"tutela/internal/audit"
	"tutela/internal/platform/metrics"
	"tutela/internal/terms"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/subjectlock"
	"tutela/pkg/platform/tx"
	"tutela/pkg/requestcontext"
)

// TermsResolver resolves the active version of a legal document. Implemented
// by terms.Registry.
type TermsResolver interface {
	Active(ctx context.Context, docType id.DocumentType) (terms.Version, error)
}

// Ledger is the append-only record of consent decisions. Every recorded
// decision is tagged to the terms version in force and audited atomically.
type Ledger struct {
	store    Store
	resolver TermsResolver
	recorder *audit.Recorder
	runner   tx.Runner
	locks    *subjectlock.Table
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewLedger(
	store Store,
	resolver TermsResolver,
	recorder *audit.Recorder,
	runner tx.Runner,
	locks *subjectlock.Table,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Ledger {
	return &Ledger{
		store:    store,
		resolver: resolver,
		recorder: recorder,
		runner:   runner,
		locks:    locks,
		logger:   logger,
		metrics:  m,
	}
}

// Record appends a consent decision for the subject. Fails with InvalidState
// when no consent form version is active: a decision that cannot be tied to
// a document is legally meaningless. Client IP and User-Agent are taken from
// the request context as evidence of how the decision was captured.
func (l *Ledger) Record(ctx context.Context, subjectID id.SubjectID, consentType id.ConsentType, given bool) (Record, error) {
	if subjectID.IsNil() {
		return Record{}, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}

	unlock := l.locks.Lock(subjectID)
	defer unlock()

	active, err := l.resolver.Active(ctx, id.DocumentConsentForm)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return Record{}, dErrors.New(dErrors.CodeInvalidState, "no active consent form version")
		}
		return Record{}, err
	}

	record := Record{
		ID:           id.NewConsentID(),
		SubjectID:    subjectID,
		Type:         consentType,
		TermsVersion: active.Version,
		Given:        given,
		IPAddress:    requestcontext.ClientIP(ctx),
		UserAgent:    NormalizeUserAgent(requestcontext.UserAgent(ctx)),
		RecordedAt:   requestcontext.Now(ctx),
	}

	err = l.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := l.store.Append(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "append consent record")
		}
		_, err := l.recorder.Append(ctx, audit.Event{
			SubjectID:    subjectID,
			Action:       audit.ActionConsentRecorded,
			ResourceType: audit.ResourceConsent,
			ResourceID:   record.ID.String(),
			NewValue:     strconv.FormatBool(given),
			RecordedAt:   record.RecordedAt,
		})
		return err
	})
	if err != nil {
		return Record{}, err
	}

	if l.metrics != nil {
		l.metrics.ConsentsRecorded.WithLabelValues(consentType.String(), strconv.FormatBool(given)).Inc()
	}
	l.logger.InfoContext(ctx, "consent recorded",
		"subject_id", subjectID,
		"consent_type", consentType,
		"given", given,
		"terms_version", active.Version,
	)
	return record, nil
}

// NeedsReconsent is the re-consent gate shown to returning subjects: true
// when the subject has never consented to the active consent form version,
// or their most recent decision references a superseded version. With no
// published consent form there is nothing to consent to, so it returns
// false.
func (l *Ledger) NeedsReconsent(ctx context.Context, subjectID id.SubjectID) (bool, error) {
	active, err := l.resolver.Active(ctx, id.DocumentConsentForm)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}

	history, err := l.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "consent history lookup failed")
	}
	if len(history) == 0 {
		return true, nil
	}
	return history[0].TermsVersion != active.Version, nil
}

// History returns the subject's consent decisions, newest first. Re-querying
// yields the same result unless new consent is recorded.
func (l *Ledger) History(ctx context.Context, subjectID id.SubjectID) ([]Record, error) {
	records, err := l.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "consent history lookup failed")
	}
	return records, nil
}

// CountConsentedSubjects feeds the admin consent rate.
func (l *Ledger) CountConsentedSubjects(ctx context.Context) (int, error) {
	count, err := l.store.CountConsentedSubjects(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "consent count failed")
	}
	return count, nil
}

// PurgeSubject removes the subject's consent history as part of an account
// purge. Called by the deletion sweeper inside the purge transaction; the
// retained audit events are the legal minimum that survives.
func (l *Ledger) PurgeSubject(ctx context.Context, subjectID id.SubjectID) error {
	if err := l.store.PurgeSubject(ctx, subjectID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "purge consent records")
	}
	return nil
}
