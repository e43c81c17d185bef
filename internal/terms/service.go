package terms

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tutela/internal/audit"
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
	"tutela/pkg/platform/sentinel"
	"tutela/pkg/platform/tx"
	"tutela/pkg/requestcontext"
)

// Registry holds versioned legal documents and resolves the active version
// per document type. Publishing is an administrative action; the engine's
// subject-facing paths only read.
type Registry struct {
	store    Store
	recorder *audit.Recorder
	runner   tx.Runner
	logger   *slog.Logger
	cache    *ActiveCache
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithActiveCache enables the redis read-through cache for Active lookups.
func WithActiveCache(cache *ActiveCache) RegistryOption {
	return func(r *Registry) { r.cache = cache }
}

func NewRegistry(store Store, recorder *audit.Recorder, runner tx.Runner, logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{store: store, recorder: recorder, runner: runner, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish makes a new version the active one for its document type,
// superseding the prior active version atomically. The supersede and its
// audit event commit together.
func (r *Registry) Publish(ctx context.Context, docType id.DocumentType, version, content string, effectiveAt time.Time) (Version, error) {
	if version == "" {
		return Version{}, dErrors.New(dErrors.CodeBadRequest, "terms version label must not be empty")
	}
	if content == "" {
		return Version{}, dErrors.New(dErrors.CodeBadRequest, "terms content must not be empty")
	}
	if effectiveAt.IsZero() {
		effectiveAt = requestcontext.Now(ctx)
	}

	v := Version{
		ID:           id.NewTermsID(),
		DocumentType: docType,
		Version:      version,
		Content:      content,
		EffectiveAt:  effectiveAt,
		Active:       true,
	}

	var oldVersion string
	if prior, err := r.store.Active(ctx, docType); err == nil {
		oldVersion = prior.Version
	}

	err := r.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.store.Supersede(ctx, v); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "supersede terms version")
		}
		_, err := r.recorder.Append(ctx, audit.Event{
			Action:       audit.ActionTermsPublished,
			ResourceType: audit.ResourceTerms,
			ResourceID:   v.ID.String(),
			OldValue:     oldVersion,
			NewValue:     version,
			PerformedBy:  requestcontext.Actor(ctx),
			RecordedAt:   requestcontext.Now(ctx),
		})
		return err
	})
	if err != nil {
		return Version{}, err
	}

	if r.cache != nil {
		r.cache.invalidate(ctx, docType)
	}
	r.logger.InfoContext(ctx, "terms version published",
		"document_type", docType,
		"version", version,
		"superseded", oldVersion,
	)
	return v, nil
}

// Active returns the currently active version for the document type.
func (r *Registry) Active(ctx context.Context, docType id.DocumentType) (Version, error) {
	if r.cache != nil {
		if v, ok := r.cache.get(ctx, docType); ok {
			return v, nil
		}
	}

	v, err := r.store.Active(ctx, docType)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Version{}, dErrors.New(dErrors.CodeNotFound, "no active terms version for "+docType.String())
	}
	if err != nil {
		return Version{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "active terms lookup failed")
	}

	if r.cache != nil {
		r.cache.set(ctx, v)
	}
	return v, nil
}

// History returns all versions for the document type, newest first.
func (r *Registry) History(ctx context.Context, docType id.DocumentType) ([]Version, error) {
	versions, err := r.store.History(ctx, docType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "terms history lookup failed")
	}
	return versions, nil
}
