package terms

import (
	"context"

	id "tutela/pkg/domain"
)

// Store persists terms versions. Implementations must uphold the
// single-active invariant: at most one active version per document type.
type Store interface {
	// Supersede inserts v as the active version of its document type and
	// deactivates the previously active version, atomically. The superseded
	// version (if any) gets its ExpiresAt stamped with v.EffectiveAt.
	Supersede(ctx context.Context, v Version) error

	// Active returns the currently active version for the document type.
	// Returns sentinel.ErrNotFound when none has been published.
	Active(ctx context.Context, docType id.DocumentType) (Version, error)

	// History returns all versions for the document type, newest first.
	History(ctx context.Context, docType id.DocumentType) ([]Version, error)
}
