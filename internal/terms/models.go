package terms

import (
	"time"

	id "tutela/pkg/domain"
)

// Version is one published revision of a legal document. Versions are never
// mutated, only superseded: publishing a new version flips the old one's
// Active flag to false atomically with the new one's flip to true.
type Version struct {
	ID           id.TermsID
	DocumentType id.DocumentType
	Version      string
	Content      string
	EffectiveAt  time.Time
	ExpiresAt    *time.Time
	Active       bool
}
