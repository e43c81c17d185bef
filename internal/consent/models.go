package consent

import (
	"time"

	"github.com/mssola/useragent"

	id "tutela/pkg/domain"
)

// Record captures one consent decision. The ledger is append-only: a later
// record for the same (subject, type) pair is a revocation or re-consent,
// never an edit of a prior record.
type Record struct {
	ID           id.ConsentID
	SubjectID    id.SubjectID
	Type         id.ConsentType
	TermsVersion string // version label of the consent form in force
	Given        bool
	IPAddress    string
	UserAgent    string
	RecordedAt   time.Time
}

// NormalizeUserAgent reduces a raw User-Agent header to a compact
// browser/platform label ("Firefox 120 (Linux)"). Raw UA strings are both
// noisy and higher-entropy than consent evidence needs.
func NormalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	label := name
	if version != "" {
		// Major version is enough evidence; drop the rest.
		for i := 0; i < len(version); i++ {
			if version[i] == '.' {
				version = version[:i]
				break
			}
		}
		label += " " + version
	}
	if os := ua.OS(); os != "" {
		label += " (" + os + ")"
	}
	return label
}
