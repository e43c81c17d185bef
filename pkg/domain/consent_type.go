package domain

import dErrors "tutela/pkg/domain-errors"

// ConsentType labels the category of processing a consent decision covers.
// Category binding allows selective revocation without affecting other
// processing.
type ConsentType string

const (
	ConsentTypeEssential  ConsentType = "essential"
	ConsentTypeAnalytics  ConsentType = "analytics"
	ConsentTypeMarketing  ConsentType = "marketing"
	ConsentTypeThirdParty ConsentType = "third_party_sharing"
)

// validConsentTypes is the single source of truth for valid consent types.
var validConsentTypes = map[ConsentType]bool{
	ConsentTypeEssential:  true,
	ConsentTypeAnalytics:  true,
	ConsentTypeMarketing:  true,
	ConsentTypeThirdParty: true,
}

// ParseConsentType constructs a ConsentType from external input.
func ParseConsentType(s string) (ConsentType, error) {
	t := ConsentType(s)
	if !validConsentTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown consent type: "+s)
	}
	return t, nil
}

func (t ConsentType) String() string { return string(t) }
