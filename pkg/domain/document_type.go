package domain

import dErrors "tutela/pkg/domain-errors"

// DocumentType identifies a class of versioned legal document. At most one
// version per document type is active at any instant.
type DocumentType string

const (
	DocumentPrivacyPolicy DocumentType = "privacy_policy"
	DocumentTermsOfUse    DocumentType = "terms_of_use"
	DocumentConsentForm   DocumentType = "consent_form"
)

var validDocumentTypes = map[DocumentType]bool{
	DocumentPrivacyPolicy: true,
	DocumentTermsOfUse:    true,
	DocumentConsentForm:   true,
}

// ParseDocumentType constructs a DocumentType from external input.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !validDocumentTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown document type: "+s)
	}
	return t, nil
}

func (t DocumentType) String() string { return string(t) }
