package handler

import (
	"time"

	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
)

// PublishRequest is the POST /admin/terms body. EffectiveAt is optional and
// defaults to the publish time.
type PublishRequest struct {
	DocumentType string    `json:"documentType"`
	Version      string    `json:"version"`
	Content      string    `json:"content"`
	EffectiveAt  time.Time `json:"effectiveAt"`
}

func (r *PublishRequest) Validate() error {
	if _, err := id.ParseDocumentType(r.DocumentType); err != nil {
		return err
	}
	if r.Version == "" {
		return dErrors.New(dErrors.CodeBadRequest, "version is required")
	}
	if r.Content == "" {
		return dErrors.New(dErrors.CodeBadRequest, "content is required")
	}
	return nil
}

// ParsedType returns the validated document type. Call after Validate.
func (r *PublishRequest) ParsedType() id.DocumentType {
	t, _ := id.ParseDocumentType(r.DocumentType)
	return t
}
