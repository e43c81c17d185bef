package handler

import (
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
)

// RecordRequest is the POST /consent body.
type RecordRequest struct {
	ConsentType string `json:"consentType"`
	Given       *bool  `json:"given"`
}

func (r *RecordRequest) Validate() error {
	if _, err := id.ParseConsentType(r.ConsentType); err != nil {
		return err
	}
	if r.Given == nil {
		return dErrors.New(dErrors.CodeBadRequest, "given is required")
	}
	return nil
}

// ParsedType returns the validated consent type. Call after Validate.
func (r *RecordRequest) ParsedType() id.ConsentType {
	t, _ := id.ParseConsentType(r.ConsentType)
	return t
}
