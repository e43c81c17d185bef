package handler

import (
	id "tutela/pkg/domain"
	dErrors "tutela/pkg/domain-errors"
)

// FileRequest is the POST /requests body.
type FileRequest struct {
	RequestType string `json:"requestType"`
	Description string `json:"description"`
}

func (r *FileRequest) Validate() error {
	if _, err := id.ParseRequestType(r.RequestType); err != nil {
		return err
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeBadRequest, "description is required")
	}
	return nil
}

// ParsedType returns the validated request type. Call after Validate.
func (r *FileRequest) ParsedType() id.RequestType {
	t, _ := id.ParseRequestType(r.RequestType)
	return t
}

// TransitionRequest is the POST /requests/{id}/transition body.
type TransitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (r *TransitionRequest) Validate() error {
	_, err := id.ParseRequestStatus(r.Status)
	return err
}

// ParsedStatus returns the validated target status. Call after Validate.
func (r *TransitionRequest) ParsedStatus() id.RequestStatus {
	s, _ := id.ParseRequestStatus(r.Status)
	return s
}
