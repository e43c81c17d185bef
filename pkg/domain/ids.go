package domain

import (
	"github.com/google/uuid"

	dErrors "tutela/pkg/domain-errors"
)

// Typed UUID wrappers for the engine's entities. Construct via the Parse
// functions at trust boundaries; direct casting bypasses validation.

// SubjectID identifies a data subject.
type SubjectID uuid.UUID

// RequestID identifies a data subject request.
type RequestID uuid.UUID

// EventID identifies an audit trail event.
type EventID uuid.UUID

// TermsID identifies a terms document version.
type TermsID uuid.UUID

// ConsentID identifies one consent ledger entry.
type ConsentID uuid.UUID

// ScheduleID identifies an account deletion schedule.
type ScheduleID uuid.UUID

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return u, nil
}

// ParseSubjectID validates and returns a SubjectID.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s, "subject id")
	if err != nil {
		return SubjectID{}, err
	}
	return SubjectID(u), nil
}

// ParseRequestID validates and returns a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	if err != nil {
		return RequestID{}, err
	}
	return RequestID(u), nil
}

// NewSubjectID returns a fresh random SubjectID.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewRequestID returns a fresh random RequestID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewEventID returns a fresh random EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewTermsID returns a fresh random TermsID.
func NewTermsID() TermsID { return TermsID(uuid.New()) }

// NewConsentID returns a fresh random ConsentID.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// NewScheduleID returns a fresh random ScheduleID.
func NewScheduleID() ScheduleID { return ScheduleID(uuid.New()) }

func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id SubjectID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id RequestID) String() string { return uuid.UUID(id).String() }
func (id RequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id EventID) String() string { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id TermsID) String() string { return uuid.UUID(id).String() }
func (id TermsID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ConsentID) String() string { return uuid.UUID(id).String() }
func (id ConsentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ScheduleID) String() string { return uuid.UUID(id).String() }
func (id ScheduleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Text marshalling so IDs render as UUID strings in JSON documents (export
// bundles, cache entries) instead of raw byte arrays.

func (id SubjectID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *SubjectID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = SubjectID(u)
	return nil
}

func (id RequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *RequestID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = RequestID(u)
	return nil
}

func (id EventID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *EventID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = EventID(u)
	return nil
}

func (id TermsID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *TermsID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = TermsID(u)
	return nil
}

func (id ConsentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *ConsentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ConsentID(u)
	return nil
}

func (id ScheduleID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *ScheduleID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ScheduleID(u)
	return nil
}
