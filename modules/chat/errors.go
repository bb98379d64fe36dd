package chat

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrMissingField       = errors.New("missing required field")
	ErrNotBound           = errors.New("connection is not bound to a room")
	ErrAlreadyBound       = errors.New("connection is already bound to a room")
	ErrDisconnected       = errors.New("connection is disconnected")
	ErrRoomSpaceExhausted = errors.New("could not allocate an unused room code")
)

// MissingFieldError reports which required input was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Unwrap lets errors.Is match ErrMissingField.
func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

func missingField(field string) error {
	return &MissingFieldError{Field: field}
}

// Error codes carried across the request-reply boundary.
const (
	CodeRoomNotFound = "not_found"
	CodeMissingField = "missing_field"
	CodeInvalid      = "invalid_request"
	CodeInternal     = "server_error"
)

// ServiceError is the serializable form of a domain error.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Err converts a ServiceError back into an error matching the domain sentinels.
func (e *ServiceError) Err() error {
	if e == nil {
		return nil
	}
	switch e.Code {
	case CodeRoomNotFound:
		return fmt.Errorf("%s: %w", e.Message, ErrRoomNotFound)
	case CodeMissingField:
		return missingField(e.Field)
	case CodeInvalid:
		return fmt.Errorf("%w: %s", ErrInvalidInput, e.Message)
	default:
		return errors.New(e.Message)
	}
}

// ErrInvalidInput is matched by every validation error that is not a missing field.
var ErrInvalidInput = errors.New("invalid input")

// ToServiceError converts a domain error into its serializable form.
func ToServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var mf *MissingFieldError
	switch {
	case errors.As(err, &mf):
		return &ServiceError{Code: CodeMissingField, Message: mf.Error(), Field: mf.Field}
	case errors.Is(err, ErrRoomNotFound):
		return &ServiceError{Code: CodeRoomNotFound, Message: "Room not found"}
	case isValidationError(err):
		return &ServiceError{Code: CodeInvalid, Message: err.Error()}
	default:
		return &ServiceError{Code: CodeInternal, Message: err.Error()}
	}
}
