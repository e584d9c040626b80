package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Stores and collaborators return these (optionally wrapped) so that the
// service and transport layers can classify failures with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrCollaborator   = errors.New("collaborator failed")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrUpdateConflict = errors.New("update failed: aggregate was modified concurrently")

	ErrTranscriptNotFound = errors.New("referenced transcript not found")
	ErrAmbiguousEvidence  = errors.New("evidence sets both pathogenicity and benignity")
	ErrMissingEvidence    = errors.New("evidence sets neither pathogenicity nor benignity")
	ErrMultiAllelic       = errors.New("multi-allelic variants are not supported")
	ErrMalformedVariant   = errors.New("malformed variant")
	ErrVariantNotFound    = errors.New("variant not found")
)

// Error codes used in transport envelopes.
const (
	ErrInvalidInput      = "INVALID_INPUT"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "UPDATE_CONFLICT"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrExternalAPI       = "EXTERNAL_API_ERROR"
	ErrDatabaseError     = "DATABASE_ERROR"
	ErrInternalServer    = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents a rejected submission. It always matches ErrValidation and,
// when Err is set, the more specific reason as well.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap exposes the specific reason.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// newReasonError creates a ValidationError carrying a sentinel reason.
func newReasonError(field string, value interface{}, reason error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: reason.Error(),
		Value:   value,
		Err:     reason,
	}
}

// NewVariantNotFoundError rejects a write or query that names an unregistered variant.
func NewVariantNotFoundError(variantKey string) *ValidationError {
	return newReasonError("variant_key", variantKey, ErrVariantNotFound)
}

// CollaboratorError wraps a failure of normalization, annotation or persistence.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

// Error implements the error interface
func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Is makes every CollaboratorError match ErrCollaborator.
func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaborator
}

// NewCollaboratorError wraps err as a failure of the named collaborator.
func NewCollaboratorError(collaborator, op string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Op: op, Err: err}
}

// APIError is the error envelope returned by the transport layers.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ErrorCode maps an error returned by the service to its envelope code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrVariantNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrValidation):
		return ErrCodeValidation
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrUpdateConflict):
		return ErrCodeConflict
	case errors.Is(err, ErrAlreadyExists):
		return ErrCodeAlreadyExists
	case errors.Is(err, ErrCollaborator):
		return ErrExternalAPI
	default:
		return ErrInternalServer
	}
}
