package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Verification workflow specific errors.
	ErrSessionFinalized  = New("SESSION_FINALIZED", http.StatusConflict, "verification session already finalized")
	ErrSectionIncomplete = New("SECTION_INCOMPLETE", http.StatusPreconditionFailed, "current section has unreviewed fields")
	ErrUnknownField      = New("UNKNOWN_FIELD", http.StatusBadRequest, "field is not part of the section schema")

	// Academic record specific errors.
	ErrDuplicateSemester   = New("DUPLICATE_SEMESTER", http.StatusConflict, "an academic record for this semester already exists")
	ErrDuplicateEnrollment = New("DUPLICATE_ENROLLMENT", http.StatusConflict, "enrollment number already registered")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// ValidationFailure captures a single per-field validation problem.
type ValidationFailure struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationErrors bundles per-field failures into one typed error so a
// caller can re-render the form without losing the submitted data.
func ValidationErrors(failures []ValidationFailure) *Error {
	e := Clone(ErrValidation, "")
	if len(failures) == 1 {
		e.Message = fmt.Sprintf("%s: %s", failures[0].Field, failures[0].Reason)
	} else {
		e.Message = fmt.Sprintf("%d fields failed validation", len(failures))
	}
	e.Err = &fieldErrors{failures: failures}
	return e
}

// FailuresFrom extracts per-field failures when err carries them.
func FailuresFrom(err error) []ValidationFailure {
	var fe *fieldErrors
	if errors.As(err, &fe) {
		return fe.failures
	}
	return nil
}

type fieldErrors struct {
	failures []ValidationFailure
}

func (f *fieldErrors) Error() string {
	return fmt.Sprintf("%d field validation failures", len(f.failures))
}
