package service

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("status not in configured pipeline")
	ErrInvalidStage  = errors.New("stage not in configured pipeline")
	ErrPersistence   = errors.New("persistence failed")
)

// ValidationError carries field-level messages safe to return to callers.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

func NewValidationError(details ...string) *ValidationError {
	return &ValidationError{Details: details}
}

// AsValidation unwraps a ValidationError if err is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
