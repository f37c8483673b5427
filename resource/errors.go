package resource

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrInvalidResource is returned when an instance does not conform to its
// class declaration, or cannot be created from it.
var ErrInvalidResource = errors.New("concerto: invalid resource")

// ValidationError reports an instance that violates its model.
type ValidationError struct {
	Instance string // fully qualified identifier, or type for concepts
	Property string // may be empty
	Message  string
	Cause    error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return "concerto: " + e.Message + ": " + e.Cause.Error()
	}
	return "concerto: " + e.Message
}

// Is reports whether the target matches ErrInvalidResource.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidResource
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError returns a new ValidationError.
func NewValidationError(instance, property, message string) *ValidationError {
	return &ValidationError{Instance: instance, Property: property, Message: message}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

func violationf(instance, property, format string, args ...any) *ValidationError {
	return NewValidationError(instance, property, fmt.Sprintf(format, args...))
}
