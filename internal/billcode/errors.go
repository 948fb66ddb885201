package billcode

import (
	"errors"
	"fmt"
)

// Common encoding errors
var (
	// ErrPayloadTooLarge is returned when the bill payload does not fit the
	// largest QR code version at the configured error correction level.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum QR code capacity")

	// ErrInvalidColor is returned when a foreground or background colour
	// cannot be parsed.
	ErrInvalidColor = errors.New("invalid colour")

	// ErrWriteArtifact is returned when the rendered image cannot be written.
	ErrWriteArtifact = errors.New("failed to write QR code artifact")
)

// EncodingError wraps errors with additional context about encoding failures.
type EncodingError struct {
	// Op is the operation that failed (e.g., "Encode", "NewEncoder").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("billcode: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("billcode: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *EncodingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEncodingError creates a new EncodingError.
func NewEncodingError(op string, err error, details string) *EncodingError {
	return &EncodingError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}
