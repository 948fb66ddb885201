package validation

import (
	"errors"
	"fmt"
)

// Validation failure reasons
var (
	// ErrEmptyCustomerName is returned when the customer name is blank.
	ErrEmptyCustomerName = errors.New("customer name cannot be empty")

	// ErrEmptyID is returned when the bill id is blank.
	ErrEmptyID = errors.New("bill id cannot be empty")

	// ErrNoItems is returned when a bill has no line items.
	ErrNoItems = errors.New("at least one item must be added")

	// ErrInvalidPrice is returned when an item's unit price is zero or negative.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrInvalidQuantity is returned when an item's quantity is zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// ValidationError describes the first failed check on candidate bill data.
type ValidationError struct {
	// Reason is one of the Err* sentinels above.
	Reason error

	// Item is the offending item name for price and quantity failures.
	Item string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("validation: %s: %v", e.Item, e.Reason)
	}
	return fmt.Sprintf("validation: %v", e.Reason)
}

// Unwrap returns the failure reason.
func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ValidationError) Is(target error) bool {
	return errors.Is(e.Reason, target)
}

// InvalidPrice builds the error for an item with a non-positive unit price.
func InvalidPrice(item string) *ValidationError {
	return &ValidationError{Reason: ErrInvalidPrice, Item: item}
}

// InvalidQuantity builds the error for an item with a non-positive quantity.
func InvalidQuantity(item string) *ValidationError {
	return &ValidationError{Reason: ErrInvalidQuantity, Item: item}
}
