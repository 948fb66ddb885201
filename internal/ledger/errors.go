package ledger

import (
	"errors"
	"fmt"
)

// Ledger failure kinds
var (
	// ErrDuplicateID is returned when a bill id has already been admitted.
	ErrDuplicateID = errors.New("bill id already exists")

	// ErrPersistence is returned when the durable store cannot be read or written.
	ErrPersistence = errors.New("ledger persistence failed")

	// ErrStoreCorrupt is returned when the durable store exists but cannot be
	// parsed or violates the ledger schema.
	ErrStoreCorrupt = errors.New("ledger store is corrupt")
)

// DuplicateIDError reports the id that was already present.
type DuplicateIDError struct {
	ID string
}

// Error implements the error interface.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("ledger: bill ID '%s' already exists", e.ID)
}

// Is implements error matching for Go 1.13+ error handling.
func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// Error wraps store failures with the operation and failure kind.
type Error struct {
	// Op is the operation that failed (e.g., "Load", "Admit").
	Op string

	// Kind is ErrPersistence or ErrStoreCorrupt.
	Kind error

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ledger: %s failed: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the failure kind as well as anything in the cause chain.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// Corrupt marks err as a malformed-store failure. Store implementations use it
// for parse and schema errors so the ledger can tell them from I/O failures.
func Corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStoreCorrupt, fmt.Sprintf(format, args...))
}

func persistenceError(op string, err error) error {
	return &Error{Op: op, Kind: ErrPersistence, Err: err}
}

func loadError(err error) error {
	if errors.Is(err, ErrStoreCorrupt) {
		return &Error{Op: "Load", Kind: ErrStoreCorrupt, Err: err}
	}
	return &Error{Op: "Load", Kind: ErrPersistence, Err: err}
}
