package budget

import (
	"errors"
	"fmt"

	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCycleRejected is returned when a move would make a line its own ancestor.
	ErrCycleRejected = errors.New("move would create a parent cycle")

	// ErrLineNotFound is returned when a referenced line doesn't exist.
	ErrLineNotFound = errors.New("budget line not found")

	// ErrDuplicateLine is returned when inserting an id that already exists.
	ErrDuplicateLine = errors.New("duplicate budget line id")

	// ErrInvalidLine is returned for malformed line input.
	ErrInvalidLine = errors.New("invalid budget line")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// CycleError describes a rejected move.
type CycleError struct {
	Line      LineID
	NewParent LineID
}

func (e *CycleError) Error() string {
	if e.Line == e.NewParent {
		return fmt.Sprintf("cannot move line %s under itself", e.Line)
	}
	return fmt.Sprintf("cannot move line %s under its descendant %s", e.Line, e.NewParent)
}

func (e *CycleError) Unwrap() error { return ErrCycleRejected }

// LineNotFoundError names the missing line.
type LineNotFoundError struct {
	ID LineID
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("budget line not found: %s", e.ID)
}

func (e *LineNotFoundError) Unwrap() error { return ErrLineNotFound }

// LineFailure pairs a line with the error that stopped its valuation.
type LineFailure struct {
	ID  LineID
	Err error
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidLine) ||
		errors.Is(err, ErrDuplicateLine) ||
		tax.IsClientError(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLineNotFound) || tax.IsNotFound(err)
}

// IsConflict returns true if the error is a rejected structural change.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCycleRejected)
}
