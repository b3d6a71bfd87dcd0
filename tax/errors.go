/*
errors.go - Error types for tax calculation and scheme resolution

ERROR CATEGORIES:
  1. Calculation errors - A component cannot be applied (bad rate)
  2. Resolution errors - A referenced scheme does not exist
  3. Write-path errors - An assignment change is not representable
  4. Catalog errors - System schemes are read-only

Calculation and resolution errors are per line: callers attach them to the
line being valued and keep valuing the rest of the budget.
*/
package tax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTaxRate is returned when an INTERNAL component's rate is
	// outside [0, 1) or any component's rate is negative.
	ErrInvalidTaxRate = errors.New("invalid tax rate")

	// ErrInvalidScheme is returned when a scheme definition is malformed.
	ErrInvalidScheme = errors.New("invalid tax scheme")

	// ErrSchemeNotFound is returned when an assignment points to a missing scheme.
	ErrSchemeNotFound = errors.New("tax scheme not found")

	// ErrOverrideWithoutScheme is returned when a write asks for an explicit
	// override but no scheme can be pinned.
	ErrOverrideWithoutScheme = errors.New("tax override requires a scheme")

	// ErrSystemScheme is returned when trying to modify or delete a system scheme.
	ErrSystemScheme = errors.New("system tax scheme is read-only")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRateError names the offending component.
type InvalidRateError struct {
	Component string
	Mode      Mode
	Rate      decimal.Decimal
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid tax rate: %s component %q has rate %s", e.Mode, e.Component, e.Rate)
}

func (e *InvalidRateError) Unwrap() error {
	return ErrInvalidTaxRate
}

// SchemeNotFoundError carries the missing scheme id.
type SchemeNotFoundError struct {
	ID SchemeID
}

func (e *SchemeNotFoundError) Error() string {
	return fmt.Sprintf("tax scheme not found: %s", e.ID)
}

func (e *SchemeNotFoundError) Unwrap() error {
	return ErrSchemeNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTaxRate) ||
		errors.Is(err, ErrInvalidScheme) ||
		errors.Is(err, ErrOverrideWithoutScheme)
}

// IsNotFound returns true if the error indicates a missing scheme.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSchemeNotFound)
}
