/*
Package tax provides the tax model and calculator for budget lines.

PURPOSE:
  A tax scheme is an ordered stack of tax components. Each component is
  either INTERNAL (already embedded in the quoted rate, recovered by
  grossing up) or EXTERNAL (added on top of the quoted rate). The same
  calculator values budget lines, contracts and production report entries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Component: One named tax rule (rate, mode, recipient, stacking order)
  - Scheme: Named, ordered collection of components, system or user-defined
  - BreakdownItem / Result: Calculator output, per unit and scaled

DESIGN PRINCIPLES:
  1. Precision: All money and rates are decimal.Decimal, never float64
  2. Floor per unit: Tax is floored to the currency unit per unit, then scaled
  3. Order matters: Components are applied in their declared order

USAGE:
  scheme := tax.Scheme{
      Name: "ФЛ",
      Components: []tax.Component{
          {Name: "НДФЛ", Rate: decimal.RequireFromString("0.13"), Mode: tax.Internal, Recipient: tax.RecipientBudget},
          {Name: "Страховые", Rate: decimal.RequireFromString("0.30"), Mode: tax.External, Recipient: tax.RecipientBudget, Order: 1},
      },
  }
  res, err := tax.Calc(rate, quantity, scheme.Ordered())

SEE ALSO:
  - calculator.go: Calc and CalcPerUnit
  - resolver.go: Which scheme applies to a line, contract or report entry
  - schemes.go: Built-in system schemes
*/
package tax

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SchemeID string
type ContractorID string

// =============================================================================
// COMPONENT
// =============================================================================

// Mode says how a component relates to the quoted rate.
type Mode string

const (
	// Internal taxes are embedded in the quoted rate and recovered by gross-up.
	Internal Mode = "INTERNAL"
	// External taxes are added on top of the quoted rate.
	External Mode = "EXTERNAL"
)

func (m Mode) Valid() bool { return m == Internal || m == External }

// Recipient says who effectively bears a tax portion.
type Recipient string

const (
	RecipientContractor Recipient = "CONTRACTOR"
	RecipientBudget     Recipient = "BUDGET"
)

func (r Recipient) Valid() bool { return r == RecipientContractor || r == RecipientBudget }

// Component is one named tax rule. Rate is a fraction (0.06 for 6%).
type Component struct {
	Name      string
	Rate      decimal.Decimal
	Mode      Mode
	Recipient Recipient
	Order     int
}

// Validate checks the rate against the component mode.
// INTERNAL rates must lie in [0, 1); EXTERNAL rates must be non-negative.
func (c Component) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: component %q has unknown mode %q", ErrInvalidScheme, c.Name, c.Mode)
	}
	if c.Rate.IsNegative() {
		return &InvalidRateError{Component: c.Name, Mode: c.Mode, Rate: c.Rate}
	}
	if c.Mode == Internal && c.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return &InvalidRateError{Component: c.Name, Mode: c.Mode, Rate: c.Rate}
	}
	return nil
}

// =============================================================================
// SCHEME
// =============================================================================

// Scheme is a named, ordered collection of components.
// System schemes are immutable and cannot be deleted.
type Scheme struct {
	ID         SchemeID
	Name       string
	IsSystem   bool
	Components []Component
}

// Ordered returns the components sorted by Order. Ties keep declaration order.
func (s Scheme) Ordered() []Component {
	out := make([]Component, len(s.Components))
	copy(out, s.Components)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Validate checks the scheme before it is persisted.
func (s Scheme) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScheme)
	}
	for _, c := range s.Components {
		if c.Name == "" {
			return fmt.Errorf("%w: component name is required", ErrInvalidScheme)
		}
		if !c.Recipient.Valid() {
			return fmt.Errorf("%w: component %q has unknown recipient %q", ErrInvalidScheme, c.Name, c.Recipient)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// CALCULATION RESULT
// =============================================================================

// BreakdownItem is the contribution of a single component.
type BreakdownItem struct {
	Name          string
	Rate          decimal.Decimal
	Mode          Mode
	Recipient     Recipient
	AmountPerUnit decimal.Decimal
	AmountTotal   decimal.Decimal
}

// PerUnit is the valuation of one unit before scaling by quantity.
type PerUnit struct {
	Net       decimal.Decimal
	Tax       decimal.Decimal
	Gross     decimal.Decimal
	Breakdown []BreakdownItem
}

// Result is the valuation of rate x quantity under a component stack.
type Result struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
	PerUnit   PerUnit
	Breakdown []BreakdownItem
}

// TaxFor sums the breakdown amounts that land on the given recipient.
func (r Result) TaxFor(recipient Recipient) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range r.Breakdown {
		if b.Recipient == recipient {
			sum = sum.Add(b.AmountTotal)
		}
	}
	return sum
}
