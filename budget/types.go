/*
Package budget turns a project's flat budget lines into a valued tree.

PURPOSE:
  Budget lines are stored flat, each pointing at an optional parent. This
  package rebuilds the hierarchy, values every line through the tax
  calculator and rolls GROUP totals up from their children. It also owns the
  structural mutations (insert, move, delete subtree) that keep the stored
  level column consistent with the parent chain.

KEY CONCEPTS:
  Line:    One stored budget row (GROUP, ITEM or SPREAD_ITEM)
  Node:    A valued line inside a Forest, with children
  Totals:  The six aggregate fields rolled up through GROUP nodes
  Tree:    Mutable arena (id -> line) used for structural writes
  Service: Per-project serialized writes on top of a Store

SEE ALSO:
  - aggregate.go: Build (flat lines -> valued forest)
  - tree.go: Tree arena and Move/Insert/DeleteSubtree
  - service.go: Store-backed operations
  - tax/: Calculator and scheme resolution
*/
package budget

import (
	"github.com/shopspring/decimal"
	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type LineID string

type ProjectID string

// =============================================================================
// KIND
// =============================================================================

// Kind classifies a budget line.
type Kind string

const (
	// KindGroup carries no rate or quantity; its totals are its children's sum.
	KindGroup Kind = "GROUP"
	// KindItem is a priced line valued by the tax calculator.
	KindItem Kind = "ITEM"
	// KindSpreadItem is an ITEM whose cost is spread over a period.
	KindSpreadItem Kind = "SPREAD_ITEM"
)

func (k Kind) Valid() bool {
	switch k {
	case KindGroup, KindItem, KindSpreadItem:
		return true
	}
	return false
}

// IsGroup reports whether the kind aggregates its children.
func (k Kind) IsGroup() bool { return k == KindGroup }

// =============================================================================
// LINE
// =============================================================================

// Line is a stored budget row. ParentID is empty for roots.
type Line struct {
	ID        LineID
	ProjectID ProjectID
	ParentID  LineID
	SortOrder int
	Level     int

	Code string
	Name string
	Kind Kind
	Unit string

	Rate     decimal.Decimal
	Quantity decimal.Decimal

	Tax          tax.Assignment
	ContractorID tax.ContractorID

	LimitAmount decimal.Decimal
	Accrued     decimal.Decimal
	Paid        decimal.Decimal
	Closed      decimal.Decimal

	Notes string
}

func (l Line) IsRoot() bool { return l.ParentID == "" }

// TaxAssignment implements tax.Subject.
func (l Line) TaxAssignment() tax.Assignment { return l.Tax }

// TaxContractor implements tax.Subject.
func (l Line) TaxContractor() tax.ContractorID { return l.ContractorID }

// =============================================================================
// TOTALS
// =============================================================================

// Totals holds the aggregate fields of a valued node.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
	Accrued   decimal.Decimal
	Paid      decimal.Decimal
	Closed    decimal.Decimal
}

// Add returns the field-wise sum.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Subtotal:  t.Subtotal.Add(o.Subtotal),
		TaxAmount: t.TaxAmount.Add(o.TaxAmount),
		Total:     t.Total.Add(o.Total),
		Accrued:   t.Accrued.Add(o.Accrued),
		Paid:      t.Paid.Add(o.Paid),
		Closed:    t.Closed.Add(o.Closed),
	}
}

// Equal compares every field by value.
func (t Totals) Equal(o Totals) bool {
	return t.Subtotal.Equal(o.Subtotal) &&
		t.TaxAmount.Equal(o.TaxAmount) &&
		t.Total.Equal(o.Total) &&
		t.Accrued.Equal(o.Accrued) &&
		t.Paid.Equal(o.Paid) &&
		t.Closed.Equal(o.Closed)
}

// =============================================================================
// NODE
// =============================================================================

// Node is a valued line with its children in sort order.
type Node struct {
	Line     Line
	Computed Totals

	// Scheme is the effective tax scheme, empty when no tax applies.
	Scheme    tax.SchemeID
	Breakdown []tax.BreakdownItem

	Children []*Node

	// Err is set when this line could not be valued. Its valuation fields
	// are zero and it contributes nothing to its ancestors.
	Err error
	// Partial is set on every ancestor of a line with Err.
	Partial bool
}

func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }
