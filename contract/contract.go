/*
Package contract models agreements with contractors inside a project.

PURPOSE:
  A contract links a contractor to one or more budget lines and, like a
  budget line, either pins its own tax scheme or inherits the contractor's
  default. Creation and updates go through the same tax write path as
  budget lines (tax.ApplyWrite).

CREATE RULES:
  scheme given               -> Explicit(scheme)
  no scheme, override=true   -> Explicit(contractor default), error if none
  no scheme, no override     -> Inherited

SEE ALSO:
  - tax/resolver.go: Assignment and ApplyWrite
  - service.go: Store-backed create/update
*/
package contract

import (
	"errors"
	"fmt"
	"time"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/tax"
)

type ID string

// PaymentType says how the contractor is paid.
type PaymentType string

const (
	PaymentSalary   PaymentType = "SALARY"
	PaymentPerShift PaymentType = "PER_SHIFT"
	PaymentPeriodic PaymentType = "PERIODIC"
)

func (p PaymentType) Valid() bool {
	switch p {
	case PaymentSalary, PaymentPerShift, PaymentPeriodic:
		return true
	}
	return false
}

type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusClosed:
		return true
	}
	return false
}

const DefaultCurrency = "RUB"

var (
	ErrInvalidContract  = errors.New("invalid contract")
	ErrContractNotFound = errors.New("contract not found")
)

// =============================================================================
// CONTRACT
// =============================================================================

type Contract struct {
	ID            ID
	Number        string
	ProjectID     budget.ProjectID
	ContractorID  tax.ContractorID
	PaymentType   PaymentType
	PaymentPeriod string
	Currency      string
	Status        Status

	SignedAt  *time.Time
	ValidFrom *time.Time
	ValidTo   *time.Time

	Tax           tax.Assignment
	Notes         string
	BudgetLineIDs []budget.LineID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaxAssignment implements tax.Subject.
func (c Contract) TaxAssignment() tax.Assignment { return c.Tax }

// TaxContractor implements tax.Subject.
func (c Contract) TaxContractor() tax.ContractorID { return c.ContractorID }

func (c Contract) Validate() error {
	switch {
	case c.Number == "":
		return fmt.Errorf("%w: number is required", ErrInvalidContract)
	case c.ProjectID == "":
		return fmt.Errorf("%w: project is required", ErrInvalidContract)
	case c.ContractorID == "":
		return fmt.Errorf("%w: contractor is required", ErrInvalidContract)
	case !c.PaymentType.Valid():
		return fmt.Errorf("%w: unknown payment type %q", ErrInvalidContract, c.PaymentType)
	case !c.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidContract, c.Status)
	case c.ValidFrom != nil && c.ValidTo != nil && c.ValidTo.Before(*c.ValidFrom):
		return fmt.Errorf("%w: valid_to before valid_from", ErrInvalidContract)
	}
	return nil
}

// =============================================================================
// CREATE / UPDATE
// =============================================================================

// Input is the create payload.
type Input struct {
	Number        string
	ProjectID     budget.ProjectID
	ContractorID  tax.ContractorID
	PaymentType   PaymentType
	PaymentPeriod string
	Currency      string
	Status        Status
	SignedAt      *time.Time
	ValidFrom     *time.Time
	ValidTo       *time.Time
	TaxSchemeID   tax.SchemeID
	TaxOverride   bool
	Notes         string
	BudgetLineIDs []budget.LineID
}

// New builds a contract. contractorDefault is the default scheme of
// in.ContractorID, empty if it has none.
func New(id ID, in Input, contractorDefault tax.SchemeID, now time.Time) (Contract, error) {
	w := tax.AssignmentWrite{SchemeSet: in.TaxSchemeID != "", SchemeID: in.TaxSchemeID}
	if in.TaxOverride {
		w.Override = &in.TaxOverride
	}
	assignment, err := tax.ApplyWrite(tax.Inherited(), w, contractorDefault)
	if err != nil {
		return Contract{}, err
	}

	c := Contract{
		ID:            id,
		Number:        in.Number,
		ProjectID:     in.ProjectID,
		ContractorID:  in.ContractorID,
		PaymentType:   in.PaymentType,
		PaymentPeriod: in.PaymentPeriod,
		Currency:      in.Currency,
		Status:        in.Status,
		SignedAt:      in.SignedAt,
		ValidFrom:     in.ValidFrom,
		ValidTo:       in.ValidTo,
		Tax:           assignment,
		Notes:         in.Notes,
		BudgetLineIDs: dedupe(in.BudgetLineIDs),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.Status == "" {
		c.Status = StatusDraft
	}
	if err := c.Validate(); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// Patch lists the fields an update touches. Nil fields are unchanged.
type Patch struct {
	Number        *string
	ContractorID  *tax.ContractorID
	PaymentType   *PaymentType
	PaymentPeriod *string
	Currency      *string
	Status        *Status
	SignedAt      *time.Time
	ValidFrom     *time.Time
	ValidTo       *time.Time
	Tax           tax.AssignmentWrite
	Notes         *string
	BudgetLineIDs *[]budget.LineID
}

// Update applies p to c. contractorDefault is the default scheme of the
// contractor c is linked to after the patch.
func Update(c Contract, p Patch, contractorDefault tax.SchemeID, now time.Time) (Contract, error) {
	if p.Number != nil {
		c.Number = *p.Number
	}
	if p.ContractorID != nil {
		c.ContractorID = *p.ContractorID
	}
	if p.PaymentType != nil {
		c.PaymentType = *p.PaymentType
	}
	if p.PaymentPeriod != nil {
		c.PaymentPeriod = *p.PaymentPeriod
	}
	if p.Currency != nil {
		c.Currency = *p.Currency
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.SignedAt != nil {
		c.SignedAt = p.SignedAt
	}
	if p.ValidFrom != nil {
		c.ValidFrom = p.ValidFrom
	}
	if p.ValidTo != nil {
		c.ValidTo = p.ValidTo
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.BudgetLineIDs != nil {
		c.BudgetLineIDs = dedupe(*p.BudgetLineIDs)
	}

	assignment, err := tax.ApplyWrite(c.Tax, p.Tax, contractorDefault)
	if err != nil {
		return Contract{}, err
	}
	c.Tax = assignment
	c.UpdatedAt = now

	if err := c.Validate(); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// LinkedTotals sums the valued budget lines the contract is linked to.
// Links to lines missing from the forest are returned separately.
func (c Contract) LinkedTotals(f budget.Forest) (budget.Totals, []budget.LineID) {
	var (
		sum     budget.Totals
		missing []budget.LineID
	)
	for _, id := range c.BudgetLineIDs {
		n := f.Find(id)
		if n == nil {
			missing = append(missing, id)
			continue
		}
		sum = sum.Add(n.Computed)
	}
	return sum, missing
}

func dedupe(ids []budget.LineID) []budget.LineID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[budget.LineID]bool, len(ids))
	out := make([]budget.LineID, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
