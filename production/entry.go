package production

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/tax"
)

var (
	ErrInvalidEntry   = errors.New("invalid report entry")
	ErrInvalidReport  = errors.New("invalid production report")
	ErrReportNotFound = errors.New("production report not found")
	ErrEntryNotFound  = errors.New("report entry not found")
)

// Source records how an entry was captured.
type Source string

const (
	SourceManual    Source = "MANUAL"
	SourceBot       Source = "TG_BOT"
	SourceAssistant Source = "ASSISTANT"
)

type EntryStatus string

const (
	EntryPending   EntryStatus = "PENDING"
	EntryApproved  EntryStatus = "APPROVED"
	EntryInPayment EntryStatus = "IN_PAYMENT"
	EntryPaid      EntryStatus = "PAID"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryPending, EntryApproved, EntryInPayment, EntryPaid:
		return true
	}
	return false
}

const (
	DefaultLunchMinutes = 60
	DefaultUnit         = "смена"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one contractor's shift on a report.
type Entry struct {
	ID           string
	ReportID     string
	ContractorID tax.ContractorID
	BudgetLineID budget.LineID
	ContractID   string
	Source       Source

	ShiftStart        ClockTime
	ShiftEnd          ClockTime
	LunchBreakMinutes int
	GapMinutes        int
	OvertimeHours     decimal.Decimal
	Equipment         string

	Unit     string
	Quantity decimal.Decimal
	Rate     decimal.Decimal
	Tax      tax.Assignment

	AmountNet   decimal.Decimal
	AmountGross decimal.Decimal

	Status    EntryStatus
	CreatedAt time.Time
}

// TaxAssignment implements tax.Subject.
func (e Entry) TaxAssignment() tax.Assignment { return e.Tax }

// TaxContractor implements tax.Subject.
func (e Entry) TaxContractor() tax.ContractorID { return e.ContractorID }

func (e Entry) Validate() error {
	switch {
	case e.ContractorID == "":
		return fmt.Errorf("%w: contractor is required", ErrInvalidEntry)
	case e.Quantity.IsNegative():
		return fmt.Errorf("%w: negative quantity", ErrInvalidEntry)
	case e.Rate.IsNegative():
		return fmt.Errorf("%w: negative rate", ErrInvalidEntry)
	case e.LunchBreakMinutes < 0 || e.GapMinutes < 0:
		return fmt.Errorf("%w: negative break", ErrInvalidEntry)
	case !e.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, e.Status)
	}
	return nil
}

// Valuate recomputes overtime and the net and gross amounts.
//
//	net   = round(rate * quantity, 2)
//	gross = net when no tax applies, else the calculator total
//
// A resolution or calculation failure leaves the entry unchanged.
func (e *Entry) Valuate(resolver budget.ComponentResolver, baseShiftHours decimal.Decimal) error {
	var components []tax.Component
	if resolver != nil {
		var err error
		if components, err = resolver.Resolve(e); err != nil {
			return err
		}
	}

	net := e.Rate.Mul(e.Quantity).RoundBank(2)
	gross := net
	if len(components) > 0 {
		res, err := tax.Calc(e.Rate, e.Quantity, components)
		if err != nil {
			return err
		}
		net, gross = res.Subtotal, res.Total
	}

	e.OvertimeHours = Overtime(e.ShiftStart, e.ShiftEnd, e.LunchBreakMinutes, e.GapMinutes, baseShiftHours)
	e.AmountNet = net
	e.AmountGross = gross
	return nil
}

// =============================================================================
// REPORT
// =============================================================================

type ReportStatus string

const (
	ReportDraft     ReportStatus = "DRAFT"
	ReportSubmitted ReportStatus = "SUBMITTED"
	ReportApproved  ReportStatus = "APPROVED"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportDraft, ReportSubmitted, ReportApproved:
		return true
	}
	return false
}

// Report is one shoot day.
type Report struct {
	ID             string
	ProjectID      budget.ProjectID
	ShootDayNumber int
	Date           time.Time
	Location       string
	ShootingGroup  string
	Notes          string
	Status         ReportStatus
	Entries        []Entry
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r Report) Validate() error {
	switch {
	case r.ProjectID == "":
		return fmt.Errorf("%w: project is required", ErrInvalidReport)
	case r.ShootDayNumber <= 0:
		return fmt.Errorf("%w: shoot day number must be positive", ErrInvalidReport)
	case r.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidReport)
	case !r.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidReport, r.Status)
	}
	return nil
}

// Totals sums net and gross over the entries.
func (r Report) Totals() (net, gross decimal.Decimal) {
	net, gross = decimal.Zero, decimal.Zero
	for _, e := range r.Entries {
		net = net.Add(e.AmountNet)
		gross = gross.Add(e.AmountGross)
	}
	return net, gross
}

// OvertimeHours sums overtime over the entries.
func (r Report) OvertimeHours() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Entries {
		total = total.Add(e.OvertimeHours)
	}
	return total
}
