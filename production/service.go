package production

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/tax"
)

// Store persists reports and their entries.
type Store interface {
	// SaveReport inserts or replaces the report row. Entries are not touched.
	SaveReport(ctx context.Context, r Report) error
	// GetReport returns the report with its entries in creation order, or an
	// error wrapping ErrReportNotFound.
	GetReport(ctx context.Context, id string) (Report, error)
	// ListReports returns a project's reports by date, then shoot day.
	ListReports(ctx context.Context, projectID budget.ProjectID) ([]Report, error)
	// DeleteReport removes the report and its entries, or returns an error
	// wrapping ErrReportNotFound.
	DeleteReport(ctx context.Context, id string) error
	SaveEntry(ctx context.Context, e Entry) error
	// GetEntry returns an error wrapping ErrEntryNotFound when id is unknown.
	GetEntry(ctx context.Context, id string) (Entry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// Service creates reports and values their entries.
type Service struct {
	store     Store
	catalog   budget.CatalogSource
	logger    *zap.Logger
	baseShift decimal.Decimal
	now       func() time.Time
}

func NewService(store Store, catalog budget.CatalogSource, logger *zap.Logger, baseShiftHours decimal.Decimal) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !baseShiftHours.IsPositive() {
		baseShiftHours = DefaultBaseShiftHours
	}
	return &Service{store: store, catalog: catalog, logger: logger, baseShift: baseShiftHours, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BaseShiftHours is the shift length overtime is measured against.
func (s *Service) BaseShiftHours() decimal.Decimal { return s.baseShift }

// ReportInput is the create payload for a report.
type ReportInput struct {
	ProjectID      budget.ProjectID
	ShootDayNumber int
	Date           time.Time
	Location       string
	ShootingGroup  string
	Notes          string
	Status         ReportStatus
}

func (s *Service) CreateReport(ctx context.Context, in ReportInput) (Report, error) {
	now := s.now().UTC()
	r := Report{
		ID:             uuid.NewString(),
		ProjectID:      in.ProjectID,
		ShootDayNumber: in.ShootDayNumber,
		Date:           in.Date,
		Location:       in.Location,
		ShootingGroup:  in.ShootingGroup,
		Notes:          in.Notes,
		Status:         in.Status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if r.Status == "" {
		r.Status = ReportDraft
	}
	if err := r.Validate(); err != nil {
		return Report{}, err
	}
	if err := s.store.SaveReport(ctx, r); err != nil {
		return Report{}, fmt.Errorf("save report: %w", err)
	}
	return r, nil
}

func (s *Service) GetReport(ctx context.Context, id string) (Report, error) {
	return s.store.GetReport(ctx, id)
}

func (s *Service) ListReports(ctx context.Context, projectID budget.ProjectID) ([]Report, error) {
	return s.store.ListReports(ctx, projectID)
}

// ReportPatch changes the header of a report. Nil fields are left as is.
type ReportPatch struct {
	ShootDayNumber *int
	Date           *time.Time
	Location       *string
	ShootingGroup  *string
	Notes          *string
	Status         *ReportStatus
}

func (s *Service) UpdateReport(ctx context.Context, id string, p ReportPatch) (Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if p.ShootDayNumber != nil {
		r.ShootDayNumber = *p.ShootDayNumber
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Location != nil {
		r.Location = *p.Location
	}
	if p.ShootingGroup != nil {
		r.ShootingGroup = *p.ShootingGroup
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if err := r.Validate(); err != nil {
		return Report{}, err
	}
	r.UpdatedAt = s.now().UTC()
	if err := s.store.SaveReport(ctx, r); err != nil {
		return Report{}, fmt.Errorf("save report: %w", err)
	}
	return r, nil
}

// DeleteReport removes a report together with its entries.
func (s *Service) DeleteReport(ctx context.Context, id string) error {
	if err := s.store.DeleteReport(ctx, id); err != nil {
		return err
	}
	s.logger.Info("production report deleted", zap.String("report_id", id))
	return nil
}

// EntryInput is the create payload for an entry. Nil pointers take the
// defaults: 60 minutes lunch, quantity 1.
type EntryInput struct {
	ContractorID      tax.ContractorID
	BudgetLineID      budget.LineID
	ContractID        string
	Source            Source
	ShiftStart        ClockTime
	ShiftEnd          ClockTime
	LunchBreakMinutes *int
	GapMinutes        int
	Equipment         string
	Unit              string
	Quantity          *decimal.Decimal
	Rate              decimal.Decimal
	TaxSchemeID       tax.SchemeID
}

// AddEntry values a shift and appends it to the report.
func (s *Service) AddEntry(ctx context.Context, reportID string, in EntryInput) (Entry, error) {
	if _, err := s.store.GetReport(ctx, reportID); err != nil {
		return Entry{}, err
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("load tax catalog: %w", err)
	}
	if in.TaxSchemeID != "" {
		if _, ok := catalog.LookupScheme(in.TaxSchemeID); !ok {
			return Entry{}, &tax.SchemeNotFoundError{ID: in.TaxSchemeID}
		}
	}

	e := Entry{
		ID:                uuid.NewString(),
		ReportID:          reportID,
		ContractorID:      in.ContractorID,
		BudgetLineID:      in.BudgetLineID,
		ContractID:        in.ContractID,
		Source:            in.Source,
		ShiftStart:        in.ShiftStart,
		ShiftEnd:          in.ShiftEnd,
		LunchBreakMinutes: DefaultLunchMinutes,
		GapMinutes:        in.GapMinutes,
		Equipment:         in.Equipment,
		Unit:              in.Unit,
		Quantity:          decimal.NewFromInt(1),
		Rate:              in.Rate,
		Tax:               tax.Explicit(in.TaxSchemeID),
		Status:            EntryPending,
		CreatedAt:         s.now().UTC(),
	}
	if in.LunchBreakMinutes != nil {
		e.LunchBreakMinutes = *in.LunchBreakMinutes
	}
	if in.Quantity != nil {
		e.Quantity = *in.Quantity
	}
	if e.Source == "" {
		e.Source = SourceManual
	}
	if e.Unit == "" {
		e.Unit = DefaultUnit
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	if err := e.Valuate(catalog.Resolver(), s.baseShift); err != nil {
		return Entry{}, fmt.Errorf("value entry: %w", err)
	}
	if err := s.store.SaveEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("save entry: %w", err)
	}
	s.logger.Debug("report entry added",
		zap.String("report_id", reportID),
		zap.String("entry_id", e.ID),
		zap.String("overtime_hours", e.OvertimeHours.String()))
	return e, nil
}

// EntryPatch changes an entry. Nil fields are left as is. TaxSchemeID set to
// "" makes the entry inherit its contractor's default.
type EntryPatch struct {
	ContractorID      *tax.ContractorID
	BudgetLineID      *budget.LineID
	ContractID        *string
	ShiftStart        *ClockTime
	ShiftEnd          *ClockTime
	LunchBreakMinutes *int
	GapMinutes        *int
	Equipment         *string
	Unit              *string
	Quantity          *decimal.Decimal
	Rate              *decimal.Decimal
	TaxSchemeID       *tax.SchemeID
	Status            *EntryStatus
}

func (p EntryPatch) revalues() bool {
	return p.Rate != nil || p.Quantity != nil || p.TaxSchemeID != nil || p.ContractorID != nil
}

func (p EntryPatch) reshifts() bool {
	return p.ShiftStart != nil || p.ShiftEnd != nil || p.LunchBreakMinutes != nil || p.GapMinutes != nil
}

// UpdateEntry applies p. Amounts are revalued when the rate, quantity,
// scheme or contractor change; overtime is recomputed when the shift does.
func (s *Service) UpdateEntry(ctx context.Context, id string, p EntryPatch) (Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("load tax catalog: %w", err)
	}
	if p.TaxSchemeID != nil && *p.TaxSchemeID != "" {
		if _, ok := catalog.LookupScheme(*p.TaxSchemeID); !ok {
			return Entry{}, &tax.SchemeNotFoundError{ID: *p.TaxSchemeID}
		}
	}

	if p.ContractorID != nil {
		e.ContractorID = *p.ContractorID
	}
	if p.BudgetLineID != nil {
		e.BudgetLineID = *p.BudgetLineID
	}
	if p.ContractID != nil {
		e.ContractID = *p.ContractID
	}
	if p.ShiftStart != nil {
		e.ShiftStart = *p.ShiftStart
	}
	if p.ShiftEnd != nil {
		e.ShiftEnd = *p.ShiftEnd
	}
	if p.LunchBreakMinutes != nil {
		e.LunchBreakMinutes = *p.LunchBreakMinutes
	}
	if p.GapMinutes != nil {
		e.GapMinutes = *p.GapMinutes
	}
	if p.Equipment != nil {
		e.Equipment = *p.Equipment
	}
	if p.Unit != nil {
		e.Unit = *p.Unit
	}
	if p.Quantity != nil {
		e.Quantity = *p.Quantity
	}
	if p.Rate != nil {
		e.Rate = *p.Rate
	}
	if p.TaxSchemeID != nil {
		e.Tax = tax.Explicit(*p.TaxSchemeID)
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}

	switch {
	case p.revalues():
		if err := e.Valuate(catalog.Resolver(), s.baseShift); err != nil {
			return Entry{}, fmt.Errorf("value entry: %w", err)
		}
	case p.reshifts():
		e.OvertimeHours = Overtime(e.ShiftStart, e.ShiftEnd, e.LunchBreakMinutes, e.GapMinutes, s.baseShift)
	}
	if err := s.store.SaveEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("save entry: %w", err)
	}
	s.logger.Debug("report entry updated",
		zap.String("entry_id", e.ID),
		zap.Bool("revalued", p.revalues()))
	return e, nil
}

func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	return s.store.DeleteEntry(ctx, id)
}
