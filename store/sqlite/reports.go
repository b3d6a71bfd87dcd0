package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/production"
	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// PRODUCTION REPORTS (production.Store interface)
// =============================================================================

const reportColumns = `id, project_id, shoot_day_number, date, location, shooting_group,
	notes, status, created_at, updated_at`

const entryColumns = `id, report_id, contractor_id, budget_line_id, contract_id, source,
	shift_start, shift_end, lunch_break_minutes, gap_minutes, overtime_hours, equipment,
	unit, quantity, rate, tax_scheme_id, tax_override, amount_net, amount_gross,
	status, created_at`

func (s *Store) SaveReport(ctx context.Context, r production.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO production_reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			shoot_day_number = excluded.shoot_day_number,
			date = excluded.date,
			location = excluded.location,
			shooting_group = excluded.shooting_group,
			notes = excluded.notes,
			status = excluded.status,
			updated_at = excluded.updated_at
	`,
		r.ID, r.ProjectID, r.ShootDayNumber, formatTime(r.Date),
		nullString(r.Location), nullString(r.ShootingGroup), nullString(r.Notes),
		r.Status, formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport returns the report with its entries in creation order.
func (s *Store) GetReport(ctx context.Context, id string) (production.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM production_reports WHERE id = ?", id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return production.Report{}, fmt.Errorf("%w: %s", production.ErrReportNotFound, id)
	}
	if err != nil {
		return production.Report{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM report_entries WHERE report_id = ? ORDER BY created_at, rowid", id)
	if err != nil {
		return production.Report{}, fmt.Errorf("failed to query report entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return production.Report{}, err
		}
		r.Entries = append(r.Entries, e)
	}
	return r, rows.Err()
}

// ListReports returns a project's reports by date, then shoot day.
// Entries are not loaded.
func (s *Store) ListReports(ctx context.Context, projectID budget.ProjectID) ([]production.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+reportColumns+" FROM production_reports WHERE project_id = ? ORDER BY date, shoot_day_number",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var out []production.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteReport removes a report. Its entries go with it.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM production_reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", production.ErrReportNotFound, id)
	}
	return nil
}

func (s *Store) SaveEntry(ctx context.Context, e production.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schemeID, override := e.Tax.Row()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contractor_id = excluded.contractor_id,
			budget_line_id = excluded.budget_line_id,
			contract_id = excluded.contract_id,
			shift_start = excluded.shift_start,
			shift_end = excluded.shift_end,
			lunch_break_minutes = excluded.lunch_break_minutes,
			gap_minutes = excluded.gap_minutes,
			overtime_hours = excluded.overtime_hours,
			equipment = excluded.equipment,
			unit = excluded.unit,
			quantity = excluded.quantity,
			rate = excluded.rate,
			tax_scheme_id = excluded.tax_scheme_id,
			tax_override = excluded.tax_override,
			amount_net = excluded.amount_net,
			amount_gross = excluded.amount_gross,
			status = excluded.status
	`,
		e.ID, e.ReportID, e.ContractorID, nullString(string(e.BudgetLineID)), nullString(e.ContractID), e.Source,
		nullString(e.ShiftStart.String()), nullString(e.ShiftEnd.String()),
		e.LunchBreakMinutes, e.GapMinutes, e.OvertimeHours.String(), nullString(e.Equipment),
		nullString(e.Unit), e.Quantity.String(), e.Rate.String(), nullString(schemeID), override,
		e.AmountNet.String(), e.AmountGross.String(), e.Status, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save report entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (production.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM report_entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return production.Entry{}, fmt.Errorf("%w: %s", production.ErrEntryNotFound, id)
	}
	return e, err
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM report_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete report entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", production.ErrEntryNotFound, id)
	}
	return nil
}

func scanReport(row scanner) (production.Report, error) {
	var (
		r                          production.Report
		date, createdAt, updatedAt string
		location, group, notes     sql.NullString
		d                          decoder
	)
	err := row.Scan(&r.ID, &r.ProjectID, &r.ShootDayNumber, &date, &location, &group,
		&notes, &r.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan report: %w", err)
	}
	r.Location = location.String
	r.ShootingGroup = group.String
	r.Notes = notes.String
	r.Date = d.time(date)
	r.CreatedAt = d.time(createdAt)
	r.UpdatedAt = d.time(updatedAt)
	return r, d.err
}

func scanEntry(row scanner) (production.Entry, error) {
	var (
		e                                 production.Entry
		line, contractID, equipment, unit sql.NullString
		start, end, scheme                sql.NullString
		override                          bool // derived from the scheme id on write
		overtime, qty, rate, net, gross   string
		createdAt                         string
		d                                 decoder
	)
	err := row.Scan(
		&e.ID, &e.ReportID, &e.ContractorID, &line, &contractID, &e.Source,
		&start, &end, &e.LunchBreakMinutes, &e.GapMinutes, &overtime, &equipment,
		&unit, &qty, &rate, &scheme, &override, &net, &gross,
		&e.Status, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan report entry: %w", err)
	}
	e.BudgetLineID = budget.LineID(line.String)
	e.ContractID = contractID.String
	e.Equipment = equipment.String
	e.Unit = unit.String
	e.Tax = tax.AssignmentFromRow(scheme.String)
	if e.ShiftStart, err = production.ParseClock(start.String); err != nil {
		return e, err
	}
	if e.ShiftEnd, err = production.ParseClock(end.String); err != nil {
		return e, err
	}
	e.OvertimeHours = d.dec(overtime)
	e.Quantity = d.dec(qty)
	e.Rate = d.dec(rate)
	e.AmountNet = d.dec(net)
	e.AmountGross = d.dec(gross)
	e.CreatedAt = d.time(createdAt)
	return e, d.err
}
