package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// PROJECTS
// =============================================================================

// Project is a film production owning a budget.
type Project struct {
	ID        budget.ProjectID
	Name      string
	Status    string
	CreatedAt time.Time
}

func (s *Store) SaveProject(ctx context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Status == "" {
		p.Status = "ACTIVE"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status
	`, p.ID, p.Name, p.Status, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetProject returns a project or an error wrapping ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id budget.ProjectID) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p         Project
		createdAt string
		d         decoder
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, status, created_at FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	if err != nil {
		return Project{}, fmt.Errorf("failed to get project: %w", err)
	}
	p.CreatedAt = d.time(createdAt)
	return p, d.err
}

func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, status, created_at FROM projects ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var (
			p         Project
			createdAt string
			d         decoder
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.CreatedAt = d.time(createdAt)
		if d.err != nil {
			return nil, d.err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project with its budget lines, contracts and
// shoot-day reports.
func (s *Store) DeleteProject(ctx context.Context, id budget.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, table := range []string{"production_reports", "contracts", "budget_lines"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table+" WHERE project_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete project %s: %w", table, err)
		}
	}
	res, err := sqlTx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	return sqlTx.Commit()
}

// =============================================================================
// BUDGET LINES (budget.Store interface)
// =============================================================================

const lineColumns = `id, project_id, parent_id, sort_order, level, code, name, type, unit,
	rate, quantity, tax_scheme_id, tax_override, contractor_id,
	limit_amount, accrued, paid, closed, notes`

// ListLines returns a project's lines in insertion order.
func (s *Store) ListLines(ctx context.Context, projectID budget.ProjectID) ([]budget.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLines(ctx, s.db, projectID)
}

func (s *Store) GetLine(ctx context.Context, id budget.LineID) (budget.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLine(ctx, s.db, id)
}

func (s *Store) SaveLines(ctx context.Context, lines ...budget.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := saveLines(ctx, sqlTx, lines); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) DeleteLines(ctx context.Context, ids ...budget.LineID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteLines(ctx, s.db, ids)
}

func listLines(ctx context.Context, q querier, projectID budget.ProjectID) ([]budget.Line, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+lineColumns+" FROM budget_lines WHERE project_id = ? ORDER BY rowid", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget lines: %w", err)
	}
	defer rows.Close()

	var out []budget.Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func getLine(ctx context.Context, q querier, id budget.LineID) (budget.Line, error) {
	row := q.QueryRowContext(ctx, "SELECT "+lineColumns+" FROM budget_lines WHERE id = ?", id)
	l, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return budget.Line{}, &budget.LineNotFoundError{ID: id}
	}
	return l, err
}

func saveLines(ctx context.Context, q querier, lines []budget.Line) error {
	for _, l := range lines {
		schemeID, override := l.Tax.Row()
		_, err := q.ExecContext(ctx, `
			INSERT INTO budget_lines (`+lineColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				project_id = excluded.project_id,
				parent_id = excluded.parent_id,
				sort_order = excluded.sort_order,
				level = excluded.level,
				code = excluded.code,
				name = excluded.name,
				type = excluded.type,
				unit = excluded.unit,
				rate = excluded.rate,
				quantity = excluded.quantity,
				tax_scheme_id = excluded.tax_scheme_id,
				tax_override = excluded.tax_override,
				contractor_id = excluded.contractor_id,
				limit_amount = excluded.limit_amount,
				accrued = excluded.accrued,
				paid = excluded.paid,
				closed = excluded.closed,
				notes = excluded.notes
		`,
			l.ID, l.ProjectID, nullString(string(l.ParentID)), l.SortOrder, l.Level,
			nullString(l.Code), l.Name, l.Kind, nullString(l.Unit),
			l.Rate.String(), l.Quantity.String(),
			nullString(schemeID), override, nullString(string(l.ContractorID)),
			l.LimitAmount.String(), l.Accrued.String(), l.Paid.String(), l.Closed.String(),
			nullString(l.Notes),
		)
		if err != nil {
			return fmt.Errorf("failed to save budget line %s: %w", l.ID, err)
		}
	}
	return nil
}

func deleteLines(ctx context.Context, q querier, ids []budget.LineID) error {
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, "DELETE FROM budget_lines WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete budget line %s: %w", id, err)
		}
	}
	return nil
}

func scanLine(row scanner) (budget.Line, error) {
	var (
		l                               budget.Line
		parent, code, unit, scheme      sql.NullString
		contractor, notes               sql.NullString
		override                        bool // derived from the scheme id on write
		rate, qty, limit, acc, paid, cl string
		d                               decoder
	)
	err := row.Scan(
		&l.ID, &l.ProjectID, &parent, &l.SortOrder, &l.Level, &code, &l.Name, &l.Kind, &unit,
		&rate, &qty, &scheme, &override, &contractor,
		&limit, &acc, &paid, &cl, &notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, err
		}
		return l, fmt.Errorf("failed to scan budget line: %w", err)
	}
	l.ParentID = budget.LineID(parent.String)
	l.Code = code.String
	l.Unit = unit.String
	l.Tax = tax.AssignmentFromRow(scheme.String)
	l.ContractorID = tax.ContractorID(contractor.String)
	l.Notes = notes.String
	l.Rate = d.dec(rate)
	l.Quantity = d.dec(qty)
	l.LimitAmount = d.dec(limit)
	l.Accrued = d.dec(acc)
	l.Paid = d.dec(paid)
	l.Closed = d.dec(cl)
	return l, d.err
}

// =============================================================================
// TRANSACTIONAL STORE (budget.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(budget.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) ListLines(ctx context.Context, projectID budget.ProjectID) ([]budget.Line, error) {
	return listLines(ctx, ts.tx, projectID)
}

func (ts *txStore) GetLine(ctx context.Context, id budget.LineID) (budget.Line, error) {
	return getLine(ctx, ts.tx, id)
}

func (ts *txStore) SaveLines(ctx context.Context, lines ...budget.Line) error {
	return saveLines(ctx, ts.tx, lines)
}

func (ts *txStore) DeleteLines(ctx context.Context, ids ...budget.LineID) error {
	return deleteLines(ctx, ts.tx, ids)
}
