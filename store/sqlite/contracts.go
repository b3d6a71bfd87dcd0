package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/contract"
	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// CONTRACTS (contract.Store interface)
// =============================================================================

const contractColumns = `id, number, project_id, contractor_id, payment_type, payment_period,
	currency, status, signed_at, valid_from, valid_to, tax_scheme_id, tax_override,
	notes, created_at, updated_at`

// SaveContract inserts or replaces a contract and rewrites its line links.
func (s *Store) SaveContract(ctx context.Context, c contract.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	schemeID, override := c.Tax.Row()
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			project_id = excluded.project_id,
			contractor_id = excluded.contractor_id,
			payment_type = excluded.payment_type,
			payment_period = excluded.payment_period,
			currency = excluded.currency,
			status = excluded.status,
			signed_at = excluded.signed_at,
			valid_from = excluded.valid_from,
			valid_to = excluded.valid_to,
			tax_scheme_id = excluded.tax_scheme_id,
			tax_override = excluded.tax_override,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`,
		c.ID, c.Number, c.ProjectID, c.ContractorID, c.PaymentType, nullString(c.PaymentPeriod),
		c.Currency, c.Status, nullTime(c.SignedAt), nullTime(c.ValidFrom), nullTime(c.ValidTo),
		nullString(schemeID), override, nullString(c.Notes),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM contract_budget_lines WHERE contract_id = ?", c.ID); err != nil {
		return fmt.Errorf("failed to replace contract lines: %w", err)
	}
	for i, lineID := range c.BudgetLineIDs {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO contract_budget_lines (contract_id, budget_line_id, position) VALUES (?, ?, ?)",
			c.ID, lineID, i,
		); err != nil {
			return fmt.Errorf("failed to link budget line %s: %w", lineID, err)
		}
	}

	return sqlTx.Commit()
}

func (s *Store) GetContract(ctx context.Context, id contract.ID) (contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+contractColumns+" FROM contracts WHERE id = ?", id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.Contract{}, fmt.Errorf("%w: %s", contract.ErrContractNotFound, id)
	}
	if err != nil {
		return contract.Contract{}, err
	}

	links, err := s.contractLines(ctx, id)
	if err != nil {
		return contract.Contract{}, err
	}
	c.BudgetLineIDs = links
	return c, nil
}

// ListContracts returns matching contracts by number.
func (s *Store) ListContracts(ctx context.Context, f contract.Filter) ([]contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + contractColumns + " FROM contracts WHERE 1 = 1"
	var args []any
	if f.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.ContractorID != "" {
		query += " AND contractor_id = ?"
		args = append(args, f.ContractorID)
	}
	query += " ORDER BY number, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	var out []contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		links, err := s.contractLines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].BudgetLineIDs = links
	}
	return out, nil
}

func (s *Store) DeleteContract(ctx context.Context, id contract.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", contract.ErrContractNotFound, id)
	}
	return nil
}

func (s *Store) contractLines(ctx context.Context, id contract.ID) ([]budget.LineID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT budget_line_id FROM contract_budget_lines WHERE contract_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query contract lines: %w", err)
	}
	defer rows.Close()

	var out []budget.LineID
	for rows.Next() {
		var lineID budget.LineID
		if err := rows.Scan(&lineID); err != nil {
			return nil, fmt.Errorf("failed to scan contract line: %w", err)
		}
		out = append(out, lineID)
	}
	return out, rows.Err()
}

func scanContract(row scanner) (contract.Contract, error) {
	var (
		c                            contract.Contract
		period, scheme, notes        sql.NullString
		signedAt, validFrom, validTo sql.NullString
		override                     bool // derived from the scheme id on write
		createdAt, updatedAt         string
		d                            decoder
	)
	err := row.Scan(
		&c.ID, &c.Number, &c.ProjectID, &c.ContractorID, &c.PaymentType, &period,
		&c.Currency, &c.Status, &signedAt, &validFrom, &validTo, &scheme, &override,
		&notes, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan contract: %w", err)
	}
	c.PaymentPeriod = period.String
	c.Notes = notes.String
	c.Tax = tax.AssignmentFromRow(scheme.String)
	c.SignedAt = d.nullTime(signedAt)
	c.ValidFrom = d.nullTime(validFrom)
	c.ValidTo = d.nullTime(validTo)
	c.CreatedAt = d.time(createdAt)
	c.UpdatedAt = d.time(updatedAt)
	return c, d.err
}
