package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yomi/budget-engine/contract"
	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// TAX SCHEMES
// =============================================================================

// seedSystemSchemes writes the built-in schemes, replacing stored copies so
// a release can correct a preset.
func (s *Store) seedSystemSchemes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, scheme := range tax.SystemSchemes() {
		if err := writeScheme(ctx, sqlTx, scheme); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// SaveScheme inserts or replaces a user scheme. System schemes are
// read-only: writing over one returns tax.ErrSystemScheme.
func (s *Store) SaveScheme(ctx context.Context, scheme tax.Scheme) error {
	if scheme.IsSystem {
		return tax.ErrSystemScheme
	}
	if err := scheme.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	system, err := isSystemScheme(ctx, sqlTx, scheme.ID)
	if err != nil {
		return err
	}
	if system {
		return tax.ErrSystemScheme
	}
	if err := writeScheme(ctx, sqlTx, scheme); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// DeleteScheme removes a user scheme. Contractors defaulting to it lose
// their default, and lines, contracts and report entries pinned to it fall
// back to inheritance. Stored entry amounts are not revalued.
func (s *Store) DeleteScheme(ctx context.Context, id tax.SchemeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	system, err := isSystemScheme(ctx, sqlTx, id)
	if err != nil {
		return err
	}
	if system {
		return tax.ErrSystemScheme
	}
	res, err := sqlTx.ExecContext(ctx, "DELETE FROM tax_schemes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete scheme: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &tax.SchemeNotFoundError{ID: id}
	}

	for _, table := range []string{"budget_lines", "contracts", "report_entries"} {
		_, err := sqlTx.ExecContext(ctx,
			"UPDATE "+table+" SET tax_scheme_id = NULL, tax_override = 0 WHERE tax_scheme_id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to unpin scheme in %s: %w", table, err)
		}
	}
	return sqlTx.Commit()
}

// GetScheme returns one scheme or a *tax.SchemeNotFoundError.
func (s *Store) GetScheme(ctx context.Context, id tax.SchemeID) (tax.Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scheme tax.Scheme
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, is_system FROM tax_schemes WHERE id = ?", id,
	).Scan(&scheme.ID, &scheme.Name, &scheme.IsSystem)
	if errors.Is(err, sql.ErrNoRows) {
		return tax.Scheme{}, &tax.SchemeNotFoundError{ID: id}
	}
	if err != nil {
		return tax.Scheme{}, fmt.Errorf("failed to get scheme: %w", err)
	}

	components, err := queryComponents(ctx, s.db, "WHERE scheme_id = ?", id)
	if err != nil {
		return tax.Scheme{}, err
	}
	scheme.Components = components[scheme.ID]
	return scheme, nil
}

// ListSchemes returns all schemes, system schemes first.
func (s *Store) ListSchemes(ctx context.Context) ([]tax.Scheme, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Schemes(), nil
}

// Catalog loads every scheme and contractor default in one snapshot.
// Implements budget.CatalogSource.
func (s *Store) Catalog(ctx context.Context) (*tax.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, is_system FROM tax_schemes")
	if err != nil {
		return nil, fmt.Errorf("failed to query schemes: %w", err)
	}
	var schemes []tax.Scheme
	for rows.Next() {
		var scheme tax.Scheme
		if err := rows.Scan(&scheme.ID, &scheme.Name, &scheme.IsSystem); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan scheme: %w", err)
		}
		schemes = append(schemes, scheme)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	components, err := queryComponents(ctx, s.db, "")
	if err != nil {
		return nil, err
	}
	for i := range schemes {
		schemes[i].Components = components[schemes[i].ID]
	}
	catalog := tax.NewCatalog(schemes...)

	rows, err = s.db.QueryContext(ctx,
		"SELECT id, tax_scheme_id FROM contractors WHERE tax_scheme_id IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to query contractor schemes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, schemeID string
		if err := rows.Scan(&id, &schemeID); err != nil {
			return nil, fmt.Errorf("failed to scan contractor scheme: %w", err)
		}
		catalog.SetContractorScheme(tax.ContractorID(id), tax.SchemeID(schemeID))
	}
	return catalog, rows.Err()
}

func writeScheme(ctx context.Context, q querier, scheme tax.Scheme) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tax_schemes (id, name, is_system, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_system = excluded.is_system
	`, scheme.ID, scheme.Name, scheme.IsSystem, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save scheme: %w", err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM tax_components WHERE scheme_id = ?", scheme.ID); err != nil {
		return fmt.Errorf("failed to replace components: %w", err)
	}
	for i, c := range scheme.Components {
		_, err := q.ExecContext(ctx, `
			INSERT INTO tax_components (scheme_id, position, name, rate, mode, recipient, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, scheme.ID, i, c.Name, c.Rate.String(), c.Mode, c.Recipient, c.Order)
		if err != nil {
			return fmt.Errorf("failed to save component %q: %w", c.Name, err)
		}
	}
	return nil
}

// queryComponents returns components grouped by scheme in declared order.
func queryComponents(ctx context.Context, q querier, where string, args ...any) (map[tax.SchemeID][]tax.Component, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT scheme_id, name, rate, mode, recipient, sort_order
		FROM tax_components `+where+`
		ORDER BY scheme_id, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	out := make(map[tax.SchemeID][]tax.Component)
	for rows.Next() {
		var (
			schemeID tax.SchemeID
			c        tax.Component
			rate     string
			d        decoder
		)
		if err := rows.Scan(&schemeID, &c.Name, &rate, &c.Mode, &c.Recipient, &c.Order); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		c.Rate = d.dec(rate)
		if d.err != nil {
			return nil, d.err
		}
		out[schemeID] = append(out[schemeID], c)
	}
	return out, rows.Err()
}

func isSystemScheme(ctx context.Context, q querier, id tax.SchemeID) (bool, error) {
	var system bool
	err := q.QueryRowContext(ctx, "SELECT is_system FROM tax_schemes WHERE id = ?", id).Scan(&system)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check scheme: %w", err)
	}
	return system, nil
}

// =============================================================================
// CONTRACTORS (contract.ContractorStore interface)
// =============================================================================

// SaveContractor inserts or updates a contractor. An unknown default
// scheme is rejected with a *tax.SchemeNotFoundError.
func (s *Store) SaveContractor(ctx context.Context, c contract.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.TaxSchemeID != "" {
		var n int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM tax_schemes WHERE id = ?", c.TaxSchemeID,
		).Scan(&n); err != nil {
			return fmt.Errorf("failed to check scheme: %w", err)
		}
		if n == 0 {
			return &tax.SchemeNotFoundError{ID: c.TaxSchemeID}
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contractors (id, full_name, type, tax_scheme_id, phone, email, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			type = excluded.type,
			tax_scheme_id = excluded.tax_scheme_id,
			phone = excluded.phone,
			email = excluded.email,
			notes = excluded.notes
	`, c.ID, c.FullName, c.Type, nullString(string(c.TaxSchemeID)),
		nullString(c.Phone), nullString(c.Email), nullString(c.Notes), formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save contractor: %w", err)
	}
	return nil
}

const contractorColumns = "id, full_name, type, tax_scheme_id, phone, email, notes, created_at"

func (s *Store) GetContractor(ctx context.Context, id tax.ContractorID) (contract.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+contractorColumns+" FROM contractors WHERE id = ?", id)
	c, err := scanContractor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.Contractor{}, fmt.Errorf("%w: %s", contract.ErrContractorNotFound, id)
	}
	return c, err
}

// ListContractors returns all contractors by name.
func (s *Store) ListContractors(ctx context.Context) ([]contract.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+contractorColumns+" FROM contractors ORDER BY full_name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query contractors: %w", err)
	}
	defer rows.Close()

	var out []contract.Contractor
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContractor(row scanner) (contract.Contractor, error) {
	var (
		c                          contract.Contractor
		scheme, phone, email, note sql.NullString
		createdAt                  string
		d                          decoder
	)
	if err := row.Scan(&c.ID, &c.FullName, &c.Type, &scheme, &phone, &email, &note, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan contractor: %w", err)
	}
	c.TaxSchemeID = tax.SchemeID(scheme.String)
	c.Phone = phone.String
	c.Email = email.String
	c.Notes = note.String
	c.CreatedAt = d.time(createdAt)
	return c, d.err
}
