/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface of the engine on one SQLite file.
  The engine packages never see SQL; they receive snapshots (lines, catalog)
  and hand back the rows a mutation changed.

INTERFACES IMPLEMENTED:
  budget.TxStore:        Budget lines with transactional writes
  budget.CatalogSource:  Tax schemes + contractor defaults as a tax.Catalog
  contract.Store:        Contracts and their budget line links
  production.Store:      Shoot-day reports and entries

KEY TABLES:
  tax_schemes / tax_components:  Schemes, system rows seeded on New
  contractors:                   Contractors with their default scheme
  projects:                      Projects
  budget_lines:                  Flat budget rows (parent_id, level, sort_order)
  contracts / contract_budget_lines
  production_reports / report_entries

MONEY:
  Decimals are stored as TEXT and parsed back with shopspring/decimal, so a
  value never passes through float64.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, since SQLite
  allows one writer at a time. WithTx holds the write lock for the whole
  transaction; the Store it hands out runs on the *sql.Tx.

USAGE:
  store, err := sqlite.New("./data/budget.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := budget.NewService(store, store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - budget/store.go: Interface definitions
  - budget/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("record not found")

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.seedSystemSchemes(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed tax schemes: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Tax schemes
	CREATE TABLE IF NOT EXISTS tax_schemes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_system BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tax_components (
		scheme_id TEXT NOT NULL REFERENCES tax_schemes(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		rate TEXT NOT NULL,
		mode TEXT NOT NULL,
		recipient TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (scheme_id, position)
	);

	-- Contractors
	CREATE TABLE IF NOT EXISTS contractors (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		type TEXT NOT NULL,
		tax_scheme_id TEXT REFERENCES tax_schemes(id) ON DELETE SET NULL,
		phone TEXT,
		email TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- Projects
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at TEXT NOT NULL
	);

	-- Budget lines. parent_id is not a foreign key: orphans are tolerated
	-- and surfaced by the aggregator.
	CREATE TABLE IF NOT EXISTS budget_lines (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		parent_id TEXT,
		sort_order INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 0,
		code TEXT,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		unit TEXT,
		rate TEXT NOT NULL DEFAULT '0',
		quantity TEXT NOT NULL DEFAULT '0',
		tax_scheme_id TEXT,
		tax_override BOOLEAN NOT NULL DEFAULT FALSE,
		contractor_id TEXT,
		limit_amount TEXT NOT NULL DEFAULT '0',
		accrued TEXT NOT NULL DEFAULT '0',
		paid TEXT NOT NULL DEFAULT '0',
		closed TEXT NOT NULL DEFAULT '0',
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_budget_lines_project
		ON budget_lines(project_id);
	CREATE INDEX IF NOT EXISTS idx_budget_lines_parent
		ON budget_lines(parent_id);

	-- Contracts
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		project_id TEXT NOT NULL,
		contractor_id TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		payment_period TEXT,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		signed_at TEXT,
		valid_from TEXT,
		valid_to TEXT,
		tax_scheme_id TEXT,
		tax_override BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_project
		ON contracts(project_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_contractor
		ON contracts(contractor_id);

	CREATE TABLE IF NOT EXISTS contract_budget_lines (
		contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		budget_line_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (contract_id, budget_line_id)
	);

	-- Production reports
	CREATE TABLE IF NOT EXISTS production_reports (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		shoot_day_number INTEGER NOT NULL,
		date TEXT NOT NULL,
		location TEXT,
		shooting_group TEXT,
		notes TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_project_date
		ON production_reports(project_id, date);

	CREATE TABLE IF NOT EXISTS report_entries (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL REFERENCES production_reports(id) ON DELETE CASCADE,
		contractor_id TEXT NOT NULL,
		budget_line_id TEXT,
		contract_id TEXT,
		source TEXT NOT NULL,
		shift_start TEXT,
		shift_end TEXT,
		lunch_break_minutes INTEGER NOT NULL DEFAULT 60,
		gap_minutes INTEGER NOT NULL DEFAULT 0,
		overtime_hours TEXT NOT NULL DEFAULT '0',
		equipment TEXT,
		unit TEXT,
		quantity TEXT NOT NULL,
		rate TEXT NOT NULL,
		tax_scheme_id TEXT,
		tax_override BOOLEAN NOT NULL DEFAULT FALSE,
		amount_net TEXT NOT NULL,
		amount_gross TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_report
		ON report_entries(report_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data except the system schemes.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"report_entries", "production_reports",
		"contract_budget_lines", "contracts",
		"budget_lines", "projects", "contractors",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM tax_schemes WHERE is_system = FALSE")
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// decoder converts TEXT columns back to typed values and keeps the first
// error, so a scan function can decode every column and check once.
type decoder struct {
	err error
}

// dec parses a decimal column. Empty means zero.
func (d *decoder) dec(raw string) decimal.Decimal {
	if raw == "" || d.err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		d.err = fmt.Errorf("failed to parse decimal %q: %w", raw, err)
	}
	return v
}

func (d *decoder) time(raw string) time.Time {
	if d.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		d.err = fmt.Errorf("failed to parse time %q: %w", raw, err)
	}
	return t
}

func (d *decoder) nullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := d.time(ns.String)
	if d.err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
