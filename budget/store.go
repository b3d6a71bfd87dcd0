/*
store.go - Persistence interface for budget lines

PURPOSE:
  Defines the interface between the budget service and the database.
  The aggregator and the tree arena never touch storage; the service reads
  a snapshot through Store and writes back only the lines a mutation changed.

KEY INTERFACES:
  Store:          Line persistence (list, get, upsert, delete)
  TxStore:        Store with atomic multi-line writes
  CatalogSource:  Tax schemes and contractor defaults as one snapshot

SNAPSHOT CONTRACT:
  ListLines returns every line of a project as of one read. Inside WithTx
  the snapshot and the writes share a transaction, so a move computed from
  the snapshot can never persist over a concurrent change.

IMPLEMENTATIONS:
  - store/sqlite: SQLite
  - budget/store: In-memory for tests and the CLI

SEE ALSO:
  - service.go: Uses these interfaces
*/
package budget

import (
	"context"

	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists budget lines.
type Store interface {
	// ListLines returns all lines of a project in stored order.
	ListLines(ctx context.Context, projectID ProjectID) ([]Line, error)

	// GetLine returns one line or an error wrapping ErrLineNotFound.
	GetLine(ctx context.Context, id LineID) (Line, error)

	// SaveLines inserts or replaces lines by id.
	SaveLines(ctx context.Context, lines ...Line) error

	// DeleteLines removes lines by id. Unknown ids are ignored.
	DeleteLines(ctx context.Context, ids ...LineID) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// TAX CATALOG
// =============================================================================

// CatalogSource loads schemes and contractor defaults as one snapshot.
type CatalogSource interface {
	Catalog(ctx context.Context) (*tax.Catalog, error)
}

// StaticCatalog serves a fixed catalog.
type StaticCatalog struct {
	C *tax.Catalog
}

func (s StaticCatalog) Catalog(context.Context) (*tax.Catalog, error) { return s.C, nil }
