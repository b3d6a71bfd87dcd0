/*
service.go - Store-backed budget operations

PURPOSE:
  Wraps Build and Tree with persistence. Reads value a single snapshot of
  the project. Writes are serialized per project: a per-project mutex keeps
  two requests in this process from interleaving, and every write loads its
  snapshot and persists its result inside one store transaction.

TAX ASSIGNMENT ON WRITE:
  CreateLine pins a scheme when one is given, otherwise the line inherits.
  UpdateLine runs tax.ApplyWrite against the contractor the line is linked
  to after the write, so changing the contractor of an inheriting line
  switches its effective scheme on the same write.

DATA QUALITY:
  Orphans, unreachable lines and lines that failed to value are logged as
  warnings. They never fail the read.

SEE ALSO:
  - aggregate.go: Build
  - tree.go: Structural writes
  - store.go: Store, TxStore and CatalogSource
*/
package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yomi/budget-engine/tax"
)

// Service exposes budget operations over a TxStore.
type Service struct {
	store   TxStore
	catalog CatalogSource
	logger  *zap.Logger
	newID   func() LineID

	mu    sync.Mutex
	locks map[ProjectID]*projectLock
}

// projectLock serializes writes to one project. refs counts the holders and
// waiters so the entry can be dropped once nobody needs it.
type projectLock struct {
	sync.Mutex
	refs int
}

func NewService(store TxStore, catalog CatalogSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
		newID:   NewLineID,
		locks:   make(map[ProjectID]*projectLock),
	}
}

// WithIDGenerator replaces the line id generator. Used by tests.
func (s *Service) WithIDGenerator(fn func() LineID) *Service {
	s.newID = fn
	return s
}

// lock acquires the project's write lock and returns its release.
func (s *Service) lock(projectID ProjectID) func() {
	s.mu.Lock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &projectLock{}
		s.locks[projectID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, projectID)
		}
		s.mu.Unlock()
	}
}

// =============================================================================
// READ
// =============================================================================

// Tree values the project's current lines.
func (s *Service) Tree(ctx context.Context, projectID ProjectID) (Forest, Report, error) {
	lines, err := s.store.ListLines(ctx, projectID)
	if err != nil {
		return Forest{}, Report{}, fmt.Errorf("list lines: %w", err)
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Forest{}, Report{}, fmt.Errorf("load tax catalog: %w", err)
	}

	forest, report := Build(lines, catalog.Resolver())
	s.logReport(projectID, report)
	return forest, report, nil
}

func (s *Service) logReport(projectID ProjectID, r Report) {
	if r.Clean() {
		return
	}
	log := s.logger.With(zap.String("project_id", string(projectID)))
	for _, id := range r.Orphans {
		log.Warn("orphan budget line treated as root", zap.String("line_id", string(id)))
	}
	for _, id := range r.Unreachable {
		log.Warn("budget line unreachable from any root", zap.String("line_id", string(id)))
	}
	for _, f := range r.Failed {
		log.Warn("budget line could not be valued", zap.String("line_id", string(f.ID)), zap.Error(f.Err))
	}
}

// =============================================================================
// WRITES
// =============================================================================

// LineInput describes a new line. A nil SortOrder appends after the last
// sibling.
type LineInput struct {
	ParentID     LineID
	SortOrder    *int
	Code         string
	Name         string
	Kind         Kind
	Unit         string
	Rate         decimal.Decimal
	Quantity     decimal.Decimal
	TaxSchemeID  tax.SchemeID
	ContractorID tax.ContractorID
	Accrued      decimal.Decimal
	Paid         decimal.Decimal
	Closed       decimal.Decimal
	Notes        string
}

// LinePatch lists the fields an update touches. Nil fields are unchanged.
type LinePatch struct {
	Code         *string
	Name         *string
	Kind         *Kind
	Unit         *string
	Rate         *decimal.Decimal
	Quantity     *decimal.Decimal
	ContractorID *tax.ContractorID
	Tax          tax.AssignmentWrite
	Accrued      *decimal.Decimal
	Paid         *decimal.Decimal
	Closed       *decimal.Decimal
	Notes        *string
}

// CreateLine inserts a line under in.ParentID.
func (s *Service) CreateLine(ctx context.Context, projectID ProjectID, in LineInput) (Line, error) {
	if in.Kind == "" {
		in.Kind = KindItem
	}
	line := Line{
		ID:           s.newID(),
		ProjectID:    projectID,
		Code:         in.Code,
		Name:         in.Name,
		Kind:         in.Kind,
		Unit:         in.Unit,
		Rate:         in.Rate,
		Quantity:     in.Quantity,
		Tax:          tax.Explicit(in.TaxSchemeID),
		ContractorID: in.ContractorID,
		Accrued:      in.Accrued,
		Paid:         in.Paid,
		Closed:       in.Closed,
		Notes:        in.Notes,
	}
	if err := validateLine(line); err != nil {
		return Line{}, err
	}
	if err := s.checkScheme(ctx, in.TaxSchemeID); err != nil {
		return Line{}, err
	}

	defer s.lock(projectID)()

	var created Line
	err := s.store.WithTx(ctx, func(st Store) error {
		tree, err := s.loadTree(ctx, st, projectID)
		if err != nil {
			return err
		}
		order := tree.NextSortOrder(in.ParentID)
		if in.SortOrder != nil {
			order = *in.SortOrder
		}
		created, err = tree.Insert(line, in.ParentID, order)
		if err != nil {
			return err
		}
		return st.SaveLines(ctx, created)
	})
	if err != nil {
		return Line{}, fmt.Errorf("create line: %w", err)
	}
	s.logger.Info("budget line created",
		zap.String("project_id", string(projectID)),
		zap.String("line_id", string(created.ID)),
		zap.String("parent_id", string(created.ParentID)))
	return created, nil
}

// UpdateLine applies a patch to non-structural fields and the tax assignment.
func (s *Service) UpdateLine(ctx context.Context, projectID ProjectID, id LineID, p LinePatch) (Line, error) {
	if p.Tax.SchemeSet {
		if err := s.checkScheme(ctx, p.Tax.SchemeID); err != nil {
			return Line{}, err
		}
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Line{}, fmt.Errorf("load tax catalog: %w", err)
	}

	defer s.lock(projectID)()

	var updated Line
	err = s.store.WithTx(ctx, func(st Store) error {
		line, err := st.GetLine(ctx, id)
		if err != nil {
			return err
		}
		if line.ProjectID != projectID {
			return &LineNotFoundError{ID: id}
		}

		applyPatch(&line, p)
		contractorDefault, _ := catalog.ContractorScheme(line.ContractorID)
		line.Tax, err = tax.ApplyWrite(line.Tax, p.Tax, contractorDefault)
		if err != nil {
			return err
		}
		if err := validateLine(line); err != nil {
			return err
		}
		updated = line
		return st.SaveLines(ctx, line)
	})
	if err != nil {
		return Line{}, fmt.Errorf("update line %s: %w", id, err)
	}
	return updated, nil
}

// MoveLine re-parents a line. It returns every line whose parent, sort order
// or level changed.
func (s *Service) MoveLine(ctx context.Context, projectID ProjectID, id, newParentID LineID, sortOrder int) ([]Line, error) {
	defer s.lock(projectID)()

	var changed []Line
	err := s.store.WithTx(ctx, func(st Store) error {
		tree, err := s.loadTree(ctx, st, projectID)
		if err != nil {
			return err
		}
		changed, err = tree.Move(id, newParentID, sortOrder)
		if err != nil {
			return err
		}
		return st.SaveLines(ctx, changed...)
	})
	if err != nil {
		return nil, fmt.Errorf("move line %s: %w", id, err)
	}
	s.logger.Info("budget line moved",
		zap.String("project_id", string(projectID)),
		zap.String("line_id", string(id)),
		zap.String("new_parent_id", string(newParentID)),
		zap.Int("lines_changed", len(changed)))
	return changed, nil
}

// DeleteLine removes a line and its subtree.
func (s *Service) DeleteLine(ctx context.Context, projectID ProjectID, id LineID) ([]LineID, error) {
	defer s.lock(projectID)()

	var removed []LineID
	err := s.store.WithTx(ctx, func(st Store) error {
		tree, err := s.loadTree(ctx, st, projectID)
		if err != nil {
			return err
		}
		removed, err = tree.DeleteSubtree(id)
		if err != nil {
			return err
		}
		return st.DeleteLines(ctx, removed...)
	})
	if err != nil {
		return nil, fmt.Errorf("delete line %s: %w", id, err)
	}
	return removed, nil
}

// LoadTemplate replaces every line of the project with the template.
func (s *Service) LoadTemplate(ctx context.Context, projectID ProjectID, items []TemplateItem) ([]Line, error) {
	lines := TemplateToLines(projectID, items, s.newID)
	for _, l := range lines {
		if err := validateLine(l); err != nil {
			return nil, err
		}
	}

	defer s.lock(projectID)()

	err := s.store.WithTx(ctx, func(st Store) error {
		existing, err := st.ListLines(ctx, projectID)
		if err != nil {
			return err
		}
		ids := make([]LineID, len(existing))
		for i, l := range existing {
			ids[i] = l.ID
		}
		if err := st.DeleteLines(ctx, ids...); err != nil {
			return err
		}
		return st.SaveLines(ctx, lines...)
	})
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	s.logger.Info("budget template loaded",
		zap.String("project_id", string(projectID)),
		zap.Int("lines", len(lines)))
	return lines, nil
}

// SaveLimits snapshots every valued line's total into its limit amount.
// Lines that fail to value keep their previous limit. It returns the number
// of lines updated.
func (s *Service) SaveLimits(ctx context.Context, projectID ProjectID) (int, error) {
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return 0, fmt.Errorf("load tax catalog: %w", err)
	}

	defer s.lock(projectID)()

	var updated []Line
	err = s.store.WithTx(ctx, func(st Store) error {
		lines, err := st.ListLines(ctx, projectID)
		if err != nil {
			return err
		}
		forest, report := Build(lines, catalog.Resolver())
		s.logReport(projectID, report)

		forest.Walk(func(n *Node, _ int) bool {
			if n.Err == nil && !n.Partial {
				l := n.Line
				l.LimitAmount = n.Computed.Total
				updated = append(updated, l)
			}
			return true
		})
		return st.SaveLines(ctx, updated...)
	})
	if err != nil {
		return 0, fmt.Errorf("save limits: %w", err)
	}
	return len(updated), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) loadTree(ctx context.Context, st Store, projectID ProjectID) (*Tree, error) {
	lines, err := st.ListLines(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return NewTree(lines)
}

func (s *Service) checkScheme(ctx context.Context, id tax.SchemeID) error {
	if id == "" {
		return nil
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("load tax catalog: %w", err)
	}
	if _, ok := catalog.LookupScheme(id); !ok {
		return &tax.SchemeNotFoundError{ID: id}
	}
	return nil
}

func applyPatch(l *Line, p LinePatch) {
	if p.Code != nil {
		l.Code = *p.Code
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Kind != nil {
		l.Kind = *p.Kind
	}
	if p.Unit != nil {
		l.Unit = *p.Unit
	}
	if p.Rate != nil {
		l.Rate = *p.Rate
	}
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.ContractorID != nil {
		l.ContractorID = *p.ContractorID
	}
	if p.Accrued != nil {
		l.Accrued = *p.Accrued
	}
	if p.Paid != nil {
		l.Paid = *p.Paid
	}
	if p.Closed != nil {
		l.Closed = *p.Closed
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
}

func validateLine(l Line) error {
	if l.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLine)
	}
	if !l.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidLine, l.Kind)
	}
	if l.Rate.IsNegative() {
		return fmt.Errorf("%w: negative rate", ErrInvalidLine)
	}
	if l.Quantity.IsNegative() {
		return fmt.Errorf("%w: negative quantity", ErrInvalidLine)
	}
	return nil
}
