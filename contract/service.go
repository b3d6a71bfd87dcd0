package contract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yomi/budget-engine/budget"
	"github.com/yomi/budget-engine/tax"
)

// Store persists contracts.
type Store interface {
	// SaveContract inserts or replaces a contract and its line links.
	SaveContract(ctx context.Context, c Contract) error
	// GetContract returns an error wrapping ErrContractNotFound if missing.
	GetContract(ctx context.Context, id ID) (Contract, error)
	ListContracts(ctx context.Context, f Filter) ([]Contract, error)
	DeleteContract(ctx context.Context, id ID) error
}

// Filter narrows ListContracts. Empty fields match everything.
type Filter struct {
	ProjectID    budget.ProjectID
	ContractorID tax.ContractorID
}

// Service runs contract writes through the tax write path.
type Service struct {
	store   Store
	catalog budget.CatalogSource
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(store Store, catalog budget.CatalogSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, catalog: catalog, logger: logger, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Create(ctx context.Context, in Input) (Contract, error) {
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Contract{}, fmt.Errorf("load tax catalog: %w", err)
	}
	if err := checkScheme(catalog, in.TaxSchemeID); err != nil {
		return Contract{}, err
	}
	def, _ := catalog.ContractorScheme(in.ContractorID)

	c, err := New(ID(uuid.NewString()), in, def, s.now().UTC())
	if err != nil {
		return Contract{}, err
	}
	if err := s.store.SaveContract(ctx, c); err != nil {
		return Contract{}, fmt.Errorf("save contract: %w", err)
	}
	s.logger.Info("contract created",
		zap.String("contract_id", string(c.ID)),
		zap.String("project_id", string(c.ProjectID)),
		zap.Stringer("tax", c.Tax))
	return c, nil
}

func (s *Service) Update(ctx context.Context, id ID, p Patch) (Contract, error) {
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Contract{}, fmt.Errorf("load tax catalog: %w", err)
	}
	if p.Tax.SchemeSet {
		if err := checkScheme(catalog, p.Tax.SchemeID); err != nil {
			return Contract{}, err
		}
	}
	current, err := s.store.GetContract(ctx, id)
	if err != nil {
		return Contract{}, err
	}

	contractor := current.ContractorID
	if p.ContractorID != nil {
		contractor = *p.ContractorID
	}
	def, _ := catalog.ContractorScheme(contractor)

	updated, err := Update(current, p, def, s.now().UTC())
	if err != nil {
		return Contract{}, err
	}
	if err := s.store.SaveContract(ctx, updated); err != nil {
		return Contract{}, fmt.Errorf("save contract: %w", err)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id ID) (Contract, error) {
	return s.store.GetContract(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Contract, error) {
	return s.store.ListContracts(ctx, f)
}

func (s *Service) Delete(ctx context.Context, id ID) error {
	return s.store.DeleteContract(ctx, id)
}

// Components resolves the tax components that apply to the contract now.
func (s *Service) Components(ctx context.Context, c Contract) ([]tax.Component, error) {
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tax catalog: %w", err)
	}
	return catalog.Resolver().Resolve(c)
}

func checkScheme(catalog *tax.Catalog, id tax.SchemeID) error {
	if id == "" {
		return nil
	}
	if _, ok := catalog.LookupScheme(id); !ok {
		return &tax.SchemeNotFoundError{ID: id}
	}
	return nil
}
