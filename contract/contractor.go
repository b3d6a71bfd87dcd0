package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yomi/budget-engine/tax"
)

var (
	ErrInvalidContractor  = errors.New("invalid contractor")
	ErrContractorNotFound = errors.New("contractor not found")
)

// ContractorType is the legal form of a contractor.
type ContractorType string

const (
	// ContractorFL is a natural person on a labour contract.
	ContractorFL ContractorType = "FL"
	// ContractorSZ is a self-employed person.
	ContractorSZ ContractorType = "SZ"
	// ContractorIP is a sole proprietor.
	ContractorIP ContractorType = "IP"
	// ContractorOOO is a company.
	ContractorOOO ContractorType = "OOO"
)

func (t ContractorType) Valid() bool {
	switch t {
	case ContractorFL, ContractorSZ, ContractorIP, ContractorOOO:
		return true
	}
	return false
}

// SuggestedScheme is the system scheme usually paired with the type.
func (t ContractorType) SuggestedScheme() tax.SchemeID {
	switch t {
	case ContractorFL:
		return tax.SchemeFL
	case ContractorSZ:
		return tax.SchemeSZ
	case ContractorIP:
		return tax.SchemeIP
	case ContractorOOO:
		return tax.SchemeNDS
	}
	return ""
}

// Contractor is a person or company paid from the budget. TaxSchemeID is
// the default inherited by lines, contracts and report entries.
type Contractor struct {
	ID          tax.ContractorID
	FullName    string
	Type        ContractorType
	TaxSchemeID tax.SchemeID
	Phone       string
	Email       string
	Notes       string
	CreatedAt   time.Time
}

func (c Contractor) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidContractor)
	case strings.TrimSpace(c.FullName) == "":
		return fmt.Errorf("%w: full name is required", ErrInvalidContractor)
	case !c.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidContractor, c.Type)
	}
	return nil
}

// ContractorStore persists contractors.
type ContractorStore interface {
	SaveContractor(ctx context.Context, c Contractor) error
	// GetContractor returns an error wrapping ErrContractorNotFound if missing.
	GetContractor(ctx context.Context, id tax.ContractorID) (Contractor, error)
	ListContractors(ctx context.Context) ([]Contractor, error)
}
