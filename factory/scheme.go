/*
Package factory converts JSON configuration into engine types.

PURPOSE:
  Tax schemes and budget templates are edited by producers and accountants,
  not by developers. The factory turns their JSON into validated tax.Scheme
  and budget.TemplateItem values, filling in the defaults the UI leaves out.

JSON SCHEMA (scheme):
  {
    "id": "custom-ip-nds",
    "name": "ИП + НДС",
    "components": [
      {"name": "УСН", "rate": "0.06", "type": "INTERNAL", "recipient": "CONTRACTOR"},
      {"name": "НДС", "rate": 0.2,    "type": "EXTERNAL"}
    ]
  }

DEFAULTS:
  - recipient: BUDGET
  - order: position in the array
  - id: a fresh uuid

USAGE:
  f := factory.New()
  scheme, err := f.ParseScheme(body)
  items, err := f.ParseTemplate(body)

SEE ALSO:
  - tax/types.go: Scheme and Component
  - budget/template.go: TemplateItem and TemplateToLines
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SchemeJSON is the JSON representation of a tax scheme.
type SchemeJSON struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name"`
	IsSystem   bool            `json:"is_system,omitempty"`
	Components []ComponentJSON `json:"components"`
}

// ComponentJSON represents one tax component. Type accepts the legacy
// "type" key used by the editor; Mode wins when both are set.
type ComponentJSON struct {
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	Mode      string          `json:"mode,omitempty"`
	Type      string          `json:"type,omitempty"`
	Recipient string          `json:"recipient,omitempty"`
	Order     *int            `json:"sort_order,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON documents to engine types.
type Factory struct {
	newID func() string
}

// New creates a factory that assigns uuid ids to schemes without one.
func New() *Factory {
	return &Factory{newID: uuid.NewString}
}

// ParseScheme parses and validates a JSON scheme.
func (f *Factory) ParseScheme(data []byte) (tax.Scheme, error) {
	var sj SchemeJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return tax.Scheme{}, fmt.Errorf("%w: parse scheme JSON: %v", tax.ErrInvalidScheme, err)
	}
	return f.SchemeFromJSON(sj)
}

// SchemeFromJSON converts SchemeJSON to a validated tax.Scheme.
// User-supplied schemes are never system schemes.
func (f *Factory) SchemeFromJSON(sj SchemeJSON) (tax.Scheme, error) {
	s := tax.Scheme{
		ID:   tax.SchemeID(strings.TrimSpace(sj.ID)),
		Name: strings.TrimSpace(sj.Name),
	}
	if s.ID == "" {
		s.ID = tax.SchemeID(f.newID())
	}
	for i, cj := range sj.Components {
		c, err := parseComponent(cj, i)
		if err != nil {
			return tax.Scheme{}, err
		}
		s.Components = append(s.Components, c)
	}
	if err := s.Validate(); err != nil {
		return tax.Scheme{}, err
	}
	return s, nil
}

// SchemeToJSON converts a scheme back to its JSON form.
func SchemeToJSON(s tax.Scheme) SchemeJSON {
	sj := SchemeJSON{ID: string(s.ID), Name: s.Name, IsSystem: s.IsSystem}
	for _, c := range s.Ordered() {
		order := c.Order
		sj.Components = append(sj.Components, ComponentJSON{
			Name:      c.Name,
			Rate:      c.Rate,
			Mode:      string(c.Mode),
			Recipient: string(c.Recipient),
			Order:     &order,
		})
	}
	return sj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseComponent(cj ComponentJSON, index int) (tax.Component, error) {
	mode, err := parseMode(cj.Mode, cj.Type)
	if err != nil {
		return tax.Component{}, fmt.Errorf("component %q: %w", cj.Name, err)
	}
	recipient, err := parseRecipient(cj.Recipient)
	if err != nil {
		return tax.Component{}, fmt.Errorf("component %q: %w", cj.Name, err)
	}
	order := index
	if cj.Order != nil {
		order = *cj.Order
	}
	return tax.Component{
		Name:      strings.TrimSpace(cj.Name),
		Rate:      cj.Rate,
		Mode:      mode,
		Recipient: recipient,
		Order:     order,
	}, nil
}

func parseMode(mode, legacy string) (tax.Mode, error) {
	s := mode
	if s == "" {
		s = legacy
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INTERNAL":
		return tax.Internal, nil
	case "EXTERNAL":
		return tax.External, nil
	case "":
		return "", fmt.Errorf("%w: mode is required", tax.ErrInvalidScheme)
	default:
		return "", fmt.Errorf("%w: unknown mode %q", tax.ErrInvalidScheme, s)
	}
}

func parseRecipient(s string) (tax.Recipient, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "BUDGET":
		return tax.RecipientBudget, nil
	case "CONTRACTOR":
		return tax.RecipientContractor, nil
	default:
		return "", fmt.Errorf("%w: unknown recipient %q", tax.ErrInvalidScheme, s)
	}
}
