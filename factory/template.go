package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yomi/budget-engine/budget"
)

var ErrInvalidTemplate = errors.New("invalid budget template")

// ParseTemplate parses a nested template. It accepts either a bare array of
// items or an object with an "items" array. Missing kinds become GROUP when
// the item has children and ITEM otherwise; ITEM quantity defaults to 1.
func (f *Factory) ParseTemplate(data []byte) ([]budget.TemplateItem, error) {
	var items []budget.TemplateItem
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var doc struct {
			Items []budget.TemplateItem `json:"items"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		items = doc.Items
	} else if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidTemplate)
	}
	if err := normalizeTemplate(items, ""); err != nil {
		return nil, err
	}
	return items, nil
}

var one = decimal.NewFromInt(1)

func normalizeTemplate(items []budget.TemplateItem, path string) error {
	for i := range items {
		it := &items[i]
		where := fmt.Sprintf("%s%d", path, i+1)
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return fmt.Errorf("%w: item %s has no name", ErrInvalidTemplate, where)
		}
		if it.Kind == "" {
			if len(it.Children) > 0 {
				it.Kind = budget.KindGroup
			} else {
				it.Kind = budget.KindItem
			}
		}
		if !it.Kind.Valid() {
			return fmt.Errorf("%w: item %s has unknown type %q", ErrInvalidTemplate, where, it.Kind)
		}
		if it.Rate.IsNegative() || it.Quantity.IsNegative() {
			return fmt.Errorf("%w: item %s has a negative amount", ErrInvalidTemplate, where)
		}
		if !it.Kind.IsGroup() && it.Quantity.IsZero() {
			it.Quantity = one
		}
		if err := normalizeTemplate(it.Children, where+"."); err != nil {
			return err
		}
	}
	return nil
}
