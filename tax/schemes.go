package tax

import "github.com/shopspring/decimal"

// =============================================================================
// SYSTEM SCHEMES
// =============================================================================
// Built-in schemes seeded into every catalog. They cover the contractor types
// a Russian film production deals with: self-employed (СЗ), sole proprietor
// (ИП), VAT payers (НДС), sole proprietor paying VAT (ИП+НДС) and natural
// persons on a labour contract (ФЛ).

const (
	SchemeNone  SchemeID = "sys-none"
	SchemeSZ    SchemeID = "sys-sz"
	SchemeIP    SchemeID = "sys-ip"
	SchemeNDS   SchemeID = "sys-nds"
	SchemeIPNDS SchemeID = "sys-ip-nds"
	SchemeFL    SchemeID = "sys-fl"
)

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// SystemSchemes returns fresh copies of the built-in schemes.
func SystemSchemes() []Scheme {
	return []Scheme{
		{ID: SchemeNone, Name: "Без налога", IsSystem: true},
		{
			ID: SchemeSZ, Name: "СЗ 6%", IsSystem: true,
			Components: []Component{
				{Name: "НПД", Rate: rate("0.06"), Mode: Internal, Recipient: RecipientContractor},
			},
		},
		{
			ID: SchemeIP, Name: "ИП 6%", IsSystem: true,
			Components: []Component{
				{Name: "УСН", Rate: rate("0.06"), Mode: Internal, Recipient: RecipientContractor},
			},
		},
		{
			ID: SchemeNDS, Name: "НДС 20%", IsSystem: true,
			Components: []Component{
				{Name: "НДС", Rate: rate("0.20"), Mode: External, Recipient: RecipientBudget},
			},
		},
		{
			ID: SchemeIPNDS, Name: "ИП+НДС", IsSystem: true,
			Components: []Component{
				{Name: "УСН", Rate: rate("0.06"), Mode: Internal, Recipient: RecipientContractor},
				{Name: "НДС", Rate: rate("0.20"), Mode: External, Recipient: RecipientBudget, Order: 1},
			},
		},
		{
			ID: SchemeFL, Name: "ФЛ", IsSystem: true,
			Components: []Component{
				{Name: "НДФЛ", Rate: rate("0.13"), Mode: Internal, Recipient: RecipientBudget},
				{Name: "Страховые", Rate: rate("0.30"), Mode: External, Recipient: RecipientBudget, Order: 1},
			},
		},
	}
}

// NewSystemCatalog returns a catalog seeded with the system schemes.
func NewSystemCatalog() *Catalog {
	return NewCatalog(SystemSchemes()...)
}
