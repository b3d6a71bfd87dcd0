/*
calculator.go - Net/tax/gross valuation of a rate under a component stack

ALGORITHM (per unit, then scaled by quantity):
  For each component in declared order:
    INTERNAL: tax = floor(base / (1 - r) * r)
              base is the quoted rate, except directly after another
              INTERNAL component, where it is that component's gross
              (its base plus its tax).
    EXTERNAL: tax = floor(rate * r), always against the quoted rate.
  tax_per_unit   = sum of component taxes
  total_per_unit = rate + tax_per_unit
  subtotal = rate * q, tax_amount = tax_per_unit * q, total = total_per_unit * q

ROUNDING:
  Floor to the currency unit, per unit, before multiplying by quantity.
  floor(1000/0.94*0.06) = 63, x60 units = 3780. The aggregate is never
  rounded. The gross-up is evaluated as floor(base*r / (1-r)) with an
  exact integer quotient, so boundary values never drift.

EXAMPLE:
  res, _ := tax.Calc(decimal.NewFromInt(100), decimal.NewFromInt(1), []tax.Component{
      {Name: "НПД", Rate: decimal.RequireFromString("0.06"), Mode: tax.Internal},
  })
  // res.TaxAmount = 6, res.Total = 106
*/
package tax

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// Calc values rate x quantity under the given ordered components.
// It fails with ErrInvalidTaxRate if any component rate is out of range.
func Calc(rate, quantity decimal.Decimal, components []Component) (Result, error) {
	pu, err := CalcPerUnit(rate, components)
	if err != nil {
		return Result{}, err
	}

	breakdown := make([]BreakdownItem, len(pu.Breakdown))
	for i, b := range pu.Breakdown {
		b.AmountTotal = b.AmountPerUnit.Mul(quantity)
		breakdown[i] = b
	}

	return Result{
		Subtotal:  pu.Net.Mul(quantity),
		TaxAmount: pu.Tax.Mul(quantity),
		Total:     pu.Gross.Mul(quantity),
		PerUnit:   pu,
		Breakdown: breakdown,
	}, nil
}

// CalcPerUnit values a single unit. Breakdown items carry AmountTotal equal
// to AmountPerUnit.
func CalcPerUnit(rate decimal.Decimal, components []Component) (PerUnit, error) {
	pu := PerUnit{
		Net:       rate,
		Tax:       decimal.Zero,
		Breakdown: make([]BreakdownItem, 0, len(components)),
	}

	internalGross := rate
	prevInternal := false

	for _, c := range components {
		if err := c.Validate(); err != nil {
			return PerUnit{}, err
		}

		var amount decimal.Decimal
		switch c.Mode {
		case Internal:
			base := rate
			if prevInternal {
				base = internalGross
			}
			amount = grossUp(base, c.Rate)
			internalGross = base.Add(amount)
			prevInternal = true
		case External:
			amount = rate.Mul(c.Rate).Floor()
			prevInternal = false
		}

		pu.Breakdown = append(pu.Breakdown, BreakdownItem{
			Name:          c.Name,
			Rate:          c.Rate,
			Mode:          c.Mode,
			Recipient:     c.Recipient,
			AmountPerUnit: amount,
			AmountTotal:   amount,
		})
		pu.Tax = pu.Tax.Add(amount)
	}

	pu.Gross = rate.Add(pu.Tax)
	return pu, nil
}

// grossUp returns floor(base / (1 - r) * r).
func grossUp(base, r decimal.Decimal) decimal.Decimal {
	if base.IsZero() || r.IsZero() {
		return decimal.Zero
	}
	return floorDiv(base.Mul(r), one.Sub(r))
}

// floorDiv returns floor(num / den) for den > 0 using an exact quotient.
func floorDiv(num, den decimal.Decimal) decimal.Decimal {
	q, rem := num.QuoRem(den, 0)
	if rem.IsNegative() {
		q = q.Sub(one)
	}
	return q
}
