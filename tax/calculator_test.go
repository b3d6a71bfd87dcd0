package tax_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yomi/budget-engine/tax"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func internal(name, r string) tax.Component {
	return tax.Component{Name: name, Rate: d(r), Mode: tax.Internal, Recipient: tax.RecipientContractor}
}

func external(name, r string) tax.Component {
	return tax.Component{Name: name, Rate: d(r), Mode: tax.External, Recipient: tax.RecipientBudget}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !d(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

// =============================================================================
// BASIC PROPERTIES
// =============================================================================

func TestCalc_NoComponents_TotalEqualsSubtotal(t *testing.T) {
	for _, tc := range []struct{ rate, qty, want string }{
		{"0", "0", "0"},
		{"1500", "7", "10500"},
		{"333.33", "3", "999.99"},
		{"1000", "0.5", "500"},
	} {
		res, err := tax.Calc(d(tc.rate), d(tc.qty), nil)
		require.NoError(t, err)
		assertDec(t, tc.want, res.Subtotal)
		assertDec(t, tc.want, res.Total)
		assertDec(t, "0", res.TaxAmount)
		assert.Empty(t, res.Breakdown)
	}
}

func TestCalc_ZeroRate_AllTaxesZero(t *testing.T) {
	res, err := tax.Calc(decimal.Zero, d("10"), tax.SystemSchemes()[5].Ordered())
	require.NoError(t, err)
	assertDec(t, "0", res.TaxAmount)
	assertDec(t, "0", res.Total)
	for _, b := range res.Breakdown {
		assertDec(t, "0", b.AmountPerUnit, b.Name)
	}
}

func TestCalc_QuantityLinear(t *testing.T) {
	schemes := tax.SystemSchemes()
	for _, s := range schemes {
		one, err := tax.Calc(d("1234"), d("1"), s.Ordered())
		require.NoError(t, err)
		for _, q := range []string{"0", "1", "2", "60", "1.5", "13.25"} {
			res, err := tax.Calc(d("1234"), d(q), s.Ordered())
			require.NoError(t, err)
			assertDec(t, one.Total.Mul(d(q)).String(), res.Total, "%s x %s", s.Name, q)
			assertDec(t, one.TaxAmount.Mul(d(q)).String(), res.TaxAmount, "%s x %s", s.Name, q)
		}
	}
}

// =============================================================================
// SINGLE COMPONENT
// =============================================================================

func TestCalc_Internal6Percent(t *testing.T) {
	// floor(100 / 0.94 * 0.06) = floor(6.383) = 6
	res, err := tax.Calc(d("100"), d("1"), []tax.Component{internal("НПД", "0.06")})
	require.NoError(t, err)
	assertDec(t, "6", res.TaxAmount)
	assertDec(t, "106", res.Total)
	assertDec(t, "100", res.Subtotal)
}

func TestCalc_External20Percent(t *testing.T) {
	res, err := tax.Calc(d("100"), d("1"), []tax.Component{external("НДС", "0.20")})
	require.NoError(t, err)
	assertDec(t, "20", res.TaxAmount)
	assertDec(t, "120", res.Total)
}

func TestCalc_FloorPerUnitNotAggregate(t *testing.T) {
	// GIVEN: self-employed at 1000 per shift, 60 shifts
	// THEN: 63 per unit x 60 = 3780, not floor(60000/0.94*0.06) = 3829
	res, err := tax.Calc(d("1000"), d("60"), []tax.Component{internal("НПД", "0.06")})
	require.NoError(t, err)
	assertDec(t, "63", res.PerUnit.Tax)
	assertDec(t, "3780", res.TaxAmount)
	assertDec(t, "63780", res.Total)
	assertDec(t, "60000", res.Subtotal)
	assertDec(t, "3780", res.Breakdown[0].AmountTotal)
}

func TestCalc_ExactBoundaries(t *testing.T) {
	// 94 / 0.94 * 0.06 is exactly 6; binary floats land on 5.999...
	for _, tc := range []struct{ rate, want string }{
		{"94", "6"},
		{"47", "3"},
		{"470", "30"},
	} {
		res, err := tax.Calc(d(tc.rate), d("1"), []tax.Component{internal("НПД", "0.06")})
		require.NoError(t, err)
		assertDec(t, tc.want, res.TaxAmount, "rate %s", tc.rate)
	}
}

func TestCalc_FractionalQuantity(t *testing.T) {
	res, err := tax.Calc(d("1000"), d("1.5"), []tax.Component{internal("НПД", "0.06")})
	require.NoError(t, err)
	assertDec(t, "94.5", res.TaxAmount)
	assertDec(t, "1594.5", res.Total)
}

// =============================================================================
// STACKED COMPONENTS
// =============================================================================

func TestCalc_NDFLAndInsurance(t *testing.T) {
	// NDFL = floor(100/0.87*0.13) = 14, insurance = floor(100*0.30) = 30
	res, err := tax.Calc(d("100"), d("1"), []tax.Component{
		internal("НДФЛ", "0.13"),
		external("Страховые", "0.30"),
	})
	require.NoError(t, err)
	require.Len(t, res.Breakdown, 2)
	assertDec(t, "14", res.Breakdown[0].AmountPerUnit)
	assertDec(t, "30", res.Breakdown[1].AmountPerUnit)
	assertDec(t, res.Breakdown[0].AmountPerUnit.Add(res.Breakdown[1].AmountPerUnit).String(), res.TaxAmount)
	assertDec(t, "144", res.Total)
}

func TestCalc_ChainedInternals(t *testing.T) {
	// GIVEN: two INTERNAL components in a row
	// THEN: the second grosses up the first one's gross (1000 + 63)
	res, err := tax.Calc(d("1000"), d("1"), []tax.Component{
		internal("A", "0.06"),
		internal("B", "0.13"),
	})
	require.NoError(t, err)
	assertDec(t, "63", res.Breakdown[0].AmountPerUnit)
	assertDec(t, "158", res.Breakdown[1].AmountPerUnit) // floor(1063*0.13/0.87)
	assertDec(t, "1221", res.Total)
}

func TestCalc_InternalAfterExternal_UsesQuotedRate(t *testing.T) {
	res, err := tax.Calc(d("1000"), d("1"), []tax.Component{
		internal("A", "0.06"),
		external("B", "0.20"),
		internal("C", "0.13"),
	})
	require.NoError(t, err)
	assertDec(t, "63", res.Breakdown[0].AmountPerUnit)
	assertDec(t, "200", res.Breakdown[1].AmountPerUnit)
	assertDec(t, "149", res.Breakdown[2].AmountPerUnit) // floor(1000*0.13/0.87)
	assertDec(t, "412", res.TaxAmount)
}

func TestCalc_RecipientSplit(t *testing.T) {
	var ipNDS tax.Scheme
	for _, s := range tax.SystemSchemes() {
		if s.ID == tax.SchemeIPNDS {
			ipNDS = s
		}
	}
	res, err := tax.Calc(d("1000"), d("2"), ipNDS.Ordered())
	require.NoError(t, err)
	assertDec(t, "126", res.TaxFor(tax.RecipientContractor))
	assertDec(t, "400", res.TaxFor(tax.RecipientBudget))
	assertDec(t, "2526", res.Total)
}

func TestCalc_FLScheme_DiffersFromFixedEnumFormula(t *testing.T) {
	// The fixed-enum formula charged insurance on the gross (1149 * 0.30 = 344).
	// The component stack charges EXTERNAL taxes on the quoted rate.
	var fl tax.Scheme
	for _, s := range tax.SystemSchemes() {
		if s.ID == tax.SchemeFL {
			fl = s
		}
	}
	res, err := tax.Calc(d("1000"), d("10"), fl.Ordered())
	require.NoError(t, err)
	assertDec(t, "149", res.PerUnit.Breakdown[0].AmountPerUnit)
	assertDec(t, "300", res.PerUnit.Breakdown[1].AmountPerUnit)
	assertDec(t, "14490", res.Total)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestCalc_InvalidRates(t *testing.T) {
	for _, c := range []tax.Component{
		internal("full", "1"),
		internal("over", "1.5"),
		internal("negative", "-0.1"),
		external("negative", "-0.2"),
	} {
		_, err := tax.Calc(d("100"), d("1"), []tax.Component{c})
		require.Error(t, err, c.Name)
		assert.ErrorIs(t, err, tax.ErrInvalidTaxRate)
		var rateErr *tax.InvalidRateError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, c.Name, rateErr.Component)
		assert.True(t, tax.IsClientError(err))
	}
}

func TestCalc_ExternalRateAboveOneIsAllowed(t *testing.T) {
	res, err := tax.Calc(d("100"), d("1"), []tax.Component{external("surcharge", "1.5")})
	require.NoError(t, err)
	assertDec(t, "150", res.TaxAmount)
}

func TestCalc_UnknownMode(t *testing.T) {
	_, err := tax.Calc(d("100"), d("1"), []tax.Component{{Name: "x", Rate: d("0.1"), Mode: "SIDEWAYS"}})
	assert.ErrorIs(t, err, tax.ErrInvalidScheme)
}

func TestScheme_Validate(t *testing.T) {
	for _, s := range tax.SystemSchemes() {
		assert.NoError(t, s.Validate(), s.Name)
	}

	assert.ErrorIs(t, tax.Scheme{}.Validate(), tax.ErrInvalidScheme)
	assert.ErrorIs(t, tax.Scheme{Name: "x", Components: []tax.Component{{Name: "a", Rate: d("0.1"), Mode: tax.Internal}}}.Validate(), tax.ErrInvalidScheme)
	assert.ErrorIs(t, tax.Scheme{Name: "x", Components: []tax.Component{internal("a", "1")}}.Validate(), tax.ErrInvalidTaxRate)
}

func TestScheme_OrderedIsStable(t *testing.T) {
	s := tax.Scheme{Components: []tax.Component{
		{Name: "c", Order: 2}, {Name: "a", Order: 0}, {Name: "b1", Order: 1}, {Name: "b2", Order: 1},
	}}
	var names []string
	for _, c := range s.Ordered() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, names)
	assert.Equal(t, "c", s.Components[0].Name, "Ordered must not mutate the scheme")
}
