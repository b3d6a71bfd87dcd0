package production

import "github.com/shopspring/decimal"

// DefaultBaseShiftHours is the standard shoot-day length.
var DefaultBaseShiftHours = decimal.NewFromInt(12)

var sixty = decimal.NewFromInt(60)

// Overtime returns hours worked past baseShiftHours, rounded to 2 places.
//
//	worked = end - start (+24h when the shift crosses midnight) - lunch - gap
//	hours  = max(worked / 60, 0)
//	result = max(hours - baseShiftHours, 0)
//
// An unset start or end yields 0. Rounding is half-even.
func Overtime(start, end ClockTime, lunchMinutes, gapMinutes int, baseShiftHours decimal.Decimal) decimal.Decimal {
	if !start.Valid || !end.Valid {
		return decimal.Zero
	}
	total := end.Minutes() - start.Minutes()
	if total < 0 {
		total += 24 * 60
	}
	worked := total - lunchMinutes - gapMinutes

	hours := decimal.NewFromInt(int64(worked)).Div(sixty)
	if hours.IsNegative() {
		hours = decimal.Zero
	}
	over := hours.Sub(baseShiftHours)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over.RoundBank(2)
}
