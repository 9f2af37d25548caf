package fee

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)

	// epsilon is the tolerance under which a balance counts as settled.
	epsilon = decimal.New(1, -2)
)

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Round2 rounds an amount to paise for presentation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
