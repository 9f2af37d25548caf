package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

// LateFee computes the penalty of a ledger month at `now`.
// A penalty is due once `now` is past the due date (midnight of the due day), the month has started
// and the base due is not fully paid. Daily rules charge per whole day elapsed since the due date.
func LateFee(e LedgerEntry, rule *LateFeeRule, now time.Time) decimal.Decimal {
	if rule == nil || !rule.Value.IsPositive() {
		return decimal.Zero
	}
	if !e.started(now) || !e.Paid.LessThan(e.DueAmount) || !now.After(e.DueDate) {
		return decimal.Zero
	}

	switch rule.Type {
	case LateFeeFixed:
		return rule.Value
	case LateFeeDaily:
		days := daysBetween(e.DueDate, now)
		if days <= 0 {
			return decimal.Zero
		}
		return rule.Value.Mul(decimal.NewFromInt(int64(days)))
	}
	return decimal.Zero
}

// daysBetween counts whole calendar days from the day of `from` to the day of `to`, in from's location.
func daysBetween(from, to time.Time) int {
	loc := from.Location()
	to = to.In(loc)
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
