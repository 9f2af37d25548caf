package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassifyStatus derives a month's status. Months that have not started are always Upcoming,
// and a balance within epsilon is always Paid.
func ClassifyStatus(monthStart, now time.Time, paid, fee decimal.Decimal) MonthStatus {
	if monthStart.After(now) {
		return StatusUpcoming
	}
	switch balance := fee.Sub(paid); {
	case balance.LessThanOrEqual(epsilon):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusDue
	}
}
