package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuildLedger lays out the gross due of every session month: the net recurring fee, plus the full
// class amount of each annual head falling due that month. Annual heads are never discounted.
func BuildLedger(
	session []MonthRef,
	netRecurring decimal.Decimal,
	structure ClassFeeStructure,
	heads []FeeHead,
	dueDay int,
	loc *time.Location,
) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(session))
	for _, m := range session {
		due := netRecurring
		for _, head := range heads {
			if head.Type == AnnualOneTime && head.DueMonth-1 == m.Month {
				due = due.Add(structure.Amount(head.ID))
			}
		}
		entries = append(entries, LedgerEntry{
			MonthRef:  m,
			MonthName: m.Name(),
			DueDate:   dueDate(m, dueDay, loc),
			DueAmount: due,
			LateFee:   decimal.Zero,
			Fee:       due,
			Paid:      decimal.Zero,
			Balance:   due,
			start:     m.Start(loc),
		})
	}
	return entries
}

// dueDate returns the due day of month m, clamped to the month's last day.
func dueDate(m MonthRef, day int, loc *time.Location) time.Time {
	if day < 1 {
		day = 1
	}
	start := m.Start(loc)
	if last := start.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(m.Year, time.Month(m.Month+1), day, 0, 0, 0, 0, loc)
}

// started reports whether the month has begun at `now`.
func (e LedgerEntry) started(now time.Time) bool {
	return !e.start.After(now)
}
