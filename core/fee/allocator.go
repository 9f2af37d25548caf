package fee

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Allocator spreads a student's fee payments over the started months of their ledger.
// It sets Paid on the entries and returns what could not be applied.
// Months that have not started are never touched.
type Allocator interface {
	Allocate(entries []LedgerEntry, payments []Transaction, now time.Time) (unapplied decimal.Decimal)
}

var (
	_ Allocator = FIFOAllocator{}
	_ Allocator = TargetedAllocator{}
)

// NewAllocator returns the allocator for the given policy name; anything but "fifo" is targeted.
func NewAllocator(policy string) Allocator {
	if policy == "fifo" {
		return FIFOAllocator{}
	}
	return TargetedAllocator{}
}

// FIFOAllocator pools every payment and settles months oldest first, ignoring MonthsCovered.
type FIFOAllocator struct{}

func (FIFOAllocator) Allocate(entries []LedgerEntry, payments []Transaction, now time.Time) decimal.Decimal {
	pool := decimal.Zero
	for _, p := range payments {
		pool = pool.Add(p.Amount)
	}
	return fillOldestFirst(entries, pool, now)
}

// TargetedAllocator first applies each payment to the months it was recorded against,
// in the order they were listed, then pools the remainders oldest first.
type TargetedAllocator struct{}

func (TargetedAllocator) Allocate(entries []LedgerEntry, payments []Transaction, now time.Time) decimal.Decimal {
	index := make(map[MonthRef]int, len(entries))
	for i := range entries {
		index[entries[i].MonthRef] = i
	}

	ordered := make([]Transaction, len(payments))
	copy(ordered, payments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	pool := decimal.Zero
	for _, p := range ordered {
		left := p.Amount
		for _, m := range p.MonthsCovered {
			i, ok := index[m]
			if !ok || !entries[i].started(now) || !left.IsPositive() {
				continue
			}
			left = left.Sub(apply(&entries[i], left))
		}
		pool = pool.Add(left)
	}
	return fillOldestFirst(entries, pool, now)
}

func fillOldestFirst(entries []LedgerEntry, pool decimal.Decimal, now time.Time) decimal.Decimal {
	for i := range entries {
		if !pool.IsPositive() {
			break
		}
		if !entries[i].started(now) {
			continue
		}
		pool = pool.Sub(apply(&entries[i], pool))
	}
	return pool
}

// apply pays as much of the entry's remaining base due as `available` allows and returns the amount used.
func apply(e *LedgerEntry, available decimal.Decimal) decimal.Decimal {
	needed := e.DueAmount.Sub(e.Paid)
	if !needed.IsPositive() {
		return decimal.Zero
	}
	amt := minDecimal(available, needed)
	e.Paid = e.Paid.Add(amt)
	return amt
}
