package fee

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const maxCachedLedgers = 10000

type cacheKey struct {
	qrID     string
	version  uint64
	asOf     string // calendar date, YYYY-MM-DD
	midnight bool
}

// newCacheKey keys `now` by its calendar date in the fee time zone. Month starts and due dates are
// midnights compared strictly against `now`, so a ledger only changes with the date and at the
// midnight instant itself.
func newCacheKey(qrID string, version uint64, now time.Time) cacheKey {
	y, m, d := now.Date()
	return cacheKey{
		qrID:     qrID,
		version:  version,
		asOf:     now.Format("2006-01-02"),
		midnight: now.Equal(time.Date(y, m, d, 0, 0, 0, 0, now.Location())),
	}
}

// ledgerCache memoizes Financials per (student, context version, as-of date).
// Only writes made through the owning Service bump the version: writes by another process to a
// shared database stay invisible until the next local write.
type ledgerCache struct {
	mu      sync.Mutex
	version uint64
	entries map[cacheKey]Financials
}

func newLedgerCache() *ledgerCache {
	return &ledgerCache{entries: make(map[cacheKey]Financials)}
}

func (c *ledgerCache) get(key cacheKey) (Financials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fin, ok := c.entries[key]
	if !ok {
		return Financials{}, false
	}
	return fin.clone(), true
}

func (c *ledgerCache) put(key cacheKey, fin Financials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key.version < c.version {
		return // computed from a snapshot that is already stale
	}
	if key.version > c.version || len(c.entries) >= maxCachedLedgers {
		c.entries = make(map[cacheKey]Financials)
		c.version = key.version
	}
	c.entries[key] = fin.clone()
}

func (f Financials) clone() Financials {
	months := make([]LedgerEntry, len(f.Months))
	copy(months, f.Months)
	f.Months = months
	if f.Discounts != nil {
		bd := *f.Discounts
		bd.HeadwiseByHead = make(map[string]decimal.Decimal, len(f.Discounts.HeadwiseByHead))
		for k, v := range f.Discounts.HeadwiseByHead {
			bd.HeadwiseByHead[k] = v
		}
		f.Discounts = &bd
	}
	return f
}
