package fee

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Aging buckets
const (
	Bucket0To30  = "0-30 Days"
	Bucket31To60 = "31-60 Days"
	Bucket61To90 = "61-90 Days"
	Bucket90Plus = "90+ Days"
)

var AgingBuckets = []string{Bucket0To30, Bucket31To60, Bucket61To90, Bucket90Plus}

// AgingBucket classifies a number of days overdue.
func AgingBucket(days int) string {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

func IsAgingBucket(b string) bool {
	for _, ab := range AgingBuckets {
		if ab == b {
			return true
		}
	}
	return false
}

type Defaulter struct {
	Student     Student         `json:"student"`
	Outstanding decimal.Decimal `json:"outstanding_balance"`
	FirstUnpaid MonthRef        `json:"first_unpaid"`
	DaysOverdue int             `json:"days_overdue"`
	Bucket      string          `json:"aging_bucket"`
}

// ClassifyDefaulter returns the aging of a student's dues, false when nothing is outstanding.
// Aging runs from the first unpaid month; a balance made only of additional fees ages from `now`.
func ClassifyDefaulter(st Student, fin Financials, now time.Time) (Defaulter, bool) {
	if !fin.HasDues() {
		return Defaulter{}, false
	}
	firstMonth := MonthRef{Year: now.Year(), Month: int(now.Month()) - 1}
	days := 0
	if first, ok := fin.FirstUnpaid(); ok {
		firstMonth = first.MonthRef
		if days = int(now.Sub(first.start).Hours() / 24); days < 0 {
			days = 0
		}
	}
	return Defaulter{
		Student:     st,
		Outstanding: fin.Outstanding,
		FirstUnpaid: firstMonth,
		DaysOverdue: days,
		Bucket:      AgingBucket(days),
	}, true
}

// Defaulters lists overdue students, most overdue first. Empty class or bucket match everything.
func Defaulters(students []Student, fc *FinancialContext, now time.Time, class, bucket string) []Defaulter {
	rows := make([]Defaulter, 0)
	for _, st := range students {
		if class != "" && st.Class != class {
			continue
		}
		d, ok := ClassifyDefaulter(st, ComputeStudentFinancials(st, fc, now), now)
		if !ok || (bucket != "" && d.Bucket != bucket) {
			continue
		}
		rows = append(rows, d)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DaysOverdue > rows[j].DaysOverdue })
	return rows
}
