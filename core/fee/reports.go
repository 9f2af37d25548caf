package fee

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type DuesRow struct {
	Student Student         `json:"student"`
	Dues    decimal.Decimal `json:"dues"`
}

// DuesList returns the students owing more than epsilon, largest dues first.
func DuesList(students []Student, fc *FinancialContext, now time.Time, class string) []DuesRow {
	rows := make([]DuesRow, 0)
	for _, st := range students {
		if class != "" && st.Class != class {
			continue
		}
		fin := ComputeStudentFinancials(st, fc, now)
		if !fin.HasDues() {
			continue
		}
		rows = append(rows, DuesRow{Student: st, Dues: fin.Outstanding})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Dues.GreaterThan(rows[j].Dues) })
	return rows
}

type DiscountSummaryRow struct {
	Discount     DiscountCategory `json:"discount"`
	StudentCount int              `json:"student_count"`
	SessionValue decimal.Decimal  `json:"session_value"`
}

// DiscountSummary estimates what each discount category is worth over a session:
// its monthly value for every holder times 12. Head-wise categories are valued on their head's fee,
// monthly-total ones on the class's gross fee across all heads.
func DiscountSummary(students []Student, fc *FinancialContext) []DiscountSummaryRow {
	ids := make([]string, 0, len(fc.Discounts))
	for id := range fc.Discounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	twelve := decimal.NewFromInt(12)
	rows := make([]DiscountSummaryRow, 0, len(ids))
	for _, id := range ids {
		dc := fc.Discounts[id]
		row := DiscountSummaryRow{Discount: dc, SessionValue: decimal.Zero}
		for _, st := range students {
			if !st.HasDiscount(id) {
				continue
			}
			row.StudentCount++
			structure, ok := fc.Structures[st.Class]
			if !ok {
				continue
			}
			var monthly decimal.Decimal
			switch {
			case dc.Type == HeadWise && dc.FeeHeadID != "":
				monthly = dc.Amount(structure.Amount(dc.FeeHeadID))
			case dc.Type == MonthlyTotal:
				monthly = dc.Amount(grossOfAllHeads(structure, fc.FeeHeads))
			default:
				continue
			}
			row.SessionValue = row.SessionValue.Add(monthly.Mul(twelve))
		}
		rows = append(rows, row)
	}
	return rows
}

type HeadCollection struct {
	FeeHead FeeHead         `json:"fee_head"`
	Amount  decimal.Decimal `json:"amount"`
}

// HeadwiseCollection splits the fee payments dated within [from, to] across fee heads, in proportion
// to each head's share of the payer's class gross fee. Payers without a structure or with a zero gross are skipped.
func HeadwiseCollection(students []Student, fc *FinancialContext, from, to time.Time) []HeadCollection {
	classOf := make(map[string]string, len(students))
	for _, st := range students {
		classOf[st.QRID] = st.Class
	}

	totals := make(map[string]decimal.Decimal, len(fc.FeeHeads))
	for qrID, payments := range fc.Payments {
		structure, ok := fc.Structures[classOf[qrID]]
		if !ok {
			continue
		}
		gross := grossOfAllHeads(structure, fc.FeeHeads)
		if !gross.IsPositive() {
			continue
		}
		for _, t := range payments {
			if t.Date.Before(from) || t.Date.After(to) {
				continue
			}
			for _, h := range fc.FeeHeads {
				share := t.Amount.Mul(structure.Amount(h.ID)).Div(gross)
				totals[h.ID] = totals[h.ID].Add(share)
			}
		}
	}

	rows := make([]HeadCollection, 0, len(fc.FeeHeads))
	for _, h := range fc.FeeHeads {
		rows = append(rows, HeadCollection{FeeHead: h, Amount: Round2(totals[h.ID])})
	}
	return rows
}

type DayBookReport struct {
	Date         time.Time       `json:"date"`
	Transactions []Transaction   `json:"transactions"`
	Total        decimal.Decimal `json:"total"`
}

// DayBook lists every transaction recorded on the calendar day of `day`, oldest first.
func DayBook(fc *FinancialContext, day time.Time) DayBookReport {
	loc := fc.Location
	if loc == nil {
		loc = time.UTC
	}
	day = day.In(loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	rep := DayBookReport{Date: start, Transactions: make([]Transaction, 0), Total: decimal.Zero}
	for _, t := range fc.Transactions() {
		if t.Date.Before(start) || !t.Date.Before(end) {
			continue
		}
		rep.Transactions = append(rep.Transactions, t)
		rep.Total = rep.Total.Add(t.Amount)
	}
	sort.SliceStable(rep.Transactions, func(i, j int) bool {
		return rep.Transactions[i].Date.Before(rep.Transactions[j].Date)
	})
	return rep
}

type ClassStrengthRow struct {
	Class    string `json:"class"`
	Students int    `json:"students"`
}

// ClassStrength counts students per class, classes in ascending order.
func ClassStrength(students []Student) []ClassStrengthRow {
	counts := make(map[string]int)
	for _, st := range students {
		counts[st.Class]++
	}
	rows := make([]ClassStrengthRow, 0, len(counts))
	for class, n := range counts {
		rows = append(rows, ClassStrengthRow{Class: class, Students: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Class < rows[j].Class })
	return rows
}

func grossOfAllHeads(structure ClassFeeStructure, heads []FeeHead) decimal.Decimal {
	gross := decimal.Zero
	for _, h := range heads {
		gross = gross.Add(structure.Amount(h.ID))
	}
	return gross
}
