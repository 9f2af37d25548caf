package fee

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentByID(qrID string) Student {
	for _, st := range mockStudents() {
		if st.QRID == qrID {
			return st
		}
	}
	panic("unknown student " + qrID)
}

func TestComputeStudentFinancials_partialPaymentWithLateFee(t *testing.T) {
	data := mockData()
	data.Transactions = []Transaction{payment("UDS-S-002", "5000", day(2024, time.April, 10))}
	fc := NewFinancialContext(data)

	fin := ComputeStudentFinancials(studentByID("UDS-S-002"), fc, day(2024, time.May, 20))
	require.False(t, fin.NoFeeStructure)
	require.Len(t, fin.Months, 12)

	april, may := fin.Months[0], fin.Months[1]
	assert.Equal(t, "April", april.MonthName)
	assert.Equal(t, "7835.00", april.DueAmount.StringFixed(2))
	assert.Equal(t, "100.00", april.LateFee.StringFixed(2))
	assert.Equal(t, "5000.00", april.Paid.StringFixed(2))
	assert.Equal(t, "2935.00", april.Balance.StringFixed(2))
	assert.Equal(t, StatusPartiallyPaid, april.Status)

	assert.Equal(t, "5435.00", may.Fee.StringFixed(2))
	assert.Equal(t, StatusDue, may.Status)

	for _, m := range fin.Months[2:] {
		assert.Equal(t, StatusUpcoming, m.Status, m.MonthName)
		assert.True(t, m.LateFee.IsZero(), m.MonthName)
	}

	assert.Equal(t, "13370.00", fin.TotalDuesToDate.StringFixed(2))
	assert.Equal(t, "5000.00", fin.TotalPaid.StringFixed(2))
	assert.Equal(t, "8370.00", fin.Outstanding.StringFixed(2))

	first, ok := fin.FirstUnpaid()
	require.True(t, ok)
	assert.Equal(t, month(2024, time.April), first.MonthRef)
}

func TestComputeStudentFinancials_withoutLateFee(t *testing.T) {
	data := mockData()
	data.LateFeeRule = &LateFeeRule{DueDay: 15, Type: LateFeeFixed, Value: decimal.Zero}
	data.Transactions = []Transaction{payment("UDS-S-002", "5000", day(2024, time.April, 10))}
	fc := NewFinancialContext(data)

	fin := ComputeStudentFinancials(studentByID("UDS-S-002"), fc, day(2024, time.May, 20))
	assert.Equal(t, "8170.00", fin.Outstanding.StringFixed(2))
	assert.Equal(t, StatusPartiallyPaid, fin.Months[0].Status)
}

func TestComputeStudentFinancials_withDiscountsAndTransport(t *testing.T) {
	fc := NewFinancialContext(mockData())

	fin := ComputeStudentFinancials(studentByID("UDS-S-001"), fc, day(2024, time.May, 10))
	assert.Equal(t, "5635.00", fin.NetMonthlyFee.StringFixed(2))
	require.NotNil(t, fin.Discounts)
	assert.Equal(t, "500.00", fin.Discounts.HeadwiseDiscount.StringFixed(2))
	// April: 5635 + 2500 annual + 100 late; May is not yet late.
	assert.Equal(t, "8235.00", fin.Months[0].Fee.StringFixed(2))
	assert.Equal(t, "5635.00", fin.Months[1].Fee.StringFixed(2))
	assert.Equal(t, "13870.00", fin.Outstanding.StringFixed(2))
}

func TestComputeStudentFinancials_noFeeStructure(t *testing.T) {
	data := mockData()
	data.Transactions = []Transaction{payment("UDS-S-404", "1000", day(2024, time.April, 10))}
	fc := NewFinancialContext(data)

	fin := ComputeStudentFinancials(Student{QRID: "UDS-S-404", Class: "12"}, fc, day(2024, time.May, 20))
	assert.True(t, fin.NoFeeStructure)
	assert.Empty(t, fin.Months)
	assert.Nil(t, fin.Discounts)
	assert.True(t, fin.Outstanding.IsZero())
	assert.True(t, fin.TotalPaid.IsZero())
	assert.False(t, fin.HasDues())
}

func TestComputeStudentFinancials_additionalFeesAndWaivers(t *testing.T) {
	now := day(2024, time.April, 10)
	tests := []struct {
		name       string
		additional []string
		waivers    []string
		paid       string
		want       string
	}{
		{name: "ledger only", want: "7835.00"},
		{name: "additional fee", additional: []string{"1500"}, want: "9335.00"},
		{name: "waiver", waivers: []string{"835"}, want: "7000.00"},
		{name: "both", additional: []string{"1500", "500"}, waivers: []string{"2000"}, want: "7835.00"},
		{name: "waiver over dues", waivers: []string{"10000"}, want: "0.00"},
		{name: "overpaid", paid: "9000", want: "0.00"},
		{name: "additional fee paid by overpayment", additional: []string{"1165"}, paid: "9000", want: "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mockData()
			for i, a := range tt.additional {
				data.AdditionalFees = append(data.AdditionalFees, AdditionalFee{
					ID: string(rune('a' + i)), QRID: "UDS-S-002", Description: "Exam fee", Amount: amt(a), DateIssued: now,
				})
			}
			for i, w := range tt.waivers {
				data.Waivers = append(data.Waivers, FeeWaiver{
					ID: string(rune('a' + i)), QRID: "UDS-S-002", Amount: amt(w), Reason: "Hardship", Date: now,
				})
			}
			if tt.paid != "" {
				data.Transactions = append(data.Transactions, payment("UDS-S-002", tt.paid, now))
			}

			fin := ComputeStudentFinancials(studentByID("UDS-S-002"), NewFinancialContext(data), now)
			assert.Equal(t, tt.want, fin.Outstanding.StringFixed(2))
		})
	}
}

func TestComputeStudentFinancials_ignoresOtherTransactionTypes(t *testing.T) {
	data := mockData()
	refund := payment("UDS-S-002", "7835", day(2024, time.April, 5))
	refund.Type = "Refund"
	data.Transactions = []Transaction{refund}

	fin := ComputeStudentFinancials(studentByID("UDS-S-002"), NewFinancialContext(data), day(2024, time.April, 10))
	assert.True(t, fin.TotalPaid.IsZero())
	assert.Equal(t, "7835.00", fin.Outstanding.StringFixed(2))
}

func TestComputeStudentFinancials_sessionRollover(t *testing.T) {
	data := mockData()
	data.Transactions = []Transaction{payment("UDS-S-003", "100000", day(2024, time.April, 5))}
	fc := NewFinancialContext(data)

	march := ComputeStudentFinancials(studentByID("UDS-S-003"), fc, day(2025, time.March, 31))
	assert.Equal(t, month(2025, time.March), march.Months[11].MonthRef)
	assert.Equal(t, StatusPaid, march.Months[11].Status)

	april := ComputeStudentFinancials(studentByID("UDS-S-003"), fc, day(2025, time.April, 1))
	assert.Equal(t, month(2025, time.April), april.Months[0].MonthRef)
	assert.Equal(t, month(2026, time.March), april.Months[11].MonthRef)
}

func TestComputeStudentFinancials_properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	students := mockStudents()
	allocators := []Allocator{FIFOAllocator{}, TargetedAllocator{}}
	start := day(2024, time.April, 1)

	for i := 0; i < 200; i++ {
		now := start.AddDate(0, 0, rnd.Intn(365))
		data := mockData()
		if rnd.Intn(2) == 0 {
			data.LateFeeRule = &LateFeeRule{DueDay: 1 + rnd.Intn(31), Type: LateFeeDaily, Value: amt("5")}
		}
		for j, n := 0, rnd.Intn(6); j < n; j++ {
			st := students[rnd.Intn(len(students))]
			on := start.AddDate(0, 0, rnd.Intn(365))
			covered := []MonthRef{AcademicSession(start)[rnd.Intn(12)]}
			data.Transactions = append(data.Transactions,
				payment(st.QRID, decimal.NewFromInt(int64(rnd.Intn(20000))).String(), on, covered...))
		}
		if rnd.Intn(3) == 0 {
			data.Waivers = append(data.Waivers, FeeWaiver{ID: "w", QRID: students[0].QRID, Amount: amt("750"), Date: now})
		}
		if rnd.Intn(3) == 0 {
			data.AdditionalFees = append(data.AdditionalFees, AdditionalFee{ID: "a", QRID: students[1].QRID, Amount: amt("1200"), DateIssued: now})
		}
		fc := NewFinancialContext(data, WithAllocator(allocators[i%2]))

		for _, st := range students {
			fin := ComputeStudentFinancials(st, fc, now)

			if fin.Outstanding.IsNegative() {
				t.Fatalf("#%d %s: negative outstanding %s", i, st.QRID, fin.Outstanding)
			}

			balances := decimal.Zero
			allocated := decimal.Zero
			for _, m := range fin.Months {
				if m.Balance.IsNegative() {
					t.Fatalf("#%d %s %s: negative balance %s", i, st.QRID, m.MonthName, m.Balance)
				}
				if m.Status == StatusUpcoming {
					if !m.Paid.IsZero() || !m.LateFee.IsZero() {
						t.Fatalf("#%d %s %s: upcoming month paid %s late %s", i, st.QRID, m.MonthName, m.Paid, m.LateFee)
					}
					continue
				}
				balances = balances.Add(m.Balance)
				allocated = allocated.Add(m.Paid)
			}
			if !allocated.Add(fin.Unapplied).Equal(fin.TotalPaid) {
				t.Fatalf("#%d %s: allocated %s + unapplied %s != paid %s", i, st.QRID, allocated, fin.Unapplied, fin.TotalPaid)
			}
			want := clampZero(balances.Add(fin.TotalAdditionalFees).Sub(fin.TotalWaived).Sub(fin.Unapplied))
			if !fin.Outstanding.Equal(want) {
				t.Fatalf("#%d %s: outstanding %s, want %s", i, st.QRID, fin.Outstanding, want)
			}

			again := ComputeStudentFinancials(st, fc, now)
			if !again.Outstanding.Equal(fin.Outstanding) || len(again.Months) != len(fin.Months) {
				t.Fatalf("#%d %s: not idempotent", i, st.QRID)
			}
			for k := range fin.Months {
				if again.Months[k].Status != fin.Months[k].Status || !again.Months[k].Balance.Equal(fin.Months[k].Balance) {
					t.Fatalf("#%d %s %s: not idempotent", i, st.QRID, fin.Months[k].MonthName)
				}
			}
		}
	}
}

// Adding a payment never moves a month back from Paid, or from Partially Paid to Due.
func TestComputeStudentFinancials_statusMonotonicity(t *testing.T) {
	rank := map[MonthStatus]int{StatusUpcoming: -1, StatusDue: 0, StatusPartiallyPaid: 1, StatusPaid: 2}
	now := day(2024, time.August, 20)
	st := studentByID("UDS-S-001")

	for _, a := range []Allocator{FIFOAllocator{}, TargetedAllocator{}} {
		data := mockData()
		prev := ComputeStudentFinancials(st, NewFinancialContext(data, WithAllocator(a)), now)
		for i := 0; i < 15; i++ {
			data.Transactions = append(data.Transactions,
				payment(st.QRID, "2750", day(2024, time.April, 1+i), AcademicSession(now)[i%5]))
			fin := ComputeStudentFinancials(st, NewFinancialContext(data, WithAllocator(a)), now)
			for k, m := range fin.Months {
				if rank[m.Status] < rank[prev.Months[k].Status] {
					t.Errorf("%T payment #%d: %s went from %s to %s", a, i, m.MonthName, prev.Months[k].Status, m.Status)
				}
			}
			prev = fin
		}
	}
}
