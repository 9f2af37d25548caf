package fee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgingBucket(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, Bucket0To30},
		{30, Bucket0To30},
		{31, Bucket31To60},
		{60, Bucket31To60},
		{61, Bucket61To90},
		{90, Bucket61To90},
		{91, Bucket90Plus},
		{400, Bucket90Plus},
	}
	for _, tt := range tests {
		if got := AgingBucket(tt.days); got != tt.want {
			t.Errorf("AgingBucket(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
	assert.True(t, IsAgingBucket("61-90 Days"))
	assert.False(t, IsAgingBucket("61-90"))
}

func TestDefaulters(t *testing.T) {
	now := day(2024, time.July, 20)
	data := mockData()
	data.Transactions = []Transaction{
		payment("UDS-S-002", "7835", day(2024, time.April, 5)),
		// everything due to date, late fees included
		payment("UDS-S-003", "100000", day(2024, time.April, 5)),
	}
	fc := NewFinancialContext(data)

	rows := Defaulters(mockStudents(), fc, now, "", "")
	require.Len(t, rows, 2)

	assert.Equal(t, "UDS-S-001", rows[0].Student.QRID)
	assert.Equal(t, month(2024, time.April), rows[0].FirstUnpaid)
	assert.Equal(t, 110, rows[0].DaysOverdue)
	assert.Equal(t, Bucket90Plus, rows[0].Bucket)

	assert.Equal(t, "UDS-S-002", rows[1].Student.QRID)
	assert.Equal(t, month(2024, time.May), rows[1].FirstUnpaid)
	assert.Equal(t, 80, rows[1].DaysOverdue)
	assert.Equal(t, Bucket61To90, rows[1].Bucket)

	t.Run("by bucket", func(t *testing.T) {
		rows := Defaulters(mockStudents(), fc, now, "", Bucket61To90)
		require.Len(t, rows, 1)
		assert.Equal(t, "UDS-S-002", rows[0].Student.QRID)
	})
	t.Run("by class", func(t *testing.T) {
		assert.Empty(t, Defaulters(mockStudents(), fc, now, "9", ""))
	})
}

func TestClassifyDefaulter_noDues(t *testing.T) {
	now := day(2024, time.April, 20)
	fin := Financials{Outstanding: amt("0.01")}
	_, ok := ClassifyDefaulter(Student{QRID: "S"}, fin, now)
	assert.False(t, ok)
}

// A waiver can clear the balance while months still show as unpaid.
func TestClassifyDefaulter_waivedBalance(t *testing.T) {
	now := day(2024, time.April, 20)
	data := mockData()
	data.Waivers = []FeeWaiver{{ID: "w1", QRID: "UDS-S-002", Amount: amt("7935"), Reason: "Hardship", Date: now}}
	fc := NewFinancialContext(data)

	fin := ComputeStudentFinancials(studentByID("UDS-S-002"), fc, now)
	require.Equal(t, StatusDue, fin.Months[0].Status)
	_, ok := ClassifyDefaulter(studentByID("UDS-S-002"), fin, now)
	assert.False(t, ok)
}

func TestClassifyDefaulter(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		payments   []Transaction
		additional []AdditionalFee
		wantFirst  MonthRef
		wantDays   int
		wantBucket string
	}{
		{
			name:       "unpaid month",
			now:        day(2024, time.May, 20),
			payments:   []Transaction{payment("UDS-S-002", "7835", day(2024, time.April, 5))},
			wantFirst:  month(2024, time.May),
			wantDays:   19,
			wantBucket: Bucket0To30,
		},
		{
			name:       "only additional fees outstanding",
			now:        day(2024, time.April, 20),
			payments:   []Transaction{payment("UDS-S-002", "7835", day(2024, time.April, 5))},
			additional: []AdditionalFee{{ID: "a1", QRID: "UDS-S-002", Description: "Trip", Amount: amt("1000"), DateIssued: day(2024, time.April, 1)}},
			wantFirst:  month(2024, time.April),
			wantDays:   0,
			wantBucket: Bucket0To30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mockData()
			data.Transactions = tt.payments
			data.AdditionalFees = tt.additional
			fc := NewFinancialContext(data)

			st := studentByID("UDS-S-002")
			d, ok := ClassifyDefaulter(st, ComputeStudentFinancials(st, fc, tt.now), tt.now)
			require.True(t, ok)
			assert.Equal(t, tt.wantFirst, d.FirstUnpaid)
			assert.Equal(t, tt.wantDays, d.DaysOverdue)
			assert.Equal(t, tt.wantBucket, d.Bucket)
		})
	}
}

func TestDefaulters_additionalFeesOnly(t *testing.T) {
	now := day(2024, time.April, 20)
	data := mockData()
	data.Transactions = []Transaction{payment("UDS-S-002", "7835", day(2024, time.April, 5))}
	data.AdditionalFees = []AdditionalFee{{ID: "a1", QRID: "UDS-S-002", Description: "Trip", Amount: amt("1000"), DateIssued: day(2024, time.April, 1)}}
	fc := NewFinancialContext(data)

	fin := ComputeStudentFinancials(studentByID("UDS-S-002"), fc, now)
	require.Equal(t, StatusPaid, fin.Months[0].Status)
	require.Equal(t, "1000.00", fin.Outstanding.StringFixed(2))

	rows := Defaulters(mockStudents(), fc, now, "10", "")
	var found bool
	for _, r := range rows {
		if r.Student.QRID == "UDS-S-002" {
			found = true
			assert.Equal(t, 0, r.DaysOverdue)
			assert.Equal(t, Bucket0To30, r.Bucket)
		}
	}
	assert.True(t, found, "UDS-S-002 missing from defaulters")
}
