package fee

import (
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
		paid string
		fee  string
		want MonthStatus
	}{
		{name: "future month", now: day(2024, time.April, 30), paid: "0", fee: "5335", want: StatusUpcoming},
		{name: "future month fully prepaid", now: day(2024, time.April, 30), paid: "5335", fee: "5335", want: StatusUpcoming},
		{name: "first instant", now: start, paid: "0", fee: "5335", want: StatusDue},
		{name: "nothing paid", now: day(2024, time.May, 20), paid: "0", fee: "5435", want: StatusDue},
		{name: "some paid", now: day(2024, time.May, 20), paid: "1", fee: "5435", want: StatusPartiallyPaid},
		{name: "within epsilon", now: day(2024, time.May, 20), paid: "5434.99", fee: "5435", want: StatusPaid},
		{name: "just above epsilon", now: day(2024, time.May, 20), paid: "5434.98", fee: "5435", want: StatusPartiallyPaid},
		{name: "zero fee", now: day(2024, time.May, 20), paid: "0", fee: "0", want: StatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(start, tt.now, amt(tt.paid), amt(tt.fee)); got != tt.want {
				t.Errorf("ClassifyStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
