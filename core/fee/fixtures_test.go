package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func month(y int, m time.Month) MonthRef {
	return MonthRef{Year: y, Month: int(m) - 1}
}

func payment(qrID, amount string, on time.Time, months ...MonthRef) Transaction {
	return Transaction{
		ID:            qrID + "-" + on.Format("20060102") + "-" + amount,
		QRID:          qrID,
		Type:          TypeFeePayment,
		Method:        Cash,
		Amount:        amt(amount),
		Date:          on,
		MonthsCovered: months,
	}
}

var (
	tuition   = FeeHead{ID: "tuition_fee", Name: "Tuition Fee", Type: MonthlyRecurring}
	library   = FeeHead{ID: "library_fee", Name: "Library Fee", Type: MonthlyRecurring}
	sports    = FeeHead{ID: "sports_fee", Name: "Sports Fee", Type: MonthlyRecurring}
	annualDev = FeeHead{ID: "annual_dev_fee", Name: "Annual Development Fee", Type: AnnualOneTime, DueMonth: 4}

	sibling     = DiscountCategory{ID: "sibling_discount", Name: "Sibling Discount", Type: HeadWise, Calculation: Percentage, Value: amt("10"), FeeHeadID: "tuition_fee"}
	staffWard   = DiscountCategory{ID: "staff_ward", Name: "Staff Ward", Type: MonthlyTotal, Calculation: Percentage, Value: amt("50")}
	scholarship = DiscountCategory{ID: "scholarship_25", Name: "Scholarship 25%", Type: MonthlyTotal, Calculation: Percentage, Value: amt("25")}

	class10 = ClassFeeStructure{Class: "10", Fees: map[string]decimal.Decimal{
		"tuition_fee": amt("5000"), "library_fee": amt("125"), "sports_fee": amt("210"), "annual_dev_fee": amt("2500"),
	}}
	class9 = ClassFeeStructure{Class: "9", Fees: map[string]decimal.Decimal{
		"tuition_fee": amt("4580"), "library_fee": amt("125"), "sports_fee": amt("210"), "annual_dev_fee": amt("2200"),
	}}

	fixedLateFee = LateFeeRule{DueDay: 15, Type: LateFeeFixed, Value: amt("100")}
)

func mockData() ContextData {
	rule := fixedLateFee
	return ContextData{
		FeeHeads:      []FeeHead{tuition, library, sports, annualDev},
		FeeStructures: []ClassFeeStructure{class10, class9},
		Discounts:     []DiscountCategory{sibling, staffWard, scholarship},
		TransportRoutes: []TransportRoute{
			{ID: "route_1", Name: "Route 1 - City Center", MonthlyFee: amt("800")},
			{ID: "route_2", Name: "Route 2 - Suburbs", MonthlyFee: amt("1200")},
		},
		LateFeeRule: &rule,
	}
}

func mockStudents() []Student {
	return []Student{
		{QRID: "UDS-S-001", Name: "Aarav Sharma", Class: "10", Email: "aarav.parent@example.com", DiscountCategoryIDs: []string{"sibling_discount"}, TransportRouteID: "route_1"},
		{QRID: "UDS-S-002", Name: "Diya Patel", Class: "10"},
		{QRID: "UDS-S-003", Name: "Kabir Singh", Class: "9"},
	}
}
