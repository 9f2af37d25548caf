package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/feeportal/core/fee"
)

// Seed loads the demo school into repo: three students, the class 9 and 10 fee structures, and a few
// payments of the session `now` falls in. Records have stable ids, so seeding twice is harmless.
func Seed(ctx context.Context, repo fee.Repository, now time.Time) error {
	year := fee.AcademicSession(now)[0].Year
	notAfter := func(t time.Time) time.Time {
		if t.After(now) {
			return now
		}
		return t
	}
	april := fee.MonthRef{Year: year, Month: int(time.April) - 1}
	may := fee.MonthRef{Year: year, Month: int(time.May) - 1}

	heads := []fee.FeeHead{
		{ID: "tuition_fee", Name: "Tuition Fee", Type: fee.MonthlyRecurring},
		{ID: "library_fee", Name: "Library Fee", Type: fee.MonthlyRecurring},
		{ID: "sports_fee", Name: "Sports Fee", Type: fee.MonthlyRecurring},
		{ID: "annual_dev_fee", Name: "Annual Development Fee", Type: fee.AnnualOneTime, DueMonth: 4},
	}
	for _, h := range heads {
		if _, err := repo.SaveFeeHead(ctx, h); err != nil {
			return errors.Wrapf(err, "seeding fee head %s", h.ID)
		}
	}

	discounts := []fee.DiscountCategory{
		{ID: "sibling_discount", Name: "Sibling Discount", Type: fee.HeadWise, Calculation: fee.Percentage, Value: decimal.NewFromInt(10), FeeHeadID: "tuition_fee"},
		{ID: "staff_ward", Name: "Staff Ward", Type: fee.MonthlyTotal, Calculation: fee.Percentage, Value: decimal.NewFromInt(50)},
		{ID: "scholarship_25", Name: "Scholarship 25%", Type: fee.MonthlyTotal, Calculation: fee.Percentage, Value: decimal.NewFromInt(25)},
	}
	for _, d := range discounts {
		if _, err := repo.SaveDiscount(ctx, d); err != nil {
			return errors.Wrapf(err, "seeding discount %s", d.ID)
		}
	}

	structures := []fee.ClassFeeStructure{
		{Class: "10", Fees: map[string]decimal.Decimal{
			"tuition_fee": decimal.NewFromInt(5000), "library_fee": decimal.NewFromInt(125),
			"sports_fee": decimal.NewFromInt(210), "annual_dev_fee": decimal.NewFromInt(2500),
		}},
		{Class: "9", Fees: map[string]decimal.Decimal{
			"tuition_fee": decimal.NewFromInt(4580), "library_fee": decimal.NewFromInt(125),
			"sports_fee": decimal.NewFromInt(210), "annual_dev_fee": decimal.NewFromInt(2200),
		}},
	}
	for _, s := range structures {
		if _, err := repo.SaveFeeStructure(ctx, s); err != nil {
			return errors.Wrapf(err, "seeding fee structure of class %s", s.Class)
		}
	}

	routes := []fee.TransportRoute{
		{ID: "route_1", Name: "City Center Route", MonthlyFee: decimal.NewFromInt(800)},
		{ID: "route_2", Name: "Suburb Route", MonthlyFee: decimal.NewFromInt(1200)},
	}
	for _, r := range routes {
		if _, err := repo.SaveTransportRoute(ctx, r); err != nil {
			return errors.Wrapf(err, "seeding transport route %s", r.ID)
		}
	}

	rule := fee.LateFeeRule{DueDay: 15, Type: fee.LateFeeFixed, Value: decimal.NewFromInt(100)}
	if _, err := repo.SaveLateFeeRule(ctx, rule); err != nil {
		return errors.Wrap(err, "seeding late fee rule")
	}

	students := []fee.Student{
		{QRID: "UDS-S-001", Name: "Ravi Kumar", Class: "10", Email: "suresh.kumar@example.com", DiscountCategoryIDs: []string{"sibling_discount"}, TransportRouteID: "route_1"},
		{QRID: "UDS-S-002", Name: "Priya Sharma", Class: "10", Email: "rajesh.sharma@example.com", DiscountCategoryIDs: []string{}},
		{QRID: "UDS-S-003", Name: "Amit Singh", Class: "9", DiscountCategoryIDs: []string{}},
	}
	for _, st := range students {
		if _, err := repo.SaveStudent(ctx, st); err != nil {
			return errors.Wrapf(err, "seeding student %s", st.QRID)
		}
	}

	loc := now.Location()
	transactions := []fee.Transaction{
		{
			ID: "t1", QRID: "UDS-S-001", Type: fee.TypeFeePayment, Method: fee.Cash, Amount: decimal.NewFromInt(5000),
			Date: notAfter(time.Date(year, time.April, 10, 10, 0, 0, 0, loc)), MonthsCovered: []fee.MonthRef{april},
		},
		{
			ID: "t2", QRID: "UDS-S-002", Type: fee.TypeFeePayment, Method: fee.Online, Amount: decimal.NewFromInt(12000),
			Date: notAfter(time.Date(year, time.May, 5, 10, 0, 0, 0, loc)), MonthsCovered: []fee.MonthRef{april, may},
		},
	}
	for _, t := range transactions {
		if _, err := repo.SaveTransaction(ctx, t); err != nil {
			return errors.Wrapf(err, "seeding transaction %s", t.ID)
		}
	}

	additional := []fee.AdditionalFee{
		{ID: "af1", QRID: "UDS-S-001", Description: "Annual Day Contribution", Amount: decimal.NewFromInt(500), DateIssued: now.AddDate(0, 0, -45)},
		{ID: "af2", QRID: "UDS-S-002", Description: "Science Fair Materials", Amount: decimal.NewFromInt(250), DateIssued: now.AddDate(0, 0, -30)},
	}
	for _, af := range additional {
		if _, err := repo.SaveAdditionalFee(ctx, af); err != nil {
			return errors.Wrapf(err, "seeding additional fee %s", af.ID)
		}
	}

	waiver := fee.FeeWaiver{ID: "fw_1", QRID: "UDS-S-002", Amount: decimal.NewFromInt(500), Reason: "Principal Discretion", Date: now}
	if _, err := repo.SaveWaiver(ctx, waiver); err != nil {
		return errors.Wrap(err, "seeding waiver")
	}
	return nil
}
