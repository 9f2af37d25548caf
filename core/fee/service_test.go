package fee_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/fee"
	"github.com/trezcool/feeportal/tests"
)

var ctx = context.Background()

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %v", err)
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestService_Financials(t *testing.T) {
	deps := testutil.NewInmemDeps(t)

	fin, err := deps.Service.Financials(ctx, "UDS-S-002", testutil.Now)
	require.NoError(t, err)
	assert.Equal(t, "1020.00", fin.Outstanding.StringFixed(2))
	assert.Equal(t, fee.StatusPaid, fin.Months[0].Status)
	assert.Equal(t, fee.StatusPartiallyPaid, fin.Months[1].Status)

	// served from cache, still a private copy
	fin.Months[0].Status = fee.StatusDue
	again, err := deps.Service.Financials(ctx, " UDS-S-002 ", testutil.Now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPaid, again.Months[0].Status)
	assert.True(t, again.AsOf.Equal(testutil.Now.Add(time.Hour)))

	_, err = deps.Service.Financials(ctx, "UDS-S-404", testutil.Now)
	assert.Equal(t, fee.ErrStudentNotFound, errors.Cause(err))
}

func TestService_Financials_dueDay(t *testing.T) {
	deps := testutil.NewInmemDeps(t)
	midnight := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)

	fin, err := deps.Service.Financials(ctx, "UDS-S-003", midnight)
	require.NoError(t, err)
	assert.True(t, fin.Months[1].LateFee.IsZero())

	// same calendar day, past the due date: not served the midnight ledger
	fin, err = deps.Service.Financials(ctx, "UDS-S-003", midnight.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "100.00", fin.Months[1].LateFee.StringFixed(2))
}

func TestService_RecordPayment(t *testing.T) {
	may := fee.MonthRef{Year: 2024, Month: 4}

	tests := []struct {
		name    string
		np      fee.NewPayment
		wantErr error
		wantFld string
	}{
		{
			name:    "unknown student",
			np:      fee.NewPayment{QRID: "UDS-S-404", Amount: decimal.NewFromInt(10), Method: fee.Cash},
			wantErr: fee.ErrStudentNotFound,
		},
		{
			name:    "month of another session",
			np:      fee.NewPayment{QRID: "UDS-S-002", Amount: decimal.NewFromInt(10), Method: fee.Cash, MonthsCovered: []fee.MonthRef{{Year: 2023, Month: 4}}},
			wantFld: "months_covered",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testutil.NewInmemDeps(t)
			_, err := deps.Service.RecordPayment(ctx, tt.np)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			}
			if tt.wantFld != "" {
				assert.Contains(t, fieldErrors(t, err), tt.wantFld)
			}
		})
	}

	t.Run("settles dues and invalidates the cache", func(t *testing.T) {
		deps := testutil.NewInmemDeps(t)
		_, err := deps.Service.Financials(ctx, "UDS-S-002", testutil.Now)
		require.NoError(t, err)

		np := fee.NewPayment{QRID: "UDS-S-002", Amount: decimal.NewFromInt(1270), Method: fee.Online, MonthsCovered: []fee.MonthRef{may, may}}
		tx, err := deps.Service.RecordPayment(ctx, np)
		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID)
		assert.Equal(t, fee.TypeFeePayment, tx.Type)
		assert.Equal(t, []fee.MonthRef{may}, tx.MonthsCovered)
		assert.True(t, tx.Date.Equal(testutil.Now))

		// May is settled before its late fee applies, leaving 100 unapplied
		fin, err := deps.Service.Financials(ctx, "UDS-S-002", testutil.Now)
		require.NoError(t, err)
		assert.True(t, fin.Outstanding.IsZero(), fin.Outstanding.String())
		assert.Equal(t, fee.StatusPaid, fin.Months[1].Status)
		assert.Equal(t, "100.00", fin.Unapplied.StringFixed(2))
	})

	t.Run("retries are idempotent", func(t *testing.T) {
		deps := testutil.NewInmemDeps(t)
		np := fee.NewPayment{ID: "receipt-42", QRID: "UDS-S-003", Amount: decimal.NewFromInt(1000), Method: fee.Cash}
		for i := 0; i < 3; i++ {
			_, err := deps.Service.RecordPayment(ctx, np)
			require.NoError(t, err)
		}
		txs, err := deps.Repo.QueryTransactions(ctx, fee.TransactionFilter{QRID: "UDS-S-003"})
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})
}

func TestService_IssueAdditionalFeeAndGrantWaiver(t *testing.T) {
	deps := testutil.NewInmemDeps(t)

	_, err := deps.Service.IssueAdditionalFee(ctx, fee.NewAdditionalFee{QRID: "UDS-S-003", Description: "Lab coat", Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	fin, err := deps.Service.Financials(ctx, "UDS-S-003", testutil.Now)
	require.NoError(t, err)
	before := fin.Outstanding
	assert.Equal(t, "300.00", fin.TotalAdditionalFees.StringFixed(2))

	w, err := deps.Service.GrantWaiver(ctx, fee.NewWaiver{QRID: "UDS-S-003", Amount: decimal.NewFromInt(1000), Reason: "Merit"})
	require.NoError(t, err)
	assert.Equal(t, "Merit", w.Reason)

	fin, err = deps.Service.Financials(ctx, "UDS-S-003", testutil.Now)
	require.NoError(t, err)
	assert.Equal(t, before.Sub(decimal.NewFromInt(1000)).StringFixed(2), fin.Outstanding.StringFixed(2))
}

func TestService_Assignments(t *testing.T) {
	deps := testutil.NewInmemDeps(t)

	_, err := deps.Service.AssignDiscounts(ctx, "UDS-S-003", []string{"staff_ward", "nope"})
	assert.Contains(t, fieldErrors(t, err), "discount_category_ids")

	st, err := deps.Service.AssignDiscounts(ctx, "UDS-S-003", []string{"staff_ward", "staff_ward"})
	require.NoError(t, err)
	assert.Equal(t, []string{"staff_ward"}, st.DiscountCategoryIDs)

	fin, err := deps.Service.Financials(ctx, "UDS-S-003", testutil.Now)
	require.NoError(t, err)
	assert.Equal(t, "2457.50", fin.NetMonthlyFee.StringFixed(2))

	_, err = deps.Service.AssignTransport(ctx, "UDS-S-003", "route_9")
	assert.Contains(t, fieldErrors(t, err), "transport_route_id")

	st, err = deps.Service.AssignTransport(ctx, "UDS-S-003", "ROUTE_2")
	require.NoError(t, err)
	assert.Equal(t, "route_2", st.TransportRouteID)

	fin, err = deps.Service.Financials(ctx, "UDS-S-003", testutil.Now)
	require.NoError(t, err)
	assert.Equal(t, "3657.50", fin.NetMonthlyFee.StringFixed(2))
}

func TestService_FeeConfiguration(t *testing.T) {
	deps := testutil.NewInmemDeps(t)
	svc := deps.Service

	t.Run("annual heads need a due month", func(t *testing.T) {
		_, err := svc.SaveFeeHead(ctx, fee.FeeHead{ID: "exam_fee", Name: "Exam Fee", Type: fee.AnnualOneTime})
		assert.Contains(t, fieldErrors(t, err), "due_month")

		head, err := svc.SaveFeeHead(ctx, fee.FeeHead{ID: "computer_fee", Name: "Computer Fee", Type: fee.MonthlyRecurring, DueMonth: 7})
		require.NoError(t, err)
		assert.Zero(t, head.DueMonth)
	})

	t.Run("fee structures", func(t *testing.T) {
		_, err := svc.SaveFeeStructure(ctx, fee.ClassFeeStructure{Class: "8", Fees: map[string]decimal.Decimal{
			"tuition_fee": decimal.NewFromInt(-1),
			"bus_fee":     decimal.NewFromInt(100),
		}})
		flds := fieldErrors(t, err)
		assert.Equal(t, "amount cannot be negative", flds["fees.tuition_fee"])
		assert.Equal(t, "unknown fee head", flds["fees.bus_fee"])

		_, err = svc.SaveFeeStructure(ctx, fee.ClassFeeStructure{Class: "8", Fees: map[string]decimal.Decimal{
			"tuition_fee": decimal.NewFromInt(4000),
		}})
		require.NoError(t, err)
	})

	t.Run("discounts", func(t *testing.T) {
		_, err := svc.SaveDiscount(ctx, fee.DiscountCategory{ID: "all", Name: "All", Type: fee.MonthlyTotal, Calculation: fee.Percentage, Value: decimal.NewFromInt(120)})
		assert.Contains(t, fieldErrors(t, err), "value")

		_, err = svc.SaveDiscount(ctx, fee.DiscountCategory{ID: "bus", Name: "Bus", Type: fee.HeadWise, Calculation: fee.Fixed, Value: decimal.NewFromInt(120), FeeHeadID: "bus_fee"})
		assert.Contains(t, fieldErrors(t, err), "fee_head_id")

		d, err := svc.SaveDiscount(ctx, fee.DiscountCategory{ID: "flat", Name: "Flat 200", Type: fee.MonthlyTotal, Calculation: fee.Fixed, Value: decimal.NewFromInt(200), FeeHeadID: "tuition_fee"})
		require.NoError(t, err)
		assert.Empty(t, d.FeeHeadID)
	})

	t.Run("referential guards", func(t *testing.T) {
		assert.Equal(t, fee.ErrFeeHeadInUse, errors.Cause(svc.DeleteFeeHead(ctx, "tuition_fee")))
		assert.Equal(t, fee.ErrDiscountInUse, errors.Cause(svc.DeleteDiscount(ctx, "sibling_discount")))
		assert.Equal(t, fee.ErrRouteInUse, errors.Cause(svc.DeleteTransportRoute(ctx, "route_1")))

		require.NoError(t, svc.DeleteTransportRoute(ctx, "route_2"))
		require.NoError(t, svc.DeleteDiscount(ctx, "scholarship_25"))
		require.NoError(t, svc.DeleteFeeHead(ctx, "computer_fee"))
		assert.Equal(t, fee.ErrNotFound, errors.Cause(svc.DeleteFeeHead(ctx, "computer_fee")))
	})

	t.Run("late fee rule", func(t *testing.T) {
		before, err := svc.Financials(ctx, "UDS-S-002", testutil.Now)
		require.NoError(t, err)

		_, err = svc.SetLateFeeRule(ctx, fee.LateFeeRule{DueDay: 15, Type: fee.LateFeeDaily, Value: decimal.NewFromInt(10)})
		require.NoError(t, err)

		after, err := svc.Financials(ctx, "UDS-S-002", testutil.Now)
		require.NoError(t, err)
		// May: 5 days late at 10 a day instead of a fixed 100
		assert.Equal(t, before.Outstanding.Sub(decimal.NewFromInt(50)).StringFixed(2), after.Outstanding.StringFixed(2))
	})
}

func TestService_Reports(t *testing.T) {
	deps := testutil.NewInmemDeps(t)
	svc := deps.Service

	_, err := svc.Defaulters(ctx, testutil.Now, "", "100+ Days")
	assert.Contains(t, fieldErrors(t, err), "bucket")

	defaulters, err := svc.Defaulters(ctx, testutil.Now, "10", "")
	require.NoError(t, err)
	require.Len(t, defaulters, 2)
	assert.Equal(t, "UDS-S-001", defaulters[0].Student.QRID)

	dues, err := svc.DuesList(ctx, testutil.Now, "")
	require.NoError(t, err)
	assert.Len(t, dues, 3)

	_, err = svc.HeadwiseCollection(ctx, testutil.Now, testutil.Now.AddDate(0, 0, -1))
	assert.Contains(t, fieldErrors(t, err), "to")

	book, err := svc.DayBook(ctx, time.Date(2024, time.May, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "12000.00", book.Total.StringFixed(2))

	strength, err := svc.ClassStrength(ctx)
	require.NoError(t, err)
	assert.Equal(t, []fee.ClassStrengthRow{{Class: "10", Students: 2}, {Class: "9", Students: 1}}, strength)

	totals, err := svc.SessionTotals(ctx, testutil.Now)
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Students)
	sum := decimal.Zero
	for _, d := range dues {
		sum = sum.Add(d.Dues)
	}
	assert.Equal(t, sum.StringFixed(2), totals.Outstanding.StringFixed(2))
}

func TestService_SendDuesReminders(t *testing.T) {
	deps := testutil.NewInmemDeps(t)

	n, err := deps.Service.SendDuesReminders(ctx, testutil.Now, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n) // UDS-S-003 has no email address

	sent := deps.Mail.Sent()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		assert.True(t, strings.HasPrefix(msg.Subject, "Fee dues reminder for "))
		assert.Contains(t, msg.TextContent, "class 10")
		assert.Contains(t, msg.HTMLContent, "days overdue")
	}
	assert.Contains(t, sent[0].TextContent, "UDS-S-001")
	assert.Contains(t, sent[0].TextContent, "April 2024")
}
