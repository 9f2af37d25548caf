package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feeportal/core/fee"
	"github.com/trezcool/feeportal/storage/database"
)

// RepositoryContract runs the behaviour every fee.Repository must share against an empty repo.
func RepositoryContract(t *testing.T, repo fee.Repository) {
	ctx := context.Background()

	_, err := repo.GetStudent(ctx, "UDS-S-001")
	require.Equal(t, fee.ErrStudentNotFound, errors.Cause(err))

	rule, err := repo.GetLateFeeRule(ctx)
	require.NoError(t, err)
	require.Nil(t, rule)

	require.NoError(t, database.Seed(ctx, repo, Now))
	// seeding twice is harmless
	require.NoError(t, database.Seed(ctx, repo, Now))

	t.Run("students", func(t *testing.T) {
		tests := []struct {
			name   string
			filter fee.StudentFilter
			want   []string
		}{
			{name: "all", want: []string{"UDS-S-001", "UDS-S-002", "UDS-S-003"}},
			{name: "by class", filter: fee.StudentFilter{Class: "10"}, want: []string{"UDS-S-001", "UDS-S-002"}},
			{name: "by ids", filter: fee.StudentFilter{QRIDs: []string{"UDS-S-003", "UDS-S-404"}}, want: []string{"UDS-S-003"}},
			{name: "search name", filter: fee.StudentFilter{Search: "priya"}, want: []string{"UDS-S-002"}},
			{name: "search id", filter: fee.StudentFilter{Search: "s-00"}, want: []string{"UDS-S-001", "UDS-S-002", "UDS-S-003"}},
			{name: "no match", filter: fee.StudentFilter{Class: "12"}, want: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				students, err := repo.QueryStudents(ctx, tt.filter)
				require.NoError(t, err)
				got := make([]string, 0, len(students))
				for _, st := range students {
					got = append(got, st.QRID)
				}
				assert.Equal(t, tt.want, got)
			})
		}

		st, err := repo.GetStudent(ctx, "UDS-S-001")
		require.NoError(t, err)
		assert.Equal(t, []string{"sibling_discount"}, st.DiscountCategoryIDs)
		assert.Equal(t, "route_1", st.TransportRouteID)

		st.DiscountCategoryIDs = []string{"staff_ward", "scholarship_25"}
		st.TransportRouteID = ""
		_, err = repo.SaveStudent(ctx, st)
		require.NoError(t, err)
		st, err = repo.GetStudent(ctx, "UDS-S-001")
		require.NoError(t, err)
		assert.Equal(t, []string{"staff_ward", "scholarship_25"}, st.DiscountCategoryIDs)
		assert.Empty(t, st.TransportRouteID)
	})

	t.Run("fee configuration", func(t *testing.T) {
		heads, err := repo.QueryFeeHeads(ctx)
		require.NoError(t, err)
		require.Len(t, heads, 4)
		assert.Equal(t, "tuition_fee", heads[0].ID)
		assert.Equal(t, fee.AnnualOneTime, heads[3].Type)
		assert.Equal(t, 4, heads[3].DueMonth)

		structures, err := repo.QueryFeeStructures(ctx)
		require.NoError(t, err)
		require.Len(t, structures, 2)
		assert.Equal(t, "10", structures[0].Class)
		assert.Equal(t, "5000.00", structures[0].Amount("tuition_fee").StringFixed(2))

		s := fee.ClassFeeStructure{Class: "9", Fees: map[string]decimal.Decimal{"tuition_fee": decimal.NewFromInt(4700)}}
		_, err = repo.SaveFeeStructure(ctx, s)
		require.NoError(t, err)
		structures, err = repo.QueryFeeStructures(ctx)
		require.NoError(t, err)
		assert.Len(t, structures[1].Fees, 1)
		assert.Equal(t, "4700.00", structures[1].Amount("tuition_fee").StringFixed(2))

		_, err = repo.SaveLateFeeRule(ctx, fee.LateFeeRule{DueDay: 10, Type: fee.LateFeeDaily, Value: decimal.NewFromInt(5)})
		require.NoError(t, err)
		rule, err := repo.GetLateFeeRule(ctx)
		require.NoError(t, err)
		require.NotNil(t, rule)
		assert.Equal(t, 10, rule.DueDay)
		assert.Equal(t, fee.LateFeeDaily, rule.Type)

		assert.Equal(t, fee.ErrNotFound, errors.Cause(repo.DeleteTransportRoute(ctx, "route_404")))
		_, err = repo.SaveTransportRoute(ctx, fee.TransportRoute{ID: "route_3", Name: "Hills", MonthlyFee: decimal.NewFromInt(950)})
		require.NoError(t, err)
		require.NoError(t, repo.DeleteTransportRoute(ctx, "route_3"))
		routes, err := repo.QueryTransportRoutes(ctx)
		require.NoError(t, err)
		assert.Len(t, routes, 2)
	})

	t.Run("transactions are stored once", func(t *testing.T) {
		covered := []fee.MonthRef{{Year: 2024, Month: 4}}
		first := fee.Transaction{
			ID: "pay-1", QRID: "UDS-S-003", Type: fee.TypeFeePayment, Method: fee.Cheque,
			Amount: decimal.NewFromInt(4915), Date: Now, MonthsCovered: covered,
		}
		saved, err := repo.SaveTransaction(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, covered, saved.MonthsCovered)

		retry := first
		retry.Amount = decimal.NewFromInt(999)
		saved, err = repo.SaveTransaction(ctx, retry)
		require.NoError(t, err)
		assert.Equal(t, "4915.00", saved.Amount.StringFixed(2))

		txs, err := repo.QueryTransactions(ctx, fee.TransactionFilter{QRID: "UDS-S-003"})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.True(t, txs[0].Date.Equal(Now))

		txs, err = repo.QueryTransactions(ctx, fee.TransactionFilter{From: Now.Add(-time.Hour), To: Now.Add(time.Hour)})
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})

	t.Run("snapshot", func(t *testing.T) {
		data, err := repo.Snapshot(ctx)
		require.NoError(t, err)
		assert.Len(t, data.FeeHeads, 4)
		assert.Len(t, data.FeeStructures, 2)
		assert.Len(t, data.Discounts, 3)
		assert.Len(t, data.TransportRoutes, 2)
		assert.NotNil(t, data.LateFeeRule)
		assert.Len(t, data.Transactions, 3)
		assert.Len(t, data.AdditionalFees, 2)
		assert.Len(t, data.Waivers, 1)
	})
}
