package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feeportal/core/fee"
	"github.com/trezcool/feeportal/storage/database"
	"github.com/trezcool/feeportal/storage/database/sqlx"
	"github.com/trezcool/feeportal/tests"
)

func TestFeeRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.RepositoryContract(t, sqlxrepos.NewFeeRepository(db))
}

func TestFeeRepository_foreignKeys(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := sqlxrepos.NewFeeRepository(db)
	require.NoError(t, database.Seed(ctx, repo, testutil.Now))

	assert.Equal(t, fee.ErrRouteInUse, errors.Cause(repo.DeleteTransportRoute(ctx, "route_1")))
	assert.Equal(t, fee.ErrFeeHeadInUse, errors.Cause(repo.DeleteFeeHead(ctx, "tuition_fee")))

	_, err := repo.SaveTransaction(ctx, fee.Transaction{
		ID: "orphan", QRID: "UDS-S-404", Type: fee.TypeFeePayment, Method: fee.Cash,
		Amount: decimal.NewFromInt(10), Date: testutil.Now,
	})
	assert.Equal(t, fee.ErrStudentNotFound, errors.Cause(err))
}

func TestFeeRepository_financials(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := sqlxrepos.NewFeeRepository(db)
	deps := testutil.NewDeps(t, repo)
	require.NoError(t, database.Seed(context.Background(), repo, testutil.Now))

	fin, err := deps.Service.Financials(context.Background(), "UDS-S-002", testutil.Now)
	require.NoError(t, err)
	// April 7835 + May 5335 + May late fee 100, less 12000 paid and 500 waived, plus 250 charged
	assert.Equal(t, "1020.00", fin.Outstanding.StringFixed(2))
}
