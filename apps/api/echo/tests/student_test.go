package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/feeportal/apps/api/echo"
	"github.com/trezcool/feeportal/core/fee"
	"github.com/trezcool/feeportal/tests"
)

func Test_studentApi_financials(t *testing.T) {
	app, deps := setup(t)

	admin := getToken(t, deps, "bursar", RoleAdmin)
	ravi := getToken(t, deps, "UDS-S-001", RoleStudent)
	priya := getToken(t, deps, "UDS-S-002", RoleStudent)

	current, err := deps.Service.Financials(bg, "UDS-S-002", testutil.Now)
	require.NoError(t, err)
	april20 := time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC)
	past, err := deps.Service.Financials(bg, "UDS-S-002", april20)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/students/UDS-S-002/financials", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "other student", path: "/v1/students/UDS-S-002/financials", token: ravi,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "student themself", path: "/v1/students/UDS-S-002/financials", token: priya, wantCode: http.StatusOK, wantData: marchallObj(t, current)},
		{name: "admin", path: "/v1/students/UDS-S-002/financials", token: admin, wantCode: http.StatusOK, wantData: marchallObj(t, current)},
		{name: "as_of", path: "/v1/students/UDS-S-002/financials?as_of=2024-04-20", token: admin, wantCode: http.StatusOK, wantData: marchallObj(t, past)},
		{
			name: "invalid as_of", path: "/v1/students/UDS-S-002/financials?as_of=20-04-2024", token: admin,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"as_of": "must be a date formatted as YYYY-MM-DD"}),
		},
		{
			name: "unknown student", path: "/v1/students/UDS-S-404/financials", token: admin,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: fee.ErrStudentNotFound.Error()}),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_studentApi_query(t *testing.T) {
	app, deps := setup(t)
	admin := getToken(t, deps, "bursar", RoleAdmin)

	ravi, err := deps.Service.Student(bg, "UDS-S-001")
	require.NoError(t, err)
	priya, err := deps.Service.Student(bg, "UDS-S-002")
	require.NoError(t, err)
	amit, err := deps.Service.Student(bg, "UDS-S-003")
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Admin required", path: "/v1/students", token: getToken(t, deps, "UDS-S-001", RoleStudent), wantCode: http.StatusForbidden},
		{name: "all", path: "/v1/students", token: admin, wantCode: http.StatusOK, wantData: marchallObj(t, []fee.Student{ravi, priya, amit})},
		{name: "class", path: "/v1/students?class=10", token: admin, wantCode: http.StatusOK, wantData: marchallObj(t, []fee.Student{ravi, priya})},
		{name: "search", path: "/v1/students?search=SHARMA", token: admin, wantCode: http.StatusOK, wantData: marchallObj(t, []fee.Student{priya})},
		{
			name: "qr ids", path: "/v1/students?qr_id=UDS-S-001&qr_id=UDS-S-003", token: admin,
			wantCode: http.StatusOK, wantData: marchallObj(t, []fee.Student{ravi, amit}),
		},
		{name: "retrieve", path: "/v1/students/UDS-S-003", token: admin, wantCode: http.StatusOK, wantData: marchallObj(t, amit)},
	}
	runHTTPTests(t, app, tests)
}

func Test_studentApi_recordPayment(t *testing.T) {
	app, deps := setup(t)
	admin := getToken(t, deps, "bursar", RoleAdmin)
	path := "/v1/students/UDS-S-002/payments"

	t.Run("students cannot record payments", func(t *testing.T) {
		body := []byte(`{"amount": 1270, "method": "Online"}`)
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, deps, "UDS-S-002", RoleStudent), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		body := []byte(`{"amount": 0, "method": "Card"}`)
		req, rec := newAuthRequest(http.MethodPost, path, admin, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"amount": "must be greater than 0",
				"method": "must be one of 'Cash', 'Online' or 'Cheque'",
			}),
		}, rec)
	})

	t.Run("month outside the session", func(t *testing.T) {
		body := []byte(`{"amount": 100, "method": "Cash", "months_covered": [{"year": 2023, "month": 3}]}`)
		req, rec := newAuthRequest(http.MethodPost, path, admin, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"months_covered": "April 2023 is not part of the current session"}),
		}, rec)
	})

	t.Run("settles dues", func(t *testing.T) {
		body := []byte(`{"id": "receipt-1", "amount": 1270, "method": "Online", "months_covered": [{"year": 2024, "month": 4}]}`)
		for i := 0; i < 2; i++ { // retries are idempotent
			req, rec := newAuthRequest(http.MethodPost, path, admin, body)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			var txn fee.Transaction
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))
			assert.Equal(t, "receipt-1", txn.ID)
			assert.Equal(t, fee.TypeFeePayment, txn.Type)
			assert.True(t, txn.Amount.Equal(decimal.NewFromInt(1270)))
		}

		txns, err := deps.Repo.QueryTransactions(bg, fee.TransactionFilter{QRID: "UDS-S-002"})
		require.NoError(t, err)
		assert.Len(t, txns, 2)

		req, rec := newAuthRequest(http.MethodGet, "/v1/students/UDS-S-002/financials", admin)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var fin fee.Financials
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fin))
		assert.True(t, fin.Outstanding.IsZero(), "outstanding = %s", fin.Outstanding)
		assert.True(t, fin.Unapplied.Equal(decimal.NewFromInt(100)), "unapplied = %s", fin.Unapplied)
	})

	t.Run("unknown student", func(t *testing.T) {
		body := []byte(`{"amount": 100, "method": "Cash"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/students/UDS-S-404/payments", admin, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_studentApi_additionalFeesAndWaivers(t *testing.T) {
	app, deps := setup(t)
	admin := getToken(t, deps, "bursar", RoleAdmin)

	before, err := deps.Service.Financials(bg, "UDS-S-003", testutil.Now)
	require.NoError(t, err)

	tests := []httpTest{
		{
			name: "additional fee requires a description", method: http.MethodPost, path: "/v1/students/UDS-S-003/additional-fees",
			body: []byte(`{"amount": 300}`), token: admin,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"description": "this field is required"}),
		},
		{
			name: "additional fee", method: http.MethodPost, path: "/v1/students/UDS-S-003/additional-fees",
			body: []byte(`{"id": "af-trip", "description": "Field trip", "amount": 300}`), token: admin, wantCode: http.StatusCreated,
		},
		{
			name: "waiver requires a reason", method: http.MethodPost, path: "/v1/students/UDS-S-003/waivers",
			body: []byte(`{"amount": 100, "reason": "  "}`), token: admin,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"reason": "this field is required"}),
		},
		{
			name: "waiver", method: http.MethodPost, path: "/v1/students/UDS-S-003/waivers",
			body: []byte(`{"id": "w-hardship", "amount": 100, "reason": "Hardship"}`), token: admin, wantCode: http.StatusCreated,
		},
	}
	runHTTPTests(t, app, tests)

	after, err := deps.Service.Financials(bg, "UDS-S-003", testutil.Now)
	require.NoError(t, err)
	assert.True(t, after.TotalAdditionalFees.Sub(before.TotalAdditionalFees).Equal(decimal.NewFromInt(300)))
	assert.True(t, after.TotalWaived.Sub(before.TotalWaived).Equal(decimal.NewFromInt(100)))
}

func Test_studentApi_assignments(t *testing.T) {
	app, deps := setup(t)
	admin := getToken(t, deps, "bursar", RoleAdmin)

	tests := []httpTest{
		{
			name: "unknown discount", method: http.MethodPut, path: "/v1/students/UDS-S-003/discounts",
			body: []byte(`{"discount_category_ids": ["vip"]}`), token: admin,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"discount_category_ids": `unknown discount category "vip"`}),
		},
		{
			name: "discounts", method: http.MethodPut, path: "/v1/students/UDS-S-003/discounts",
			body: []byte(`{"discount_category_ids": ["staff_ward"]}`), token: admin, wantCode: http.StatusOK,
		},
		{
			name: "unknown route", method: http.MethodPut, path: "/v1/students/UDS-S-003/transport",
			body: []byte(`{"transport_route_id": "route_9"}`), token: admin,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"transport_route_id": `unknown transport route "route_9"`}),
		},
		{
			name: "transport", method: http.MethodPut, path: "/v1/students/UDS-S-003/transport",
			body: []byte(`{"transport_route_id": "route_2"}`), token: admin, wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, app, tests)

	st, err := deps.Service.Student(bg, "UDS-S-003")
	require.NoError(t, err)
	assert.Equal(t, []string{"staff_ward"}, st.DiscountCategoryIDs)
	assert.Equal(t, "route_2", st.TransportRouteID)
}
