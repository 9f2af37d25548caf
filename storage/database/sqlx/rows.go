package sqlxrepos

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/feeportal/core/fee"
)

// database rows, converted to and from fee models

type studentRow struct {
	QRID                string         `db:"qr_id"`
	Name                string         `db:"name"`
	Class               string         `db:"class"`
	Email               null.String    `db:"email"`
	DiscountCategoryIDs pq.StringArray `db:"discount_category_ids"`
	TransportRouteID    null.String    `db:"transport_route_id"`
}

func newStudentRow(st fee.Student) studentRow {
	ids := pq.StringArray(st.DiscountCategoryIDs)
	if ids == nil {
		ids = pq.StringArray{}
	}
	return studentRow{
		QRID:                st.QRID,
		Name:                st.Name,
		Class:               st.Class,
		Email:               null.NewString(st.Email, st.Email != ""),
		DiscountCategoryIDs: ids,
		TransportRouteID:    null.NewString(st.TransportRouteID, st.TransportRouteID != ""),
	}
}

func (r studentRow) student() fee.Student {
	ids := []string(r.DiscountCategoryIDs)
	if ids == nil {
		ids = []string{}
	}
	return fee.Student{
		QRID:                r.QRID,
		Name:                r.Name,
		Class:               r.Class,
		Email:               r.Email.String,
		DiscountCategoryIDs: ids,
		TransportRouteID:    r.TransportRouteID.String,
	}
}

type feeHeadRow struct {
	ID       string   `db:"id"`
	Name     string   `db:"name"`
	Type     string   `db:"fee_type"`
	DueMonth null.Int `db:"due_month"`
}

func newFeeHeadRow(h fee.FeeHead) feeHeadRow {
	return feeHeadRow{
		ID:       h.ID,
		Name:     h.Name,
		Type:     string(h.Type),
		DueMonth: null.NewInt(h.DueMonth, h.DueMonth != 0),
	}
}

func (r feeHeadRow) feeHead() fee.FeeHead {
	return fee.FeeHead{ID: r.ID, Name: r.Name, Type: fee.FeeType(r.Type), DueMonth: r.DueMonth.Int}
}

type structureRow struct {
	Class     string          `db:"class"`
	FeeHeadID string          `db:"fee_head_id"`
	Amount    decimal.Decimal `db:"amount"`
}

type discountRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Type        string          `db:"discount_type"`
	Calculation string          `db:"calculation"`
	Value       decimal.Decimal `db:"value"`
	FeeHeadID   null.String     `db:"fee_head_id"`
}

func newDiscountRow(d fee.DiscountCategory) discountRow {
	return discountRow{
		ID:          d.ID,
		Name:        d.Name,
		Type:        string(d.Type),
		Calculation: string(d.Calculation),
		Value:       d.Value,
		FeeHeadID:   null.NewString(d.FeeHeadID, d.FeeHeadID != ""),
	}
}

func (r discountRow) discount() fee.DiscountCategory {
	return fee.DiscountCategory{
		ID:          r.ID,
		Name:        r.Name,
		Type:        fee.DiscountType(r.Type),
		Calculation: fee.Calculation(r.Calculation),
		Value:       r.Value,
		FeeHeadID:   r.FeeHeadID.String,
	}
}

type routeRow struct {
	ID         string          `db:"id"`
	Name       string          `db:"name"`
	MonthlyFee decimal.Decimal `db:"monthly_fee"`
}

type lateFeeRuleRow struct {
	DueDay int             `db:"due_day"`
	Type   string          `db:"rule_type"`
	Value  decimal.Decimal `db:"value"`
}

type transactionRow struct {
	ID            string          `db:"id"`
	QRID          string          `db:"qr_id"`
	Type          string          `db:"type"`
	Method        string          `db:"payment_method"`
	Amount        decimal.Decimal `db:"amount"`
	Description   null.String     `db:"description"`
	Date          time.Time       `db:"date"`
	MonthsCovered types.JSONText  `db:"months_covered"`
}

func newTransactionRow(t fee.Transaction) (transactionRow, error) {
	months := t.MonthsCovered
	if months == nil {
		months = []fee.MonthRef{}
	}
	covered, err := json.Marshal(months)
	if err != nil {
		return transactionRow{}, errors.Wrap(err, "encoding months covered")
	}
	return transactionRow{
		ID:            t.ID,
		QRID:          t.QRID,
		Type:          t.Type,
		Method:        string(t.Method),
		Amount:        t.Amount,
		Description:   null.NewString(t.Description, t.Description != ""),
		Date:          t.Date.UTC(),
		MonthsCovered: types.JSONText(covered),
	}, nil
}

func (r transactionRow) transaction() (fee.Transaction, error) {
	var months []fee.MonthRef
	if err := r.MonthsCovered.Unmarshal(&months); err != nil {
		return fee.Transaction{}, errors.Wrapf(err, "decoding months covered of transaction %s", r.ID)
	}
	return fee.Transaction{
		ID:            r.ID,
		QRID:          r.QRID,
		Type:          r.Type,
		Method:        fee.PaymentMethod(r.Method),
		Amount:        r.Amount,
		Description:   r.Description.String,
		Date:          r.Date,
		MonthsCovered: months,
	}, nil
}
