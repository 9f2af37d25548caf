package fee

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/feeportal/core"
)

// NewPayment contains what is needed to record a fee payment.
// ID is optional; clients retrying a request should send the same one.
type NewPayment struct {
	ID            string          `json:"id" validate:"omitempty,max=64"`
	QRID          string          `json:"qr_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Method        PaymentMethod   `json:"method" validate:"required,paymentmethod"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"date"`
	MonthsCovered []MonthRef      `json:"months_covered" validate:"dive"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.ID = core.CleanString(np.ID)
	np.QRID = core.CleanString(np.QRID)
	np.Description = core.CleanString(np.Description)
	return validate.Struct(np)
}

type NewAdditionalFee struct {
	ID          string          `json:"id" validate:"omitempty,max=64"`
	QRID        string          `json:"qr_id" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	DateIssued  time.Time       `json:"date_issued"`
}

func (na *NewAdditionalFee) Validate(validate *validator.Validate) error {
	na.ID = core.CleanString(na.ID)
	na.QRID = core.CleanString(na.QRID)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

type NewWaiver struct {
	ID     string          `json:"id" validate:"omitempty,max=64"`
	QRID   string          `json:"qr_id" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Reason string          `json:"reason" validate:"required"`
	Date   time.Time       `json:"date"`
}

func (nw *NewWaiver) Validate(validate *validator.Validate) error {
	nw.ID = core.CleanString(nw.ID)
	nw.QRID = core.CleanString(nw.QRID)
	nw.Reason = core.CleanString(nw.Reason)
	return validate.Struct(nw)
}

type AssignDiscounts struct {
	DiscountCategoryIDs []string `json:"discount_category_ids" validate:"dive,required"`
}

func (ad *AssignDiscounts) Validate(validate *validator.Validate) error {
	for i, id := range ad.DiscountCategoryIDs {
		ad.DiscountCategoryIDs[i] = core.CleanString(id)
	}
	return validate.Struct(ad)
}

type AssignTransport struct {
	TransportRouteID string `json:"transport_route_id"` // empty removes the route
}

func (h *FeeHead) Validate(validate *validator.Validate) error {
	h.ID = core.CleanString(h.ID, true /* lower */)
	h.Name = core.CleanString(h.Name)
	return validate.Struct(h)
}

func (s *ClassFeeStructure) Validate(validate *validator.Validate) error {
	s.Class = core.CleanString(s.Class)
	return validate.Struct(s)
}

func (d *DiscountCategory) Validate(validate *validator.Validate) error {
	d.ID = core.CleanString(d.ID, true /* lower */)
	d.Name = core.CleanString(d.Name)
	d.FeeHeadID = core.CleanString(d.FeeHeadID, true /* lower */)
	return validate.Struct(d)
}

func (r *TransportRoute) Validate(validate *validator.Validate) error {
	r.ID = core.CleanString(r.ID, true /* lower */)
	r.Name = core.CleanString(r.Name)
	return validate.Struct(r)
}

func (r *LateFeeRule) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
