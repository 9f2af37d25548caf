package fee

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type FeeType string

const (
	MonthlyRecurring FeeType = "Monthly Recurring"
	AnnualOneTime    FeeType = "Annual One-Time"
)

type DiscountType string

const (
	MonthlyTotal DiscountType = "Monthly Total"
	HeadWise     DiscountType = "Head-wise"
)

type Calculation string

const (
	Percentage Calculation = "Percentage"
	Fixed      Calculation = "Fixed"
)

type LateFeeType string

const (
	LateFeeFixed LateFeeType = "Fixed"
	LateFeeDaily LateFeeType = "Daily"
)

type PaymentMethod string

const (
	Cash   PaymentMethod = "Cash"
	Online PaymentMethod = "Online"
	Cheque PaymentMethod = "Cheque"
)

// TypeFeePayment is the only transaction type the engine counts as a payment.
const TypeFeePayment = "Fee Payment"

type MonthStatus string

const (
	StatusUpcoming      MonthStatus = "Upcoming"
	StatusDue           MonthStatus = "Due"
	StatusPartiallyPaid MonthStatus = "Partially Paid"
	StatusPaid          MonthStatus = "Paid"
)

// MonthRef is a calendar month; Month is 0-indexed (January = 0, April = 3).
type MonthRef struct {
	Year  int `json:"year"`
	Month int `json:"month" validate:"gte=0,lte=11"`
}

// Start returns the first instant of the month in loc.
func (m MonthRef) Start(loc *time.Location) time.Time {
	return time.Date(m.Year, time.Month(m.Month+1), 1, 0, 0, 0, 0, loc)
}

func (m MonthRef) Name() string {
	return time.Month(m.Month + 1).String()
}

func (m MonthRef) String() string {
	return fmt.Sprintf("%s %d", m.Name(), m.Year)
}

// Before reports whether m is an earlier month than o.
func (m MonthRef) Before(o MonthRef) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func MonthOf(t time.Time) MonthRef {
	return MonthRef{Year: t.Year(), Month: int(t.Month()) - 1}
}

type FeeHead struct {
	ID       string  `json:"id" validate:"required,slug"`
	Name     string  `json:"name" validate:"required"`
	Type     FeeType `json:"type" validate:"required,feetype"`
	DueMonth int     `json:"due_month,omitempty" validate:"omitempty,gte=1,lte=12"` // annual heads only
}

func (h FeeHead) IsRecurring() bool { return h.Type == MonthlyRecurring }

// ClassFeeStructure holds the gross amount per fee head: per month for recurring heads,
// per occurrence for annual ones.
type ClassFeeStructure struct {
	Class string                     `json:"class" validate:"required"`
	Fees  map[string]decimal.Decimal `json:"fees" validate:"required,dive,keys,required,endkeys,gte=0"`
}

// Amount returns the gross amount of the given head, zero when the class does not charge it.
func (s ClassFeeStructure) Amount(headID string) decimal.Decimal {
	if amt, ok := s.Fees[headID]; ok {
		return amt
	}
	return decimal.Zero
}

type DiscountCategory struct {
	ID          string          `json:"id" validate:"required,slug"`
	Name        string          `json:"name" validate:"required"`
	Type        DiscountType    `json:"type" validate:"required,discounttype"`
	Calculation Calculation     `json:"calculation" validate:"required,calculation"`
	Value       decimal.Decimal `json:"value" validate:"gt=0"`
	FeeHeadID   string          `json:"fee_head_id,omitempty"`
}

// Amount returns the deduction of the discount applied to base.
func (d DiscountCategory) Amount(base decimal.Decimal) decimal.Decimal {
	if d.Calculation == Percentage {
		return base.Mul(d.Value).Div(hundred)
	}
	return d.Value
}

type TransportRoute struct {
	ID         string          `json:"id" validate:"required,slug"`
	Name       string          `json:"name" validate:"required"`
	MonthlyFee decimal.Decimal `json:"monthly_fee" validate:"gte=0"`
}

type LateFeeRule struct {
	DueDay int             `json:"due_day" validate:"gte=1,lte=31"`
	Type   LateFeeType     `json:"type" validate:"required,latefeetype"`
	Value  decimal.Decimal `json:"value" validate:"gte=0"`
}

type Student struct {
	QRID                string   `json:"qr_id"`
	Name                string   `json:"name"`
	Class               string   `json:"class"`
	Email               string   `json:"email,omitempty"`
	DiscountCategoryIDs []string `json:"discount_category_ids"`
	TransportRouteID    string   `json:"transport_route_id,omitempty"`
}

func (s Student) HasDiscount(id string) bool {
	for _, dID := range s.DiscountCategoryIDs {
		if dID == id {
			return true
		}
	}
	return false
}

// Transaction is an immutable payment record.
type Transaction struct {
	ID            string          `json:"id"`
	QRID          string          `json:"qr_id"`
	Type          string          `json:"type"`
	Method        PaymentMethod   `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	Date          time.Time       `json:"date"`
	MonthsCovered []MonthRef      `json:"months_covered,omitempty"`
}

func (t Transaction) IsFeePayment() bool { return t.Type == TypeFeePayment }

// AdditionalFee is a one-off charge outside the monthly ledger, due immediately.
type AdditionalFee struct {
	ID          string          `json:"id"`
	QRID        string          `json:"student_qr_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DateIssued  time.Time       `json:"date_issued"`
}

// FeeWaiver is a flat deduction from a student's total dues.
type FeeWaiver struct {
	ID     string          `json:"id"`
	QRID   string          `json:"student_qr_id"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
	Date   time.Time       `json:"date"`
}

// LedgerEntry is one derived month of a student's dues schedule. It is never persisted.
type LedgerEntry struct {
	MonthRef
	MonthName string          `json:"month_name"`
	DueDate   time.Time       `json:"due_date"`
	DueAmount decimal.Decimal `json:"due_amount"`
	LateFee   decimal.Decimal `json:"late_fee"`
	Fee       decimal.Decimal `json:"fee"` // DueAmount + LateFee
	Paid      decimal.Decimal `json:"paid"`
	Balance   decimal.Decimal `json:"balance"`
	Status    MonthStatus     `json:"status"`

	start time.Time
}

// Financials is the outcome of ComputeStudentFinancials for one student at one instant.
type Financials struct {
	QRID                string             `json:"qr_id"`
	AsOf                time.Time          `json:"as_of"`
	Months              []LedgerEntry      `json:"monthly_breakdown"`
	NetMonthlyFee       decimal.Decimal    `json:"net_monthly_fee"`
	Discounts           *DiscountBreakdown `json:"discounts,omitempty"`
	TotalDuesToDate     decimal.Decimal    `json:"total_dues_to_date"`
	TotalAdditionalFees decimal.Decimal    `json:"total_additional_fees"`
	TotalWaived         decimal.Decimal    `json:"total_waived"`
	TotalPaid           decimal.Decimal    `json:"total_paid"`
	Unapplied           decimal.Decimal    `json:"unapplied"`
	Outstanding         decimal.Decimal    `json:"outstanding_balance"`
	NoFeeStructure      bool               `json:"no_fee_structure,omitempty"`
}

// FirstUnpaid returns the earliest Due or Partially Paid month.
func (f Financials) FirstUnpaid() (LedgerEntry, bool) {
	for _, m := range f.Months {
		if m.Status == StatusDue || m.Status == StatusPartiallyPaid {
			return m, true
		}
	}
	return LedgerEntry{}, false
}

// HasDues reports whether the outstanding balance is above the paid tolerance.
func (f Financials) HasDues() bool {
	return f.Outstanding.GreaterThan(epsilon)
}
