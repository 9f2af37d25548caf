package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContextData is a raw snapshot of the collections the engine reads.
type ContextData struct {
	FeeHeads        []FeeHead
	FeeStructures   []ClassFeeStructure
	Discounts       []DiscountCategory
	TransportRoutes []TransportRoute
	LateFeeRule     *LateFeeRule
	Transactions    []Transaction
	AdditionalFees  []AdditionalFee
	Waivers         []FeeWaiver
}

// FinancialContext is the immutable input of ComputeStudentFinancials: the fee configuration plus
// every student's payments, charges and waivers indexed by QR id.
type FinancialContext struct {
	FeeHeads    []FeeHead
	Structures  map[string]ClassFeeStructure // by class
	Discounts   map[string]DiscountCategory
	Routes      map[string]TransportRoute
	LateFeeRule *LateFeeRule
	Payments    map[string][]Transaction
	Additional  map[string][]AdditionalFee
	Waivers     map[string][]FeeWaiver
	Allocator   Allocator
	Location    *time.Location
	Version     uint64

	transactions []Transaction // every transaction, any type, for the day book
}

type ContextOption func(*FinancialContext)

func WithAllocator(a Allocator) ContextOption {
	return func(fc *FinancialContext) { fc.Allocator = a }
}

func WithLocation(loc *time.Location) ContextOption {
	return func(fc *FinancialContext) { fc.Location = loc }
}

func WithVersion(v uint64) ContextOption {
	return func(fc *FinancialContext) { fc.Version = v }
}

// NewFinancialContext indexes a snapshot. Defaults: targeted allocation, UTC.
func NewFinancialContext(data ContextData, opts ...ContextOption) *FinancialContext {
	fc := &FinancialContext{
		FeeHeads:     data.FeeHeads,
		Structures:   make(map[string]ClassFeeStructure, len(data.FeeStructures)),
		Discounts:    make(map[string]DiscountCategory, len(data.Discounts)),
		Routes:       make(map[string]TransportRoute, len(data.TransportRoutes)),
		LateFeeRule:  data.LateFeeRule,
		Payments:     make(map[string][]Transaction),
		Additional:   make(map[string][]AdditionalFee),
		Waivers:      make(map[string][]FeeWaiver),
		Allocator:    TargetedAllocator{},
		Location:     time.UTC,
		transactions: data.Transactions,
	}
	for _, s := range data.FeeStructures {
		fc.Structures[s.Class] = s
	}
	for _, d := range data.Discounts {
		fc.Discounts[d.ID] = d
	}
	for _, r := range data.TransportRoutes {
		fc.Routes[r.ID] = r
	}
	for _, t := range data.Transactions {
		if t.IsFeePayment() {
			fc.Payments[t.QRID] = append(fc.Payments[t.QRID], t)
		}
	}
	for _, af := range data.AdditionalFees {
		fc.Additional[af.QRID] = append(fc.Additional[af.QRID], af)
	}
	for _, w := range data.Waivers {
		fc.Waivers[w.QRID] = append(fc.Waivers[w.QRID], w)
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// FeeHead looks a head up by id.
func (fc *FinancialContext) FeeHead(id string) (FeeHead, bool) {
	for _, h := range fc.FeeHeads {
		if h.ID == id {
			return h, true
		}
	}
	return FeeHead{}, false
}

// AssignedDiscounts resolves a student's discount ids, skipping unknown ones.
func (fc *FinancialContext) AssignedDiscounts(st Student) []DiscountCategory {
	assigned := make([]DiscountCategory, 0, len(st.DiscountCategoryIDs))
	for _, id := range st.DiscountCategoryIDs {
		if d, ok := fc.Discounts[id]; ok {
			assigned = append(assigned, d)
		}
	}
	return assigned
}

// TransportFee is the monthly fee of the student's route, zero without one.
func (fc *FinancialContext) TransportFee(st Student) decimal.Decimal {
	if st.TransportRouteID == "" {
		return decimal.Zero
	}
	if r, ok := fc.Routes[st.TransportRouteID]; ok {
		return r.MonthlyFee
	}
	return decimal.Zero
}

// Transactions returns every transaction of the snapshot, fee payment or not.
func (fc *FinancialContext) Transactions() []Transaction {
	return fc.transactions
}
