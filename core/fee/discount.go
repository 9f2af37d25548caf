package fee

import "github.com/shopspring/decimal"

// DiscountBreakdown details how a student's net recurring monthly fee was reached.
type DiscountBreakdown struct {
	RecurringGross       decimal.Decimal            `json:"recurring_gross"`
	HeadwiseByHead       map[string]decimal.Decimal `json:"headwise_by_head"`
	HeadwiseDiscount     decimal.Decimal            `json:"headwise_discount"`
	SubTotal             decimal.Decimal            `json:"sub_total"`
	MonthlyTotalDiscount decimal.Decimal            `json:"monthly_total_discount"`
	TransportFee         decimal.Decimal            `json:"transport_fee"`
	NetRecurring         decimal.Decimal            `json:"net_recurring"`
}

// EvaluateDiscounts applies the assigned discount categories to the recurring heads of a class.
// Head-wise discounts are stacked per head and capped at that head's gross fee, then monthly-total
// discounts are taken off the remaining subtotal. The result never goes below zero before transport is added.
func EvaluateDiscounts(
	structure ClassFeeStructure,
	heads []FeeHead,
	assigned []DiscountCategory,
	transportFee decimal.Decimal,
) DiscountBreakdown {
	bd := DiscountBreakdown{
		RecurringGross:       decimal.Zero,
		HeadwiseByHead:       make(map[string]decimal.Decimal),
		HeadwiseDiscount:     decimal.Zero,
		MonthlyTotalDiscount: decimal.Zero,
		TransportFee:         transportFee,
	}

	for _, head := range heads {
		if !head.IsRecurring() {
			continue
		}
		gross := structure.Amount(head.ID)
		bd.RecurringGross = bd.RecurringGross.Add(gross)

		raw := decimal.Zero
		for _, d := range assigned {
			if d.Type == HeadWise && d.FeeHeadID == head.ID {
				raw = raw.Add(d.Amount(gross))
			}
		}
		if raw.IsZero() {
			continue
		}
		capped := minDecimal(raw, gross)
		bd.HeadwiseByHead[head.ID] = capped
		bd.HeadwiseDiscount = bd.HeadwiseDiscount.Add(capped)
	}

	bd.SubTotal = bd.RecurringGross.Sub(bd.HeadwiseDiscount)
	for _, d := range assigned {
		if d.Type == MonthlyTotal {
			bd.MonthlyTotalDiscount = bd.MonthlyTotalDiscount.Add(d.Amount(bd.SubTotal))
		}
	}

	bd.NetRecurring = clampZero(bd.SubTotal.Sub(bd.MonthlyTotalDiscount)).Add(transportFee)
	return bd
}
