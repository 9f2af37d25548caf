package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDueDay is the due day used for display when no late fee rule is configured.
const DefaultDueDay = 1

// ComputeStudentFinancials derives a student's ledger for the session `now` falls in and reduces it
// to the outstanding balance. It is pure: identical inputs and `now` give identical results.
//
// A class without a fee structure yields the "no data" result: zero totals, no months.
func ComputeStudentFinancials(st Student, fc *FinancialContext, now time.Time) Financials {
	loc := fc.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	fin := Financials{
		QRID:                st.QRID,
		AsOf:                now,
		Months:              []LedgerEntry{},
		NetMonthlyFee:       decimal.Zero,
		TotalDuesToDate:     decimal.Zero,
		TotalAdditionalFees: decimal.Zero,
		TotalWaived:         decimal.Zero,
		TotalPaid:           decimal.Zero,
		Unapplied:           decimal.Zero,
		Outstanding:         decimal.Zero,
	}
	structure, ok := fc.Structures[st.Class]
	if !ok {
		fin.NoFeeStructure = true
		return fin
	}

	bd := EvaluateDiscounts(structure, fc.FeeHeads, fc.AssignedDiscounts(st), fc.TransportFee(st))
	fin.NetMonthlyFee = bd.NetRecurring
	fin.Discounts = &bd

	dueDay := DefaultDueDay
	if fc.LateFeeRule != nil {
		dueDay = fc.LateFeeRule.DueDay
	}
	entries := BuildLedger(AcademicSession(now), bd.NetRecurring, structure, fc.FeeHeads, dueDay, loc)

	payments := fc.Payments[st.QRID]
	for _, p := range payments {
		fin.TotalPaid = fin.TotalPaid.Add(p.Amount)
	}
	allocator := fc.Allocator
	if allocator == nil {
		allocator = TargetedAllocator{}
	}
	fin.Unapplied = allocator.Allocate(entries, payments, now)

	for i := range entries {
		e := &entries[i]
		e.LateFee = LateFee(*e, fc.LateFeeRule, now)
		e.Fee = e.DueAmount.Add(e.LateFee)
		e.Balance = clampZero(e.Fee.Sub(e.Paid))
		e.Status = ClassifyStatus(e.start, now, e.Paid, e.Fee)
		if e.started(now) {
			fin.TotalDuesToDate = fin.TotalDuesToDate.Add(e.Fee)
		}
	}
	fin.Months = entries

	for _, af := range fc.Additional[st.QRID] {
		fin.TotalAdditionalFees = fin.TotalAdditionalFees.Add(af.Amount)
	}
	for _, w := range fc.Waivers[st.QRID] {
		fin.TotalWaived = fin.TotalWaived.Add(w.Amount)
	}

	net := fin.TotalDuesToDate.Add(fin.TotalAdditionalFees).Sub(fin.TotalWaived)
	fin.Outstanding = clampZero(net.Sub(fin.TotalPaid))
	return fin
}
