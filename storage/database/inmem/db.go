package inmemdb

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/trezcool/feeportal/core/fee"
)

type (
	DB struct {
		mutex sync.RWMutex

		students       map[string]*fee.Student
		feeHeads       []fee.FeeHead
		structures     map[string]fee.ClassFeeStructure
		discounts      []fee.DiscountCategory
		routes         []fee.TransportRoute
		lateFeeRule    *fee.LateFeeRule
		transactions   map[string]fee.Transaction
		txOrder        []string // insertion order of transactions
		additionalFees []fee.AdditionalFee
		waivers        []fee.FeeWaiver
	}
)

func Open() (*DB, error) {
	db := &DB{
		students:     make(map[string]*fee.Student),
		structures:   make(map[string]fee.ClassFeeStructure),
		transactions: make(map[string]fee.Transaction),
	}
	return db, nil
}

// copy helpers: records handed out never share slices or maps with the tables

func copyStudent(st fee.Student) fee.Student {
	st.DiscountCategoryIDs = append([]string{}, st.DiscountCategoryIDs...)
	return st
}

func copyStructure(s fee.ClassFeeStructure) fee.ClassFeeStructure {
	fees := s.Fees
	s.Fees = make(map[string]decimal.Decimal, len(fees))
	for id, amt := range fees {
		s.Fees[id] = amt
	}
	return s
}

func copyTransaction(t fee.Transaction) fee.Transaction {
	if t.MonthsCovered != nil {
		t.MonthsCovered = append([]fee.MonthRef{}, t.MonthsCovered...)
	}
	return t
}
