package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/feeportal/core/fee"
)

type feeRepository struct {
	db *DB
}

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db}
}

// Students

func (repo *feeRepository) GetStudent(_ context.Context, qrID string) (fee.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.db.students[qrID]; ok {
		return copyStudent(*st), nil
	}
	return fee.Student{}, fee.ErrStudentNotFound
}

func (repo *feeRepository) QueryStudents(_ context.Context, filter fee.StudentFilter) ([]fee.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var wanted map[string]bool
	if len(filter.QRIDs) > 0 {
		wanted = make(map[string]bool, len(filter.QRIDs))
		for _, id := range filter.QRIDs {
			wanted[id] = true
		}
	}
	search := strings.ToLower(filter.Search)

	students := make([]fee.Student, 0, len(repo.db.students))
	for _, st := range repo.db.students {
		if filter.Class != "" && st.Class != filter.Class {
			continue
		}
		if wanted != nil && !wanted[st.QRID] {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(st.Name), search) &&
			!strings.Contains(strings.ToLower(st.QRID), search) {
			continue
		}
		students = append(students, copyStudent(*st))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].QRID < students[j].QRID })
	return students, nil
}

func (repo *feeRepository) SaveStudent(_ context.Context, st fee.Student) (fee.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	st = copyStudent(st)
	repo.db.students[st.QRID] = &st
	return copyStudent(st), nil
}

// Fee heads

func (repo *feeRepository) QueryFeeHeads(_ context.Context) ([]fee.FeeHead, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append([]fee.FeeHead{}, repo.db.feeHeads...), nil
}

func (repo *feeRepository) SaveFeeHead(_ context.Context, head fee.FeeHead) (fee.FeeHead, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.feeHeads {
		if repo.db.feeHeads[i].ID == head.ID {
			repo.db.feeHeads[i] = head
			return head, nil
		}
	}
	repo.db.feeHeads = append(repo.db.feeHeads, head)
	return head, nil
}

func (repo *feeRepository) DeleteFeeHead(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.feeHeads {
		if repo.db.feeHeads[i].ID == id {
			repo.db.feeHeads = append(repo.db.feeHeads[:i], repo.db.feeHeads[i+1:]...)
			return nil
		}
	}
	return fee.ErrNotFound
}

// Fee structures

func (repo *feeRepository) QueryFeeStructures(_ context.Context) ([]fee.ClassFeeStructure, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	structures := make([]fee.ClassFeeStructure, 0, len(repo.db.structures))
	for _, s := range repo.db.structures {
		structures = append(structures, copyStructure(s))
	}
	sort.Slice(structures, func(i, j int) bool { return structures[i].Class < structures[j].Class })
	return structures, nil
}

func (repo *feeRepository) SaveFeeStructure(_ context.Context, s fee.ClassFeeStructure) (fee.ClassFeeStructure, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.structures[s.Class] = copyStructure(s)
	return copyStructure(s), nil
}

// Discounts

func (repo *feeRepository) QueryDiscounts(_ context.Context) ([]fee.DiscountCategory, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append([]fee.DiscountCategory{}, repo.db.discounts...), nil
}

func (repo *feeRepository) SaveDiscount(_ context.Context, d fee.DiscountCategory) (fee.DiscountCategory, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.discounts {
		if repo.db.discounts[i].ID == d.ID {
			repo.db.discounts[i] = d
			return d, nil
		}
	}
	repo.db.discounts = append(repo.db.discounts, d)
	return d, nil
}

func (repo *feeRepository) DeleteDiscount(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.discounts {
		if repo.db.discounts[i].ID == id {
			repo.db.discounts = append(repo.db.discounts[:i], repo.db.discounts[i+1:]...)
			return nil
		}
	}
	return fee.ErrNotFound
}

// Transport routes

func (repo *feeRepository) QueryTransportRoutes(_ context.Context) ([]fee.TransportRoute, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append([]fee.TransportRoute{}, repo.db.routes...), nil
}

func (repo *feeRepository) SaveTransportRoute(_ context.Context, r fee.TransportRoute) (fee.TransportRoute, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.routes {
		if repo.db.routes[i].ID == r.ID {
			repo.db.routes[i] = r
			return r, nil
		}
	}
	repo.db.routes = append(repo.db.routes, r)
	return r, nil
}

func (repo *feeRepository) DeleteTransportRoute(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.routes {
		if repo.db.routes[i].ID == id {
			repo.db.routes = append(repo.db.routes[:i], repo.db.routes[i+1:]...)
			return nil
		}
	}
	return fee.ErrNotFound
}

// Late fee rule

func (repo *feeRepository) GetLateFeeRule(_ context.Context) (*fee.LateFeeRule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.lateFeeRule == nil {
		return nil, nil
	}
	rule := *repo.db.lateFeeRule
	return &rule, nil
}

func (repo *feeRepository) SaveLateFeeRule(_ context.Context, rule fee.LateFeeRule) (fee.LateFeeRule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.lateFeeRule = &rule
	return rule, nil
}

// Ledger inputs

func (repo *feeRepository) SaveTransaction(_ context.Context, t fee.Transaction) (fee.Transaction, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.transactions[t.ID]; ok {
		return copyTransaction(existing), nil
	}
	repo.db.transactions[t.ID] = copyTransaction(t)
	repo.db.txOrder = append(repo.db.txOrder, t.ID)
	return copyTransaction(t), nil
}

func (repo *feeRepository) QueryTransactions(_ context.Context, filter fee.TransactionFilter) ([]fee.Transaction, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	txs := make([]fee.Transaction, 0)
	for _, id := range repo.db.txOrder {
		t := repo.db.transactions[id]
		if filter.QRID != "" && t.QRID != filter.QRID {
			continue
		}
		if !filter.From.IsZero() && t.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && t.Date.After(filter.To) {
			continue
		}
		txs = append(txs, copyTransaction(t))
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
	return txs, nil
}

func (repo *feeRepository) SaveAdditionalFee(_ context.Context, af fee.AdditionalFee) (fee.AdditionalFee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.additionalFees {
		if repo.db.additionalFees[i].ID == af.ID {
			repo.db.additionalFees[i] = af
			return af, nil
		}
	}
	repo.db.additionalFees = append(repo.db.additionalFees, af)
	return af, nil
}

func (repo *feeRepository) SaveWaiver(_ context.Context, w fee.FeeWaiver) (fee.FeeWaiver, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.waivers {
		if repo.db.waivers[i].ID == w.ID {
			repo.db.waivers[i] = w
			return w, nil
		}
	}
	repo.db.waivers = append(repo.db.waivers, w)
	return w, nil
}

func (repo *feeRepository) Snapshot(_ context.Context) (fee.ContextData, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	data := fee.ContextData{
		FeeHeads:        append([]fee.FeeHead{}, repo.db.feeHeads...),
		FeeStructures:   make([]fee.ClassFeeStructure, 0, len(repo.db.structures)),
		Discounts:       append([]fee.DiscountCategory{}, repo.db.discounts...),
		TransportRoutes: append([]fee.TransportRoute{}, repo.db.routes...),
		Transactions:    make([]fee.Transaction, 0, len(repo.db.txOrder)),
		AdditionalFees:  append([]fee.AdditionalFee{}, repo.db.additionalFees...),
		Waivers:         append([]fee.FeeWaiver{}, repo.db.waivers...),
	}
	for _, s := range repo.db.structures {
		data.FeeStructures = append(data.FeeStructures, copyStructure(s))
	}
	if repo.db.lateFeeRule != nil {
		rule := *repo.db.lateFeeRule
		data.LateFeeRule = &rule
	}
	for _, id := range repo.db.txOrder {
		data.Transactions = append(data.Transactions, copyTransaction(repo.db.transactions[id]))
	}
	return data, nil
}
