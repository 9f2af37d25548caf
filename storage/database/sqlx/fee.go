package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/feeportal/core/fee"
)

const foreignKeyViolation = pq.ErrorCode("23503")

func pqErrorCode(err error) pq.ErrorCode {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code
	}
	return ""
}

type feeRepository struct {
	db *sqlx.DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{db: db}
}

// Students

const studentColumns = "qr_id, name, class, email, discount_category_ids, transport_route_id"

func (repo *feeRepository) GetStudent(ctx context.Context, qrID string) (fee.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM students WHERE qr_id = $1", qrID)
	if err == sql.ErrNoRows {
		return fee.Student{}, fee.ErrStudentNotFound
	}
	if err != nil {
		return fee.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.student(), nil
}

func (repo *feeRepository) QueryStudents(ctx context.Context, filter fee.StudentFilter) ([]fee.Student, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.Class != "" {
		args = append(args, filter.Class)
		conds = append(conds, fmt.Sprintf("class = $%d", len(args)))
	}
	if len(filter.QRIDs) > 0 {
		args = append(args, pq.Array(filter.QRIDs))
		conds = append(conds, fmt.Sprintf("qr_id = ANY($%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%[1]d OR qr_id ILIKE $%[1]d)", len(args)))
	}

	q := "SELECT " + studentColumns + " FROM students"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY qr_id"

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]fee.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *feeRepository) SaveStudent(ctx context.Context, st fee.Student) (fee.Student, error) {
	const q = `
		INSERT INTO students (qr_id, name, class, email, discount_category_ids, transport_route_id)
		VALUES (:qr_id, :name, :class, :email, :discount_category_ids, :transport_route_id)
		ON CONFLICT (qr_id) DO UPDATE SET
			name = EXCLUDED.name,
			class = EXCLUDED.class,
			email = EXCLUDED.email,
			discount_category_ids = EXCLUDED.discount_category_ids,
			transport_route_id = EXCLUDED.transport_route_id,
			updated_at = now()`

	row := newStudentRow(st)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return fee.Student{}, errors.Wrapf(fee.ErrNotFound, "transport route %s", st.TransportRouteID)
		}
		return fee.Student{}, errors.Wrap(err, "upserting student")
	}
	return row.student(), nil
}

// Fee heads

func (repo *feeRepository) QueryFeeHeads(ctx context.Context) ([]fee.FeeHead, error) {
	return queryFeeHeads(ctx, repo.db)
}

func queryFeeHeads(ctx context.Context, q sqlx.QueryerContext) ([]fee.FeeHead, error) {
	var rows []feeHeadRow
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT id, name, fee_type, due_month FROM fee_heads ORDER BY created_at, id"); err != nil {
		return nil, errors.Wrap(err, "selecting fee heads")
	}
	heads := make([]fee.FeeHead, 0, len(rows))
	for _, r := range rows {
		heads = append(heads, r.feeHead())
	}
	return heads, nil
}

func (repo *feeRepository) SaveFeeHead(ctx context.Context, head fee.FeeHead) (fee.FeeHead, error) {
	const q = `
		INSERT INTO fee_heads (id, name, fee_type, due_month) VALUES (:id, :name, :fee_type, :due_month)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, fee_type = EXCLUDED.fee_type, due_month = EXCLUDED.due_month`

	if _, err := repo.db.NamedExecContext(ctx, q, newFeeHeadRow(head)); err != nil {
		return fee.FeeHead{}, errors.Wrap(err, "upserting fee head")
	}
	return head, nil
}

func (repo *feeRepository) DeleteFeeHead(ctx context.Context, id string) error {
	return repo.delete(ctx, "DELETE FROM fee_heads WHERE id = $1", id, fee.ErrFeeHeadInUse)
}

// delete runs a single-row delete; a foreign key violation means the row is still referenced.
func (repo *feeRepository) delete(ctx context.Context, q, id string, inUse error) error {
	res, err := repo.db.ExecContext(ctx, q, id)
	if err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return inUse
		}
		return errors.Wrap(err, "deleting")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting")
	}
	if n == 0 {
		return fee.ErrNotFound
	}
	return nil
}

// Fee structures

func (repo *feeRepository) QueryFeeStructures(ctx context.Context) ([]fee.ClassFeeStructure, error) {
	return queryFeeStructures(ctx, repo.db)
}

func queryFeeStructures(ctx context.Context, q sqlx.QueryerContext) ([]fee.ClassFeeStructure, error) {
	var rows []structureRow
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT class, fee_head_id, amount FROM class_fee_structures ORDER BY class, fee_head_id"); err != nil {
		return nil, errors.Wrap(err, "selecting fee structures")
	}
	structures := make([]fee.ClassFeeStructure, 0)
	for _, r := range rows {
		n := len(structures)
		if n == 0 || structures[n-1].Class != r.Class {
			structures = append(structures, fee.ClassFeeStructure{Class: r.Class, Fees: make(map[string]decimal.Decimal)})
			n++
		}
		structures[n-1].Fees[r.FeeHeadID] = r.Amount
	}
	return structures, nil
}

// SaveFeeStructure replaces every amount of the class in one transaction.
func (repo *feeRepository) SaveFeeStructure(ctx context.Context, s fee.ClassFeeStructure) (fee.ClassFeeStructure, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return fee.ClassFeeStructure{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, "DELETE FROM class_fee_structures WHERE class = $1", s.Class); err != nil {
		return fee.ClassFeeStructure{}, errors.Wrap(err, "clearing fee structure")
	}
	for headID, amount := range s.Fees {
		row := structureRow{Class: s.Class, FeeHeadID: headID, Amount: amount}
		_, err = tx.NamedExecContext(ctx,
			"INSERT INTO class_fee_structures (class, fee_head_id, amount) VALUES (:class, :fee_head_id, :amount)", row)
		if err != nil {
			if pqErrorCode(err) == foreignKeyViolation {
				return fee.ClassFeeStructure{}, errors.Wrapf(fee.ErrNotFound, "fee head %s", headID)
			}
			return fee.ClassFeeStructure{}, errors.Wrap(err, "inserting fee structure amount")
		}
	}
	if err = tx.Commit(); err != nil {
		return fee.ClassFeeStructure{}, errors.Wrap(err, "committing fee structure")
	}
	return s, nil
}

// Discounts

func (repo *feeRepository) QueryDiscounts(ctx context.Context) ([]fee.DiscountCategory, error) {
	return queryDiscounts(ctx, repo.db)
}

func queryDiscounts(ctx context.Context, q sqlx.QueryerContext) ([]fee.DiscountCategory, error) {
	var rows []discountRow
	err := sqlx.SelectContext(ctx, q, &rows,
		"SELECT id, name, discount_type, calculation, value, fee_head_id FROM discount_categories ORDER BY created_at, id")
	if err != nil {
		return nil, errors.Wrap(err, "selecting discount categories")
	}
	discounts := make([]fee.DiscountCategory, 0, len(rows))
	for _, r := range rows {
		discounts = append(discounts, r.discount())
	}
	return discounts, nil
}

func (repo *feeRepository) SaveDiscount(ctx context.Context, d fee.DiscountCategory) (fee.DiscountCategory, error) {
	const q = `
		INSERT INTO discount_categories (id, name, discount_type, calculation, value, fee_head_id)
		VALUES (:id, :name, :discount_type, :calculation, :value, :fee_head_id)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			discount_type = EXCLUDED.discount_type,
			calculation = EXCLUDED.calculation,
			value = EXCLUDED.value,
			fee_head_id = EXCLUDED.fee_head_id`

	if _, err := repo.db.NamedExecContext(ctx, q, newDiscountRow(d)); err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return fee.DiscountCategory{}, errors.Wrapf(fee.ErrNotFound, "fee head %s", d.FeeHeadID)
		}
		return fee.DiscountCategory{}, errors.Wrap(err, "upserting discount category")
	}
	return d, nil
}

func (repo *feeRepository) DeleteDiscount(ctx context.Context, id string) error {
	return repo.delete(ctx, "DELETE FROM discount_categories WHERE id = $1", id, fee.ErrDiscountInUse)
}

// Transport routes

func (repo *feeRepository) QueryTransportRoutes(ctx context.Context) ([]fee.TransportRoute, error) {
	return queryTransportRoutes(ctx, repo.db)
}

func queryTransportRoutes(ctx context.Context, q sqlx.QueryerContext) ([]fee.TransportRoute, error) {
	var rows []routeRow
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT id, name, monthly_fee FROM transport_routes ORDER BY created_at, id"); err != nil {
		return nil, errors.Wrap(err, "selecting transport routes")
	}
	routes := make([]fee.TransportRoute, 0, len(rows))
	for _, r := range rows {
		routes = append(routes, fee.TransportRoute(r))
	}
	return routes, nil
}

func (repo *feeRepository) SaveTransportRoute(ctx context.Context, r fee.TransportRoute) (fee.TransportRoute, error) {
	const q = `
		INSERT INTO transport_routes (id, name, monthly_fee) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, monthly_fee = EXCLUDED.monthly_fee`

	if _, err := repo.db.ExecContext(ctx, q, r.ID, r.Name, r.MonthlyFee); err != nil {
		return fee.TransportRoute{}, errors.Wrap(err, "upserting transport route")
	}
	return r, nil
}

func (repo *feeRepository) DeleteTransportRoute(ctx context.Context, id string) error {
	return repo.delete(ctx, "DELETE FROM transport_routes WHERE id = $1", id, fee.ErrRouteInUse)
}

// Late fee rule

func (repo *feeRepository) GetLateFeeRule(ctx context.Context) (*fee.LateFeeRule, error) {
	return getLateFeeRule(ctx, repo.db)
}

func getLateFeeRule(ctx context.Context, q sqlx.QueryerContext) (*fee.LateFeeRule, error) {
	var row lateFeeRuleRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT due_day, rule_type, value FROM late_fee_rules WHERE id = 1")
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting late fee rule")
	}
	return &fee.LateFeeRule{DueDay: row.DueDay, Type: fee.LateFeeType(row.Type), Value: row.Value}, nil
}

func (repo *feeRepository) SaveLateFeeRule(ctx context.Context, rule fee.LateFeeRule) (fee.LateFeeRule, error) {
	const q = `
		INSERT INTO late_fee_rules (id, due_day, rule_type, value) VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET due_day = EXCLUDED.due_day, rule_type = EXCLUDED.rule_type, value = EXCLUDED.value`

	if _, err := repo.db.ExecContext(ctx, q, rule.DueDay, string(rule.Type), rule.Value); err != nil {
		return fee.LateFeeRule{}, errors.Wrap(err, "upserting late fee rule")
	}
	return rule, nil
}

// Ledger inputs

const transactionColumns = "id, qr_id, type, payment_method, amount, description, date, months_covered"

// SaveTransaction inserts t unless its id already exists, then returns the stored record.
func (repo *feeRepository) SaveTransaction(ctx context.Context, t fee.Transaction) (fee.Transaction, error) {
	row, err := newTransactionRow(t)
	if err != nil {
		return fee.Transaction{}, err
	}

	const q = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (:id, :qr_id, :type, :payment_method, :amount, :description, :date, :months_covered)
		ON CONFLICT (id) DO NOTHING`

	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return fee.Transaction{}, fee.ErrStudentNotFound
		}
		return fee.Transaction{}, errors.Wrap(err, "inserting transaction")
	}

	var stored transactionRow
	if err = repo.db.GetContext(ctx, &stored, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", t.ID); err != nil {
		return fee.Transaction{}, errors.Wrap(err, "selecting transaction")
	}
	return stored.transaction()
}

func (repo *feeRepository) QueryTransactions(ctx context.Context, filter fee.TransactionFilter) ([]fee.Transaction, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.QRID != "" {
		args = append(args, filter.QRID)
		conds = append(conds, fmt.Sprintf("qr_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}

	q := "SELECT " + transactionColumns + " FROM transactions"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	return queryTransactions(ctx, repo.db, q+" ORDER BY date, id", args...)
}

func queryTransactions(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]fee.Transaction, error) {
	var rows []transactionRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting transactions")
	}
	txs := make([]fee.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := r.transaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

type additionalFeeRow struct {
	ID          string          `db:"id"`
	QRID        string          `db:"qr_id"`
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"`
	DateIssued  time.Time       `db:"date_issued"`
}

func (repo *feeRepository) SaveAdditionalFee(ctx context.Context, af fee.AdditionalFee) (fee.AdditionalFee, error) {
	const q = `
		INSERT INTO additional_fees (id, qr_id, description, amount, date_issued)
		VALUES (:id, :qr_id, :description, :amount, :date_issued)
		ON CONFLICT (id) DO UPDATE SET description = EXCLUDED.description, amount = EXCLUDED.amount`

	row := additionalFeeRow(af)
	row.DateIssued = row.DateIssued.UTC()
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return fee.AdditionalFee{}, fee.ErrStudentNotFound
		}
		return fee.AdditionalFee{}, errors.Wrap(err, "upserting additional fee")
	}
	return af, nil
}

type waiverRow struct {
	ID     string          `db:"id"`
	QRID   string          `db:"qr_id"`
	Amount decimal.Decimal `db:"amount"`
	Reason string          `db:"reason"`
	Date   time.Time       `db:"date"`
}

func (repo *feeRepository) SaveWaiver(ctx context.Context, w fee.FeeWaiver) (fee.FeeWaiver, error) {
	const q = `
		INSERT INTO fee_waivers (id, qr_id, amount, reason, date) VALUES (:id, :qr_id, :amount, :reason, :date)
		ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount, reason = EXCLUDED.reason`

	row := waiverRow(w)
	row.Date = row.Date.UTC()
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErrorCode(err) == foreignKeyViolation {
			return fee.FeeWaiver{}, fee.ErrStudentNotFound
		}
		return fee.FeeWaiver{}, errors.Wrap(err, "upserting waiver")
	}
	return w, nil
}

// Snapshot reads every collection inside one read-only, repeatable-read transaction
// so the engine never sees a half-applied write.
func (repo *feeRepository) Snapshot(ctx context.Context) (fee.ContextData, error) {
	tx, err := repo.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fee.ContextData{}, errors.Wrap(err, "beginning snapshot")
	}
	defer func() { _ = tx.Rollback() }()

	var data fee.ContextData
	if data.FeeHeads, err = queryFeeHeads(ctx, tx); err != nil {
		return fee.ContextData{}, err
	}
	if data.FeeStructures, err = queryFeeStructures(ctx, tx); err != nil {
		return fee.ContextData{}, err
	}
	if data.Discounts, err = queryDiscounts(ctx, tx); err != nil {
		return fee.ContextData{}, err
	}
	if data.TransportRoutes, err = queryTransportRoutes(ctx, tx); err != nil {
		return fee.ContextData{}, err
	}
	if data.LateFeeRule, err = getLateFeeRule(ctx, tx); err != nil {
		return fee.ContextData{}, err
	}
	if data.Transactions, err = queryTransactions(ctx, tx, "SELECT "+transactionColumns+" FROM transactions ORDER BY date, id"); err != nil {
		return fee.ContextData{}, err
	}

	var afRows []additionalFeeRow
	if err = tx.SelectContext(ctx, &afRows, "SELECT id, qr_id, description, amount, date_issued FROM additional_fees ORDER BY date_issued, id"); err != nil {
		return fee.ContextData{}, errors.Wrap(err, "selecting additional fees")
	}
	data.AdditionalFees = make([]fee.AdditionalFee, 0, len(afRows))
	for _, r := range afRows {
		data.AdditionalFees = append(data.AdditionalFees, fee.AdditionalFee(r))
	}

	var wRows []waiverRow
	if err = tx.SelectContext(ctx, &wRows, "SELECT id, qr_id, amount, reason, date FROM fee_waivers ORDER BY date, id"); err != nil {
		return fee.ContextData{}, errors.Wrap(err, "selecting waivers")
	}
	data.Waivers = make([]fee.FeeWaiver, 0, len(wRows))
	for _, r := range wRows {
		data.Waivers = append(data.Waivers, fee.FeeWaiver(r))
	}

	if err = tx.Commit(); err != nil {
		return fee.ContextData{}, errors.Wrap(err, "committing snapshot")
	}
	return data, nil
}
