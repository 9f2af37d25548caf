package fee

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/feeportal/core"
)

var NowFunc = time.Now // mockable

type Service struct {
	repo      Repository
	mailSvc   core.EmailService
	logger    core.Logger
	allocator Allocator
	loc       *time.Location
	cache     *ledgerCache // nil when disabled
	version   uint64
}

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	svc := &Service{
		repo:      repo,
		mailSvc:   mailSvc,
		logger:    logger,
		allocator: NewAllocator(conf.Fees.Allocation),
		loc:       conf.Fees.Location(),
	}
	if conf.Fees.Cache {
		svc.cache = newLedgerCache()
	}
	return svc
}

// Now returns the current time in the school's time zone.
func (svc *Service) Now() time.Time {
	return NowFunc().In(svc.loc)
}

func (svc *Service) Location() *time.Location { return svc.loc }

// changed invalidates every memoized ledger.
func (svc *Service) changed() {
	atomic.AddUint64(&svc.version, 1)
}

// Context snapshots the repository into a FinancialContext.
func (svc *Service) Context(ctx context.Context) (*FinancialContext, error) {
	version := atomic.LoadUint64(&svc.version)
	data, err := svc.repo.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot")
	}
	return NewFinancialContext(data, WithAllocator(svc.allocator), WithLocation(svc.loc), WithVersion(version)), nil
}

func (svc *Service) Student(ctx context.Context, qrID string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(qrID))
}

func (svc *Service) Students(ctx context.Context, filter StudentFilter) ([]Student, error) {
	filter.Class = core.CleanString(filter.Class)
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryStudents(ctx, filter)
}

// Financials computes a student's ledger at `now`.
func (svc *Service) Financials(ctx context.Context, qrID string, now time.Time) (Financials, error) {
	st, err := svc.Student(ctx, qrID)
	if err != nil {
		return Financials{}, err
	}

	now = now.In(svc.loc)
	key := newCacheKey(st.QRID, atomic.LoadUint64(&svc.version), now)
	if svc.cache != nil {
		if fin, ok := svc.cache.get(key); ok {
			fin.AsOf = now
			return fin, nil
		}
	}

	fc, err := svc.Context(ctx)
	if err != nil {
		return Financials{}, err
	}
	fin := ComputeStudentFinancials(st, fc, now)
	if svc.cache != nil {
		key.version = fc.Version
		svc.cache.put(key, fin)
	}
	return fin, nil
}

// Reports

func (svc *Service) reportInputs(ctx context.Context, class string) ([]Student, *FinancialContext, error) {
	students, err := svc.repo.QueryStudents(ctx, StudentFilter{Class: core.CleanString(class)})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying students")
	}
	fc, err := svc.Context(ctx)
	if err != nil {
		return nil, nil, err
	}
	return students, fc, nil
}

func (svc *Service) DuesList(ctx context.Context, now time.Time, class string) ([]DuesRow, error) {
	students, fc, err := svc.reportInputs(ctx, class)
	if err != nil {
		return nil, err
	}
	return DuesList(students, fc, now, ""), nil
}

func (svc *Service) Defaulters(ctx context.Context, now time.Time, class, bucket string) ([]Defaulter, error) {
	if bucket != "" && !IsAgingBucket(bucket) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "bucket", Error: "unknown aging bucket"})
	}
	students, fc, err := svc.reportInputs(ctx, class)
	if err != nil {
		return nil, err
	}
	return Defaulters(students, fc, now, "", bucket), nil
}

func (svc *Service) DiscountSummary(ctx context.Context) ([]DiscountSummaryRow, error) {
	students, fc, err := svc.reportInputs(ctx, "")
	if err != nil {
		return nil, err
	}
	return DiscountSummary(students, fc), nil
}

func (svc *Service) HeadwiseCollection(ctx context.Context, from, to time.Time) ([]HeadCollection, error) {
	if to.Before(from) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "must not be before from"})
	}
	students, fc, err := svc.reportInputs(ctx, "")
	if err != nil {
		return nil, err
	}
	return HeadwiseCollection(students, fc, from, to), nil
}

func (svc *Service) DayBook(ctx context.Context, day time.Time) (DayBookReport, error) {
	fc, err := svc.Context(ctx)
	if err != nil {
		return DayBookReport{}, err
	}
	return DayBook(fc, day), nil
}

func (svc *Service) ClassStrength(ctx context.Context) ([]ClassStrengthRow, error) {
	students, err := svc.repo.QueryStudents(ctx, StudentFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return ClassStrength(students), nil
}

// Ledger inputs

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// RecordPayment stores a fee payment. MonthsCovered must fall within the current session.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment) (Transaction, error) {
	st, err := svc.Student(ctx, np.QRID)
	if err != nil {
		return Transaction{}, err
	}

	now := svc.Now()
	months := make([]MonthRef, 0, len(np.MonthsCovered))
	seen := make(map[MonthRef]bool, len(np.MonthsCovered))
	for _, m := range np.MonthsCovered {
		if !InSession(m, now) {
			return Transaction{}, core.NewValidationError(nil, core.FieldError{
				Field: "months_covered",
				Error: fmt.Sprintf("%s is not part of the current session", m),
			})
		}
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}

	date := np.Date
	if date.IsZero() {
		date = now
	}
	t, err := svc.repo.SaveTransaction(ctx, Transaction{
		ID:            newID(np.ID),
		QRID:          st.QRID,
		Type:          TypeFeePayment,
		Method:        np.Method,
		Amount:        np.Amount,
		Description:   np.Description,
		Date:          date,
		MonthsCovered: months,
	})
	if err != nil {
		return Transaction{}, errors.Wrap(err, "saving transaction")
	}
	svc.changed()
	svc.logger.Info(fmt.Sprintf("fee payment %s of %s recorded for %s", t.ID, t.Amount.StringFixed(2), t.QRID))
	return t, nil
}

func (svc *Service) IssueAdditionalFee(ctx context.Context, na NewAdditionalFee) (AdditionalFee, error) {
	st, err := svc.Student(ctx, na.QRID)
	if err != nil {
		return AdditionalFee{}, err
	}
	date := na.DateIssued
	if date.IsZero() {
		date = svc.Now()
	}
	af, err := svc.repo.SaveAdditionalFee(ctx, AdditionalFee{
		ID:          newID(na.ID),
		QRID:        st.QRID,
		Description: na.Description,
		Amount:      na.Amount,
		DateIssued:  date,
	})
	if err != nil {
		return AdditionalFee{}, errors.Wrap(err, "saving additional fee")
	}
	svc.changed()
	return af, nil
}

func (svc *Service) GrantWaiver(ctx context.Context, nw NewWaiver) (FeeWaiver, error) {
	st, err := svc.Student(ctx, nw.QRID)
	if err != nil {
		return FeeWaiver{}, err
	}
	date := nw.Date
	if date.IsZero() {
		date = svc.Now()
	}
	w, err := svc.repo.SaveWaiver(ctx, FeeWaiver{
		ID:     newID(nw.ID),
		QRID:   st.QRID,
		Amount: nw.Amount,
		Reason: nw.Reason,
		Date:   date,
	})
	if err != nil {
		return FeeWaiver{}, errors.Wrap(err, "saving waiver")
	}
	svc.changed()
	svc.logger.Info(fmt.Sprintf("waiver %s of %s granted to %s: %s", w.ID, w.Amount.StringFixed(2), w.QRID, w.Reason))
	return w, nil
}

// Student assignments

func (svc *Service) AssignDiscounts(ctx context.Context, qrID string, ids []string) (Student, error) {
	st, err := svc.Student(ctx, qrID)
	if err != nil {
		return Student{}, err
	}
	discounts, err := svc.repo.QueryDiscounts(ctx)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying discounts")
	}
	known := make(map[string]bool, len(discounts))
	for _, d := range discounts {
		known[d.ID] = true
	}

	assigned := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return Student{}, core.NewValidationError(nil, core.FieldError{
				Field: "discount_category_ids",
				Error: fmt.Sprintf("unknown discount category %q", id),
			})
		}
		if !seen[id] {
			seen[id] = true
			assigned = append(assigned, id)
		}
	}
	st.DiscountCategoryIDs = assigned

	if st, err = svc.repo.SaveStudent(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "saving student")
	}
	svc.changed()
	return st, nil
}

func (svc *Service) AssignTransport(ctx context.Context, qrID, routeID string) (Student, error) {
	st, err := svc.Student(ctx, qrID)
	if err != nil {
		return Student{}, err
	}
	routeID = core.CleanString(routeID, true /* lower */)
	if routeID != "" {
		routes, err := svc.repo.QueryTransportRoutes(ctx)
		if err != nil {
			return Student{}, errors.Wrap(err, "querying transport routes")
		}
		found := false
		for _, r := range routes {
			if r.ID == routeID {
				found = true
				break
			}
		}
		if !found {
			return Student{}, core.NewValidationError(nil, core.FieldError{
				Field: "transport_route_id",
				Error: fmt.Sprintf("unknown transport route %q", routeID),
			})
		}
	}
	st.TransportRouteID = routeID

	if st, err = svc.repo.SaveStudent(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "saving student")
	}
	svc.changed()
	return st, nil
}

// Fee configuration

func (svc *Service) FeeHeads(ctx context.Context) ([]FeeHead, error) {
	return svc.repo.QueryFeeHeads(ctx)
}

func (svc *Service) SaveFeeHead(ctx context.Context, head FeeHead) (FeeHead, error) {
	switch head.Type {
	case AnnualOneTime:
		if head.DueMonth < 1 || head.DueMonth > 12 {
			return FeeHead{}, core.NewValidationError(nil, core.FieldError{
				Field: "due_month",
				Error: "annual fee heads need a due month between 1 and 12",
			})
		}
	default:
		head.DueMonth = 0
	}
	head, err := svc.repo.SaveFeeHead(ctx, head)
	if err != nil {
		return FeeHead{}, errors.Wrap(err, "saving fee head")
	}
	svc.changed()
	return head, nil
}

// DeleteFeeHead fails with ErrFeeHeadInUse while a head-wise discount targets the head.
func (svc *Service) DeleteFeeHead(ctx context.Context, id string) error {
	discounts, err := svc.repo.QueryDiscounts(ctx)
	if err != nil {
		return errors.Wrap(err, "querying discounts")
	}
	for _, d := range discounts {
		if d.Type == HeadWise && d.FeeHeadID == id {
			return ErrFeeHeadInUse
		}
	}
	if err = svc.repo.DeleteFeeHead(ctx, id); err != nil {
		return err
	}
	svc.changed()
	return nil
}

func (svc *Service) FeeStructures(ctx context.Context) ([]ClassFeeStructure, error) {
	return svc.repo.QueryFeeStructures(ctx)
}

// SaveFeeStructure replaces a class's fee structure. Every head must exist and amounts be non-negative.
func (svc *Service) SaveFeeStructure(ctx context.Context, s ClassFeeStructure) (ClassFeeStructure, error) {
	heads, err := svc.repo.QueryFeeHeads(ctx)
	if err != nil {
		return ClassFeeStructure{}, errors.Wrap(err, "querying fee heads")
	}
	known := make(map[string]bool, len(heads))
	for _, h := range heads {
		known[h.ID] = true
	}

	fldErrs := make(map[string]string)
	for headID, amt := range s.Fees {
		switch {
		case !known[headID]:
			fldErrs["fees."+headID] = "unknown fee head"
		case amt.IsNegative():
			fldErrs["fees."+headID] = "amount cannot be negative"
		}
	}
	if len(fldErrs) > 0 {
		return ClassFeeStructure{}, core.NewFieldsError(nil, fldErrs)
	}

	if s, err = svc.repo.SaveFeeStructure(ctx, s); err != nil {
		return ClassFeeStructure{}, errors.Wrap(err, "saving fee structure")
	}
	svc.changed()
	return s, nil
}

func (svc *Service) Discounts(ctx context.Context) ([]DiscountCategory, error) {
	return svc.repo.QueryDiscounts(ctx)
}

func (svc *Service) SaveDiscount(ctx context.Context, d DiscountCategory) (DiscountCategory, error) {
	if d.Calculation == Percentage && d.Value.GreaterThan(hundred) {
		return DiscountCategory{}, core.NewValidationError(nil, core.FieldError{
			Field: "value",
			Error: "a percentage cannot exceed 100",
		})
	}
	switch d.Type {
	case HeadWise:
		if d.FeeHeadID == "" {
			return DiscountCategory{}, core.NewValidationError(nil, core.FieldError{
				Field: "fee_head_id",
				Error: "head-wise discounts need a fee head",
			})
		}
		heads, err := svc.repo.QueryFeeHeads(ctx)
		if err != nil {
			return DiscountCategory{}, errors.Wrap(err, "querying fee heads")
		}
		found := false
		for _, h := range heads {
			if h.ID == d.FeeHeadID {
				found = true
				break
			}
		}
		if !found {
			return DiscountCategory{}, core.NewValidationError(nil, core.FieldError{
				Field: "fee_head_id",
				Error: fmt.Sprintf("unknown fee head %q", d.FeeHeadID),
			})
		}
	default:
		d.FeeHeadID = ""
	}

	d, err := svc.repo.SaveDiscount(ctx, d)
	if err != nil {
		return DiscountCategory{}, errors.Wrap(err, "saving discount")
	}
	svc.changed()
	return d, nil
}

// DeleteDiscount fails with ErrDiscountInUse while any student holds the category.
func (svc *Service) DeleteDiscount(ctx context.Context, id string) error {
	students, err := svc.repo.QueryStudents(ctx, StudentFilter{})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	for _, st := range students {
		if st.HasDiscount(id) {
			return ErrDiscountInUse
		}
	}
	if err = svc.repo.DeleteDiscount(ctx, id); err != nil {
		return err
	}
	svc.changed()
	return nil
}

func (svc *Service) TransportRoutes(ctx context.Context) ([]TransportRoute, error) {
	return svc.repo.QueryTransportRoutes(ctx)
}

func (svc *Service) SaveTransportRoute(ctx context.Context, r TransportRoute) (TransportRoute, error) {
	r, err := svc.repo.SaveTransportRoute(ctx, r)
	if err != nil {
		return TransportRoute{}, errors.Wrap(err, "saving transport route")
	}
	svc.changed()
	return r, nil
}

// DeleteTransportRoute fails with ErrRouteInUse while any student is assigned the route.
func (svc *Service) DeleteTransportRoute(ctx context.Context, id string) error {
	students, err := svc.repo.QueryStudents(ctx, StudentFilter{})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	for _, st := range students {
		if st.TransportRouteID == id {
			return ErrRouteInUse
		}
	}
	if err = svc.repo.DeleteTransportRoute(ctx, id); err != nil {
		return err
	}
	svc.changed()
	return nil
}

func (svc *Service) LateFeeRule(ctx context.Context) (*LateFeeRule, error) {
	return svc.repo.GetLateFeeRule(ctx)
}

func (svc *Service) SetLateFeeRule(ctx context.Context, rule LateFeeRule) (LateFeeRule, error) {
	rule, err := svc.repo.SaveLateFeeRule(ctx, rule)
	if err != nil {
		return LateFeeRule{}, errors.Wrap(err, "saving late fee rule")
	}
	svc.changed()
	return rule, nil
}

// Reminders

type reminderData struct {
	Name        string
	QRID        string
	Class       string
	Outstanding string
	AsOf        string
	FirstUnpaid string
	DaysOverdue int
}

// SendDuesReminders emails every defaulter of the class (all classes when empty) that has an email address.
// It returns the number of reminders sent.
func (svc *Service) SendDuesReminders(ctx context.Context, now time.Time, class string) (int, error) {
	defaulters, err := svc.Defaulters(ctx, now, class, "")
	if err != nil {
		return 0, err
	}

	msgs := make([]*core.EmailMessage, 0, len(defaulters))
	for _, d := range defaulters {
		if d.Student.Email == "" {
			continue
		}
		to, err := mail.ParseAddress(d.Student.Email)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("skipping reminder for %s: invalid email %q", d.Student.QRID, d.Student.Email), err)
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{*to},
			Subject:      "Fee dues reminder for " + d.Student.Name,
			TemplateName: "dues_reminder",
			TemplateData: reminderData{
				Name:        d.Student.Name,
				QRID:        d.Student.QRID,
				Class:       d.Student.Class,
				Outstanding: d.Outstanding.StringFixed(2),
				AsOf:        now.In(svc.loc).Format("02 Jan 2006"),
				FirstUnpaid: d.FirstUnpaid.String(),
				DaysOverdue: d.DaysOverdue,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	svc.logger.Info(fmt.Sprintf("%d dues reminder(s) queued", len(msgs)))
	return len(msgs), nil
}

type SessionSummary struct {
	AsOf        time.Time       `json:"as_of"`
	Students    int             `json:"students"`
	Outstanding decimal.Decimal `json:"outstanding_balance"`
}

// SessionTotals sums the outstanding balance of every student at `now`.
func (svc *Service) SessionTotals(ctx context.Context, now time.Time) (SessionSummary, error) {
	all, fc, err := svc.reportInputs(ctx, "")
	if err != nil {
		return SessionSummary{}, err
	}
	sum := SessionSummary{AsOf: now.In(svc.loc), Students: len(all), Outstanding: decimal.Zero}
	for _, st := range all {
		sum.Outstanding = sum.Outstanding.Add(ComputeStudentFinancials(st, fc, now).Outstanding)
	}
	return sum, nil
}

// SortedStudentIDs returns the QR ids of all students, sorted.
func (svc *Service) SortedStudentIDs(ctx context.Context) ([]string, error) {
	students, err := svc.repo.QueryStudents(ctx, StudentFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.QRID)
	}
	sort.Strings(ids)
	return ids, nil
}
