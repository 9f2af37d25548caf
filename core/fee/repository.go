package fee

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound        = errors.New("not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrFeeHeadInUse    = errors.New("fee head is used by a discount category")
	ErrDiscountInUse   = errors.New("discount category is assigned to students")
	ErrRouteInUse      = errors.New("transport route is assigned to students")
)

type (
	StudentFilter struct {
		Class  string   `query:"class"`
		QRIDs  []string `query:"qr_id"`
		Search string   `query:"search"` // case-insensitive match on name or QR id
	}

	TransactionFilter struct {
		QRID string
		From time.Time
		To   time.Time
	}

	// Repository is the persistence collaborator of the fee engine.
	// Save* methods are upserts keyed by the record's stable id, so retries are idempotent.
	Repository interface {
		GetStudent(ctx context.Context, qrID string) (Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		SaveStudent(ctx context.Context, st Student) (Student, error)

		QueryFeeHeads(ctx context.Context) ([]FeeHead, error)
		SaveFeeHead(ctx context.Context, head FeeHead) (FeeHead, error)
		DeleteFeeHead(ctx context.Context, id string) error

		QueryFeeStructures(ctx context.Context) ([]ClassFeeStructure, error)
		SaveFeeStructure(ctx context.Context, s ClassFeeStructure) (ClassFeeStructure, error)

		QueryDiscounts(ctx context.Context) ([]DiscountCategory, error)
		SaveDiscount(ctx context.Context, d DiscountCategory) (DiscountCategory, error)
		DeleteDiscount(ctx context.Context, id string) error

		QueryTransportRoutes(ctx context.Context) ([]TransportRoute, error)
		SaveTransportRoute(ctx context.Context, r TransportRoute) (TransportRoute, error)
		DeleteTransportRoute(ctx context.Context, id string) error

		// GetLateFeeRule returns nil when no rule is configured.
		GetLateFeeRule(ctx context.Context) (*LateFeeRule, error)
		SaveLateFeeRule(ctx context.Context, rule LateFeeRule) (LateFeeRule, error)

		// SaveTransaction stores a transaction once; saving an existing id returns the stored record untouched.
		SaveTransaction(ctx context.Context, t Transaction) (Transaction, error)
		QueryTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
		SaveAdditionalFee(ctx context.Context, af AdditionalFee) (AdditionalFee, error)
		SaveWaiver(ctx context.Context, w FeeWaiver) (FeeWaiver, error)

		// Snapshot reads every collection the engine needs.
		Snapshot(ctx context.Context) (ContextData, error)
	}
)
