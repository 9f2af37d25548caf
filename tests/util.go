package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/fee"
	"github.com/trezcool/feeportal/services/email"
	"github.com/trezcool/feeportal/services/logger"
	"github.com/trezcool/feeportal/storage/database"
	"github.com/trezcool/feeportal/storage/database/inmem"
)

// Now is the instant the fixtures are built around: May 20th, 2024, during the 2024-25 session.
var Now = time.Date(2024, time.May, 20, 10, 0, 0, 0, time.UTC)

// NewConfig loads the TEST configuration.
func NewConfig() *core.Config {
	if os.Getenv("ENV") == "" {
		_ = os.Setenv("ENV", "TEST")
	}
	conf := core.NewConfig()
	conf.Fees.Timezone = "UTC"
	conf.Fees.Allocation = "targeted"
	return conf
}

// Deps bundles a fee service with its collaborators.
type Deps struct {
	Conf    *core.Config
	Repo    fee.Repository
	Mail    *emailsvc.ConsoleServiceMock
	Logger  *logsvc.LoggerMock
	Service *fee.Service
}

// NewInmemDeps builds a fee service over a seeded in-memory store, with fee.NowFunc frozen at Now.
func NewInmemDeps(t *testing.T) Deps {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	repo := inmemdb.NewFeeRepository(db)
	if err = database.Seed(context.Background(), repo, Now); err != nil {
		t.Fatalf("database.Seed(): %v", err)
	}
	return NewDeps(t, repo)
}

// NewDeps builds a fee service over repo.
func NewDeps(t *testing.T, repo fee.Repository) Deps {
	t.Helper()
	conf := NewConfig()
	logger := logsvc.NewLoggerMock()
	core.ParseEmailTemplates(conf, logger)
	mail := emailsvc.NewConsoleServiceMock(conf, logger)

	fee.NowFunc = func() time.Time { return Now }
	t.Cleanup(func() { fee.NowFunc = time.Now })

	return Deps{
		Conf:    conf,
		Repo:    repo,
		Mail:    mail,
		Logger:  logger,
		Service: fee.NewService(repo, mail, logger, conf),
	}
}

// NewValidator returns a validator with every app validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)
	return validate, translator
}

// OpenDB opens and migrates the postgres test database.
// The test is skipped unless TEST_DATABASE_HOST is set.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST is not set")
	}

	conf := NewConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("database.CreateIfNotExist(): %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open(): %v", err)
	}
	if err = database.Ping(ctx, db.DB); err != nil {
		t.Fatalf("database.Ping(): %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("database.Migrate(): %v", err)
	}
	ResetDB(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ResetDB empties every table.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	const q = `TRUNCATE fee_waivers, additional_fees, transactions, students,
		late_fee_rules, transport_routes, discount_categories, class_fee_structures, fee_heads`
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}
