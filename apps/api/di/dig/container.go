package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/feeportal/apps/api/echo"
	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/fee"
	emailsvc "github.com/trezcool/feeportal/services/email"
	logsvc "github.com/trezcool/feeportal/services/logger"
	"github.com/trezcool/feeportal/storage/database"
	inmemdb "github.com/trezcool/feeportal/storage/database/inmem"
	sqlxrepos "github.com/trezcool/feeportal/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Store is the fee repository picked by `fees.storage`. DB is nil for the in-memory store.
type Store struct {
	Repo fee.Repository
	DB   *sqlx.DB
}

func (s Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) Store {
	setUp := func(ctx context.Context) (Store, error) {
		switch conf.Fees.Storage {
		case "memory":
			db, err := inmemdb.Open()
			if err != nil {
				return Store{}, err
			}
			return Store{Repo: inmemdb.NewFeeRepository(db)}, nil
		case "postgres":
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return Store{}, err
			}
			db, err := database.Open(conf)
			if err != nil {
				return Store{}, err
			}
			if err = database.Ping(ctx, db.DB); err != nil {
				return Store{}, err
			}
			if err = database.Migrate(db.DB); err != nil {
				return Store{}, err
			}
			return Store{Repo: sqlxrepos.NewFeeRepository(db), DB: db}, nil
		}
		return Store{}, errors.Errorf("unknown fee storage %q", conf.Fees.Storage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := setUp(ctx)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s store: %v", conf.Fees.Storage, err), err)
	}
	if conf.Fees.Seed {
		if err = database.Seed(ctx, store.Repo, fee.NowFunc()); err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("seeding store: %v", err), err)
		}
		loggerParam.Logger.Info("store seeded with sample data")
	}
	return store
}

func newFeeRepository(store Store) fee.Repository {
	return store.Repo
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)
	return validate
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	feeSvc *fee.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	return echoapi.NewServer(conf.Server.Address, shutdown, &echoapi.Deps{
		Conf:       conf,
		Logger:     logger,
		FeeSvc:     feeSvc,
		Validate:   validate,
		Translator: translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newFeeRepository))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(fee.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
