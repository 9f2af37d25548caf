package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/fee"
	emailsvc "github.com/trezcool/feeportal/services/email"
	logsvc "github.com/trezcool/feeportal/services/logger"
	"github.com/trezcool/feeportal/storage/database"
	inmemdb "github.com/trezcool/feeportal/storage/database/inmem"
	sqlxrepos "github.com/trezcool/feeportal/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	rbLogger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	rbLogger.Enable(!conf.Debug && conf.RollbarToken != "")
	logger = rbLogger

	core.ParseEmailTemplates(conf, logger)

	cli := commandLine{
		conf: conf,
		out:  os.Stdout,
		tty:  term.IsTerminal(int(os.Stdout.Fd())),
	}

	// set up the store
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch conf.Fees.Storage {
	case "postgres":
		errAndDie(database.CreateIfNotExist(ctx, conf))
		db, err := database.Open(conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()
		errAndDie(database.Ping(ctx, db.DB))

		cli.db = db.DB
		cli.repo = sqlxrepos.NewFeeRepository(db)
	default:
		db, err := inmemdb.Open()
		errAndDie(err)
		cli.repo = inmemdb.NewFeeRepository(db)
		// an empty in-memory store is of no use to a one-shot command
		errAndDie(database.Seed(ctx, cli.repo, fee.NowFunc()))
	}

	cli.mailSvc = emailsvc.NewService(conf, logger)
	cli.feeSvc = fee.NewService(cli.repo, cli.mailSvc, logger, conf)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
