package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/fee"
)

const dateLayout = "2006-01-02"

var (
	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need the postgres store (fees.storage=postgres)")
)

type commandLine struct {
	conf    *core.Config
	db      *sql.DB // nil with the in-memory store
	repo    fee.Repository
	feeSvc  *fee.Service
	mailSvc core.EmailService
	out     io.Writer
	tty     bool // render tables instead of JSON
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                             - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	fmt.Fprintln(cli.out, "  ledger -student QR_ID [-as-of YYYY-MM-DD]          - print a student's monthly ledger")
	fmt.Fprintln(cli.out, "  dues [-class CLASS] [-as-of YYYY-MM-DD]            - list students with outstanding dues")
	fmt.Fprintln(cli.out, "  defaulters [-class CLASS] [-bucket BUCKET] [-as-of] - list overdue students by aging bucket")
	fmt.Fprintln(cli.out, "  remind [-class CLASS]                              - email dues reminders to defaulters")
	fmt.Fprintln(cli.out, "  token -subject SUBJECT -role admin|student         - issue an API token")
	fmt.Fprintln(cli.out, "  seed                                               - load the sample data")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()
	cmdArgs := args[2:]

	switch args[1] {
	case "migrate":
		if len(cmdArgs) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(cmdArgs)

	case "ledger":
		cmd := cli.newFlagSet("ledger")
		qrID := cmd.String("student", "", "The student's QR id.")
		asOf := cmd.String("as-of", "", "Compute the ledger at this date (YYYY-MM-DD). Defaults to now.")
		if err := parse(cmd, cmdArgs); err != nil {
			return err
		}
		if *qrID == "" {
			cmd.Usage()
			return errHelp
		}
		now, err := cli.parseDate(*asOf)
		if err != nil {
			return err
		}
		return cli.ledger(ctx, *qrID, now)

	case "dues":
		cmd := cli.newFlagSet("dues")
		class := cmd.String("class", "", "Only list students of this class.")
		asOf := cmd.String("as-of", "", "Compute dues at this date (YYYY-MM-DD). Defaults to now.")
		if err := parse(cmd, cmdArgs); err != nil {
			return err
		}
		now, err := cli.parseDate(*asOf)
		if err != nil {
			return err
		}
		return cli.dues(ctx, now, *class)

	case "defaulters":
		cmd := cli.newFlagSet("defaulters")
		class := cmd.String("class", "", "Only list students of this class.")
		bucket := cmd.String("bucket", "", "Only list this aging bucket, e.g. \"90+ Days\".")
		asOf := cmd.String("as-of", "", "Compute aging at this date (YYYY-MM-DD). Defaults to now.")
		if err := parse(cmd, cmdArgs); err != nil {
			return err
		}
		now, err := cli.parseDate(*asOf)
		if err != nil {
			return err
		}
		return cli.defaulters(ctx, now, *class, *bucket)

	case "remind":
		cmd := cli.newFlagSet("remind")
		class := cmd.String("class", "", "Only remind students of this class.")
		if err := parse(cmd, cmdArgs); err != nil {
			return err
		}
		return cli.remind(ctx, *class)

	case "token":
		cmd := cli.newFlagSet("token")
		subject := cmd.String("subject", "", "The token subject: the QR id of a student, any name for an admin.")
		role := cmd.String("role", "admin", "admin or student.")
		if err := parse(cmd, cmdArgs); err != nil {
			return err
		}
		if *subject == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.token(ctx, *subject, *role)

	case "seed":
		return cli.seed(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	cmd := flag.NewFlagSet(name, flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	return cmd
}

func parse(cmd *flag.FlagSet, args []string) error {
	if err := cmd.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

// parseDate parses a YYYY-MM-DD date in the fee time zone; empty means now.
func (cli *commandLine) parseDate(s string) (time.Time, error) {
	if s == "" {
		return cli.feeSvc.Now(), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, cli.feeSvc.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
