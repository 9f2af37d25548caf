package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/feeportal/apps/api/echo"
	"github.com/trezcool/feeportal/core/fee"
	"github.com/trezcool/feeportal/storage/database"
)

func (cli *commandLine) ledger(ctx context.Context, qrID string, now time.Time) error {
	fin, err := cli.feeSvc.Financials(ctx, qrID, now)
	if err != nil {
		if errors.Cause(err) == fee.ErrStudentNotFound {
			return cli.unknownStudent(ctx, qrID)
		}
		return err
	}
	if !cli.tty {
		return cli.writeJSON(fin)
	}

	if fin.NoFeeStructure {
		fmt.Fprintf(cli.out, "%s: no fee structure for the student's class\n", fin.QRID)
		return nil
	}
	rows := make([][]string, 0, len(fin.Months))
	for _, m := range fin.Months {
		rows = append(rows, []string{
			m.String(),
			m.DueDate.Format(dateLayout),
			amount(m.DueAmount),
			amount(m.LateFee),
			amount(m.Paid),
			amount(m.Balance),
			string(m.Status),
		})
	}
	if err = cli.writeTable([]string{"MONTH", "DUE DATE", "DUE", "LATE FEE", "PAID", "BALANCE", "STATUS"}, rows); err != nil {
		return err
	}
	fmt.Fprintln(cli.out)
	return cli.writeTable([]string{"", ""}, [][]string{
		{"Dues to date", amount(fin.TotalDuesToDate)},
		{"Additional fees", amount(fin.TotalAdditionalFees)},
		{"Waived", amount(fin.TotalWaived)},
		{"Paid", amount(fin.TotalPaid)},
		{"Unapplied", amount(fin.Unapplied)},
		{"Outstanding", amount(fin.Outstanding)},
	})
}

func (cli *commandLine) dues(ctx context.Context, now time.Time, class string) error {
	dues, err := cli.feeSvc.DuesList(ctx, now, class)
	if err != nil {
		return err
	}
	if !cli.tty {
		return cli.writeJSON(dues)
	}

	rows := make([][]string, 0, len(dues))
	for _, d := range dues {
		rows = append(rows, []string{d.Student.QRID, d.Student.Name, d.Student.Class, amount(d.Dues)})
	}
	return cli.writeTable([]string{"QR ID", "NAME", "CLASS", "DUES"}, rows)
}

func (cli *commandLine) defaulters(ctx context.Context, now time.Time, class, bucket string) error {
	defaulters, err := cli.feeSvc.Defaulters(ctx, now, class, bucket)
	if err != nil {
		return err
	}
	if !cli.tty {
		return cli.writeJSON(defaulters)
	}

	rows := make([][]string, 0, len(defaulters))
	for _, d := range defaulters {
		rows = append(rows, []string{
			d.Student.QRID,
			d.Student.Name,
			d.Student.Class,
			amount(d.Outstanding),
			d.FirstUnpaid.String(),
			strconv.Itoa(d.DaysOverdue),
			d.Bucket,
		})
	}
	return cli.writeTable([]string{"QR ID", "NAME", "CLASS", "OUTSTANDING", "FIRST UNPAID", "DAYS", "BUCKET"}, rows)
}

func (cli *commandLine) remind(ctx context.Context, class string) error {
	sent, err := cli.feeSvc.SendDuesReminders(ctx, cli.feeSvc.Now(), class)
	if err != nil {
		return err
	}
	// messages are sent in the background; do not exit before they are out
	if w, ok := cli.mailSvc.(interface{ Wait() }); ok {
		w.Wait()
	}
	fmt.Fprintf(cli.out, "%d reminder(s) sent\n", sent)
	return nil
}

func (cli *commandLine) token(ctx context.Context, subject, role string) error {
	name := subject
	if role == echoapi.RoleStudent {
		st, err := cli.feeSvc.Student(ctx, subject)
		if err != nil {
			if errors.Cause(err) == fee.ErrStudentNotFound {
				return cli.unknownStudent(ctx, subject)
			}
			return err
		}
		subject, name = st.QRID, st.Name
	}

	claims, err := echoapi.NewClaims(subject, name, role, cli.conf)
	if err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(claims, cli.conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) seed(ctx context.Context) error {
	if err := database.Seed(ctx, cli.repo, cli.feeSvc.Now()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "sample data loaded")
	return nil
}
