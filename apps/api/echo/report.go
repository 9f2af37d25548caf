package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/core/fee"
)

type remindResponse struct {
	Sent int `json:"sent"`
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := newFeeApi(deps)

	rg := g.Group("/reports", jwt, adminMiddleware())
	rg.GET("/dues", api.duesReport)
	rg.GET("/defaulters", api.defaultersReport)
	rg.POST("/defaulters/remind", api.remindDefaulters)
	rg.GET("/discount-summary", api.discountSummaryReport)
	rg.GET("/headwise-collection", api.headwiseCollectionReport)
	rg.GET("/day-book", api.dayBookReport)
	rg.GET("/class-strength", api.classStrengthReport)
	rg.GET("/summary", api.summaryReport)
}

func (api *feeApi) duesReport(ctx echo.Context) error {
	asOf, err := api.asOf(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.DuesList(ctx.Request().Context(), asOf, ctx.QueryParam("class"))
	if err != nil {
		return errors.Wrap(err, "listing dues")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *feeApi) defaultersReport(ctx echo.Context) error {
	asOf, err := api.asOf(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.Defaulters(ctx.Request().Context(), asOf, ctx.QueryParam("class"), ctx.QueryParam("bucket"))
	if err != nil {
		return errors.Wrap(err, "listing defaulters")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *feeApi) remindDefaulters(ctx echo.Context) error {
	asOf, err := api.asOf(ctx)
	if err != nil {
		return err
	}
	sent, err := api.svc.SendDuesReminders(ctx.Request().Context(), asOf, ctx.QueryParam("class"))
	if err != nil {
		return errors.Wrap(err, "sending dues reminders")
	}
	return ctx.JSON(http.StatusAccepted, remindResponse{Sent: sent})
}

func (api *feeApi) discountSummaryReport(ctx echo.Context) error {
	rows, err := api.svc.DiscountSummary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summarizing discounts")
	}
	return ctx.JSON(http.StatusOK, rows)
}

// headwiseCollectionReport covers ?from through the whole ?to day. The range defaults to the current session up to now.
func (api *feeApi) headwiseCollectionReport(ctx echo.Context) error {
	loc := api.svc.Location()
	now := api.svc.Now()
	sessionStart := fee.AcademicSession(now)[0].Start(loc)

	from, err := queryDate(ctx, "from", loc, sessionStart)
	if err != nil {
		return err
	}
	to := now
	if ctx.QueryParam("to") != "" {
		if to, err = queryDate(ctx, "to", loc, now); err != nil {
			return err
		}
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	rows, err := api.svc.HeadwiseCollection(ctx.Request().Context(), from, to)
	if err != nil {
		return errors.Wrap(err, "computing headwise collection")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *feeApi) dayBookReport(ctx echo.Context) error {
	day, err := queryDate(ctx, "date", api.svc.Location(), api.svc.Now())
	if err != nil {
		return err
	}
	rep, err := api.svc.DayBook(ctx.Request().Context(), day)
	if err != nil {
		return errors.Wrap(err, "building day book")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *feeApi) classStrengthReport(ctx echo.Context) error {
	rows, err := api.svc.ClassStrength(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting class strength")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *feeApi) summaryReport(ctx echo.Context) error {
	asOf, err := api.asOf(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.SessionTotals(ctx.Request().Context(), asOf)
	if err != nil {
		return errors.Wrap(err, "summarizing outstanding balances")
	}
	return ctx.JSON(http.StatusOK, sum)
}
