package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/feeportal/core"
)

const dateLayout = "2006-01-02"

// queryDate parses the YYYY-MM-DD query param `name` as the start of that day in loc.
// def is returned when the param is absent.
func queryDate(ctx echo.Context, name string, loc *time.Location, def time.Time) (time.Time, error) {
	v := ctx.QueryParam(name)
	if v == "" {
		return def, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a date formatted as YYYY-MM-DD"})
	}
	return t, nil
}

// asOf returns the instant financials are computed at: the ?as_of date, or now.
func (api *feeApi) asOf(ctx echo.Context) (time.Time, error) {
	return queryDate(ctx, "as_of", api.svc.Location(), api.svc.Now())
}
