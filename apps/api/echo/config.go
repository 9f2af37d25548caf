package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/core/fee"
)

// registerConfigAPI registers the fee configuration endpoints. All of them are admin only.
func registerConfigAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := newFeeApi(deps)
	admin := adminMiddleware()

	hg := g.Group("/fee-heads", jwt, admin)
	hg.GET("", api.queryFeeHeads)
	hg.POST("", api.saveFeeHead)
	hg.DELETE("/:id", api.deleteFeeHead)

	fg := g.Group("/fee-structures", jwt, admin)
	fg.GET("", api.queryFeeStructures)
	fg.PUT("/:class", api.saveFeeStructure)

	dg := g.Group("/discounts", jwt, admin)
	dg.GET("", api.queryDiscounts)
	dg.POST("", api.saveDiscount)
	dg.DELETE("/:id", api.deleteDiscount)

	rg := g.Group("/transport-routes", jwt, admin)
	rg.GET("", api.queryTransportRoutes)
	rg.POST("", api.saveTransportRoute)
	rg.DELETE("/:id", api.deleteTransportRoute)

	lg := g.Group("/late-fee-rule", jwt, admin)
	lg.GET("", api.retrieveLateFeeRule)
	lg.PUT("", api.setLateFeeRule)
}

// Fee heads

func (api *feeApi) queryFeeHeads(ctx echo.Context) error {
	heads, err := api.svc.FeeHeads(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying fee heads")
	}
	return ctx.JSON(http.StatusOK, heads)
}

func (api *feeApi) saveFeeHead(ctx echo.Context) error {
	var data fee.FeeHead
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeeHead")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	head, err := api.svc.SaveFeeHead(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving fee head")
	}
	return ctx.JSON(http.StatusOK, head)
}

func (api *feeApi) deleteFeeHead(ctx echo.Context) error {
	if err := api.svc.DeleteFeeHead(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting fee head")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Fee structures

func (api *feeApi) queryFeeStructures(ctx echo.Context) error {
	structures, err := api.svc.FeeStructures(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying fee structures")
	}
	return ctx.JSON(http.StatusOK, structures)
}

func (api *feeApi) saveFeeStructure(ctx echo.Context) error {
	var data fee.ClassFeeStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassFeeStructure")
	}
	data.Class = ctx.Param("class")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.SaveFeeStructure(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving fee structure")
	}
	return ctx.JSON(http.StatusOK, s)
}

// Discount categories

func (api *feeApi) queryDiscounts(ctx echo.Context) error {
	discounts, err := api.svc.Discounts(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying discounts")
	}
	return ctx.JSON(http.StatusOK, discounts)
}

func (api *feeApi) saveDiscount(ctx echo.Context) error {
	var data fee.DiscountCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DiscountCategory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.SaveDiscount(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving discount")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *feeApi) deleteDiscount(ctx echo.Context) error {
	if err := api.svc.DeleteDiscount(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting discount")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Transport routes

func (api *feeApi) queryTransportRoutes(ctx echo.Context) error {
	routes, err := api.svc.TransportRoutes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying transport routes")
	}
	return ctx.JSON(http.StatusOK, routes)
}

func (api *feeApi) saveTransportRoute(ctx echo.Context) error {
	var data fee.TransportRoute
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransportRoute")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.SaveTransportRoute(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving transport route")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *feeApi) deleteTransportRoute(ctx echo.Context) error {
	if err := api.svc.DeleteTransportRoute(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting transport route")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Late fee rule

func (api *feeApi) retrieveLateFeeRule(ctx echo.Context) error {
	rule, err := api.svc.LateFeeRule(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting late fee rule")
	}
	if rule == nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, rule)
}

func (api *feeApi) setLateFeeRule(ctx echo.Context) error {
	var data fee.LateFeeRule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LateFeeRule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rule, err := api.svc.SetLateFeeRule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "setting late fee rule")
	}
	return ctx.JSON(http.StatusOK, rule)
}
