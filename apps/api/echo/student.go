package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/core/fee"
)

type feeApi struct {
	svc        *fee.Service
	validate   *validator.Validate
	translator ut.Translator
}

func newFeeApi(deps *Deps) *feeApi {
	return &feeApi{
		svc:        deps.FeeSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := newFeeApi(deps)

	sg := g.Group("/students", jwt)
	sg.GET("", api.queryStudents, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:qr_id")
	dg.GET("", api.retrieveStudent, selfOrAdminMiddleware())
	dg.GET("/financials", api.financials, selfOrAdminMiddleware())
	dg.POST("/payments", api.recordPayment, adminMiddleware())
	dg.POST("/additional-fees", api.issueAdditionalFee, adminMiddleware())
	dg.POST("/waivers", api.grantWaiver, adminMiddleware())
	dg.PUT("/discounts", api.assignDiscounts, adminMiddleware())
	dg.PUT("/transport", api.assignTransport, adminMiddleware())
}

// Handlers

func (api *feeApi) queryStudents(ctx echo.Context) error {
	var filter fee.StudentFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StudentFilter")
	}
	students, err := api.svc.Students(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *feeApi) retrieveStudent(ctx echo.Context) error {
	st, err := api.svc.Student(ctx.Request().Context(), ctx.Param("qr_id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *feeApi) financials(ctx echo.Context) error {
	asOf, err := api.asOf(ctx)
	if err != nil {
		return err
	}
	fin, err := api.svc.Financials(ctx.Request().Context(), ctx.Param("qr_id"), asOf)
	if err != nil {
		return errors.Wrap(err, "computing financials")
	}
	return ctx.JSON(http.StatusOK, fin)
}

func (api *feeApi) recordPayment(ctx echo.Context) error {
	var data fee.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	data.QRID = ctx.Param("qr_id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *feeApi) issueAdditionalFee(ctx echo.Context) error {
	var data fee.NewAdditionalFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdditionalFee")
	}
	data.QRID = ctx.Param("qr_id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	af, err := api.svc.IssueAdditionalFee(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "issuing additional fee")
	}
	return ctx.JSON(http.StatusCreated, af)
}

func (api *feeApi) grantWaiver(ctx echo.Context) error {
	var data fee.NewWaiver
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWaiver")
	}
	data.QRID = ctx.Param("qr_id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	w, err := api.svc.GrantWaiver(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "granting waiver")
	}
	return ctx.JSON(http.StatusCreated, w)
}

func (api *feeApi) assignDiscounts(ctx echo.Context) error {
	var data fee.AssignDiscounts
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignDiscounts")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.svc.AssignDiscounts(ctx.Request().Context(), ctx.Param("qr_id"), data.DiscountCategoryIDs)
	if err != nil {
		return errors.Wrap(err, "assigning discounts")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *feeApi) assignTransport(ctx echo.Context) error {
	var data fee.AssignTransport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTransport")
	}

	st, err := api.svc.AssignTransport(ctx.Request().Context(), ctx.Param("qr_id"), data.TransportRouteID)
	if err != nil {
		return errors.Wrap(err, "assigning transport route")
	}
	return ctx.JSON(http.StatusOK, st)
}
