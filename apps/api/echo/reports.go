package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/report"
)

type reportApi struct {
	svc      *report.Service
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, deps ServerDeps) {
	api := reportApi{
		svc:      deps.Reports,
		validate: deps.Validate,
	}

	cg := g.Group("/classes/:classID")
	cg.GET("/grid", api.grid)
	cg.GET("/monthly-report", api.monthly)
	cg.GET("/statistics", api.statistics)
	cg.GET("/tracking-book", api.trackingBook)

	g.GET("/grades/:grade/report", api.gradeWide)
}

// Handlers

func (api *reportApi) grid(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.validate)
	if err != nil {
		return err
	}
	rep, err := api.svc.Grid(ctx.Request().Context(), ctx.Param("classID"), period)
	if err != nil {
		return errors.Wrap(err, "rendering grid")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) monthly(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.validate)
	if err != nil {
		return err
	}
	rep, err := api.svc.MonthlyReport(ctx.Request().Context(), ctx.Param("classID"), period)
	if err != nil {
		return errors.Wrap(err, "rendering monthly report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) statistics(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.validate)
	if err != nil {
		return err
	}
	stats, err := api.svc.Statistics(ctx.Request().Context(), ctx.Param("classID"), period)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reportApi) trackingBook(ctx echo.Context) error {
	year, err := strconv.Atoi(strings.TrimSpace(ctx.QueryParam("year")))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "year", Error: "a valid year is required"})
	}
	month, err := optionalMonth(ctx)
	if err != nil {
		return err
	}
	filter := report.TrackingFilter{
		Year:      year,
		Month:     time.Month(month),
		SubjectID: strings.TrimSpace(ctx.QueryParam("subject_id")),
	}

	book, err := api.svc.TrackingBook(ctx.Request().Context(), ctx.Param("classID"), filter)
	if err != nil {
		return errors.Wrap(err, "rendering tracking book")
	}
	return ctx.JSON(http.StatusOK, book)
}

func (api *reportApi) gradeWide(ctx echo.Context) error {
	gradeLevel, err := intParam(ctx, "grade")
	if err != nil {
		return err
	}
	period, err := bindPeriod(ctx, api.validate)
	if err != nil {
		return err
	}
	rep, err := api.svc.GradeReport(ctx.Request().Context(), gradeLevel, period)
	if err != nil {
		return errors.Wrap(err, "rendering grade report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
