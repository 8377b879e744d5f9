package echoapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/gradeimport"
	"github.com/trezcool/masomo-grading/core/ranking"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

const importFileField = "file"

type (
	ReconcileRequest struct {
		Grades []grade.Incoming `json:"grades" validate:"required"`
	}

	gradeApi struct {
		schools    school.Repository
		resolver   *subject.Resolver
		reconciler *grade.Reconciler
		importer   *gradeimport.Importer
		ranking    *ranking.Service
		validate   *validator.Validate
	}
)

func registerGradeAPI(g *echo.Group, deps ServerDeps) {
	api := gradeApi{
		schools:    deps.Schools,
		resolver:   deps.Resolver,
		reconciler: deps.Reconciler,
		importer:   deps.Importer,
		ranking:    deps.Ranking,
		validate:   deps.Validate,
	}

	cg := g.Group("/classes/:classID")
	cg.GET("/subjects", api.subjects)
	cg.POST("/grades", api.reconcile)
	cg.POST("/grades/import", api.importFile)
	cg.GET("/summaries", api.summaries)
	cg.POST("/summaries", api.refreshSummaries)
}

// Handlers

func (api *gradeApi) subjects(ctx echo.Context) error {
	class, err := api.schools.GetClass(ctx.Request().Context(), ctx.Param("classID"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	subjects, err := api.resolver.Resolve(ctx.Request().Context(), class.Grade, class.Track)
	if err != nil {
		return errors.Wrap(err, "resolving subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *gradeApi) reconcile(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.validate)
	if err != nil {
		return err
	}
	var data ReconcileRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReconcileRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.reconciler.Reconcile(ctx.Request().Context(), ctx.Param("classID"), period, data.Grades)
	if err != nil {
		return errors.Wrap(err, "reconciling grades")
	}
	return ctx.JSON(http.StatusOK, res)
}

// importFile accepts the sheet either as a multipart `file` or as a raw text/csv body.
func (api *gradeApi) importFile(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.validate)
	if err != nil {
		return err
	}

	var src io.Reader
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := ctx.FormFile(importFileField)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: importFileField, Error: "a CSV file is required"})
		}
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer func() { _ = f.Close() }()
		src = f
	} else {
		src = ctx.Request().Body
	}

	table, err := gradeimport.ReadCSV(src)
	if err != nil {
		return err
	}
	res, err := api.importer.Import(ctx.Request().Context(), ctx.Param("classID"), period, table)
	if err != nil {
		return errors.Wrap(err, "importing grades")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradeApi) summaries(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.validate)
	if err != nil {
		return err
	}
	summaries, err := api.ranking.ListSummaries(ctx.Request().Context(), ctx.Param("classID"), period)
	if err != nil {
		return errors.Wrap(err, "listing summaries")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *gradeApi) refreshSummaries(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.validate)
	if err != nil {
		return err
	}
	summaries, err := api.ranking.RefreshSummaries(ctx.Request().Context(), ctx.Param("classID"), period)
	if err != nil {
		return errors.Wrap(err, "refreshing summaries")
	}
	return ctx.JSON(http.StatusOK, summaries)
}
