package echoapi

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
)

// PeriodQuery is the `?month=MARCH&year=2024` query of the monthly endpoints.
// month accepts names, 3-letter abbreviations and numbers.
type PeriodQuery struct {
	Month string `json:"month" validate:"required,month_name"`
	Year  string `json:"year" validate:"required,numeric"`
}

func (q *PeriodQuery) Bind(ctx echo.Context) {
	q.Month = strings.TrimSpace(ctx.QueryParam("month"))
	q.Year = strings.TrimSpace(ctx.QueryParam("year"))
}

func (q PeriodQuery) Period(validate *validator.Validate) (core.Period, error) {
	if err := validate.Struct(q); err != nil {
		return core.Period{}, err
	}
	month, err := core.ParseMonth(q.Month)
	if err != nil {
		return core.Period{}, core.NewValidationError(err, core.FieldError{Field: "month", Error: err.Error()})
	}
	year, err := strconv.Atoi(q.Year)
	if err != nil {
		return core.Period{}, core.NewValidationError(err, core.FieldError{Field: "year", Error: "invalid year"})
	}
	return core.NewPeriod(month, year), nil
}

func bindPeriod(ctx echo.Context, validate *validator.Validate) (core.Period, error) {
	var q PeriodQuery
	q.Bind(ctx)
	period, err := q.Period(validate)
	if err != nil {
		return period, errors.Wrap(err, "binding period")
	}
	return period, nil
}

// optionalMonth parses the optional month query param; 0 when absent.
func optionalMonth(ctx echo.Context) (int, error) {
	val := strings.TrimSpace(ctx.QueryParam("month"))
	if val == "" {
		return 0, nil
	}
	month, err := core.ParseMonth(val)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: "month", Error: "invalid month"})
	}
	return int(month), nil
}

func intParam(ctx echo.Context, name string) (int, error) {
	val, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a number"})
	}
	return val, nil
}
