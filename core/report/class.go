package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/aggregate"
	"github.com/trezcool/masomo-grading/core/attendance"
	"github.com/trezcool/masomo-grading/core/grade"
)

// Grid renders a class month graded with the grid band.
func (svc *Service) Grid(ctx context.Context, classID string, period core.Period) (ClassReport, error) {
	return svc.classReport(ctx, classID, period, aggregate.GridGradeBand, false)
}

// MonthlyReport renders a class month graded with the report band, with attendance for the calendar month.
func (svc *Service) MonthlyReport(ctx context.Context, classID string, period core.Period) (ClassReport, error) {
	return svc.classReport(ctx, classID, period, aggregate.ReportGradeBand, true)
}

func (svc *Service) classReport(
	ctx context.Context,
	classID string,
	period core.Period,
	band aggregate.Band,
	withAttendance bool,
) (ClassReport, error) {
	if err := validatePeriod(period); err != nil {
		return ClassReport{}, err
	}
	data, err := svc.loadClass(ctx, classID, grade.Filter{Year: period.Year, Month: period.Month})
	if err != nil {
		return ClassReport{}, err
	}

	var presence map[string]attendance.Summary
	if withAttendance {
		from, to := attendance.MonthSpan(period)
		facts, err := svc.attendance.ListAttendance(ctx, attendance.Filter{ClassIDs: []string{classID}, From: from, To: to})
		if err != nil {
			return ClassReport{}, errors.Wrap(err, "listing attendance")
		}
		presence = attendance.Summarize(facts)
	}

	scores := grade.ScoresByStudent(data.records)
	rows := make([]Row, 0, len(data.students))
	for _, st := range data.students {
		row := buildRow(studentRef(st, data.class.Name), data.subjects, data.subjects, scores[st.ID], band)
		if withAttendance {
			row.Attendance = attendanceCounts(presence, st.ID)
		}
		rows = append(rows, row)
	}
	rankRows(rows)

	return ClassReport{
		Class:    data.class,
		Period:   period,
		Band:     band.Name,
		Subjects: columns(data.subjects),
		Rows:     rows,
	}, nil
}
