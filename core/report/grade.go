package report

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/aggregate"
	"github.com/trezcool/masomo-grading/core/attendance"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

// GradeReport is the grade-wide monthly report. Subjects holds every track's columns;
// a student's cells outside their class track are not applicable.
type GradeReport struct {
	Grade    int             `json:"grade"`
	Period   core.Period     `json:"period"`
	Band     string          `json:"band"`
	Classes  []school.Class  `json:"classes"`
	Subjects []SubjectColumn `json:"subjects"`
	Rows     []Row           `json:"rows"`
}

// GradeReport renders every class of the grade for the period, ranked as one cohort.
// Each student is aggregated over the subjects of their own class track only.
func (svc *Service) GradeReport(ctx context.Context, gradeLevel int, period core.Period) (GradeReport, error) {
	if err := validatePeriod(period); err != nil {
		return GradeReport{}, err
	}
	band := aggregate.ReportGradeBand
	rep := GradeReport{Grade: gradeLevel, Period: period, Band: band.Name, Classes: []school.Class{}, Subjects: []SubjectColumn{}, Rows: []Row{}}

	classes, err := svc.schools.ListClasses(ctx, school.ClassFilter{Grade: gradeLevel})
	if err != nil {
		return rep, errors.Wrap(err, "listing classes")
	}
	if len(classes) == 0 {
		return rep, nil
	}
	rep.Classes = classes

	// subject columns are resolved once per grade
	cols, err := svc.resolver.ResolveAll(ctx, gradeLevel)
	if err != nil {
		return rep, errors.Wrap(err, "resolving subjects")
	}
	rep.Subjects = columns(cols)

	classIDs := make([]string, 0, len(classes))
	byID := make(map[string]school.Class, len(classes))
	for _, c := range classes {
		classIDs = append(classIDs, c.ID)
		byID[c.ID] = c
	}

	var (
		students []school.Student
		records  []grade.Record
		facts    []attendance.Fact
	)
	from, to := attendance.MonthSpan(period)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = svc.schools.ListStudents(gctx, classIDs...)
		return errors.Wrap(err, "listing students")
	})
	g.Go(func() (err error) {
		records, err = svc.grades.QueryRecords(gctx, grade.Filter{ClassIDs: classIDs, Year: period.Year, Month: period.Month})
		return errors.Wrap(err, "querying grade records")
	})
	g.Go(func() (err error) {
		facts, err = svc.attendance.ListAttendance(gctx, attendance.Filter{ClassIDs: classIDs, From: from, To: to})
		return errors.Wrap(err, "listing attendance")
	})
	if err = g.Wait(); err != nil {
		return rep, err
	}

	eligible := make(map[subject.Track][]subject.Subject)
	scores := grade.ScoresByStudent(records)
	presence := attendance.Summarize(facts)
	rep.Rows = make([]Row, 0, len(students))
	for _, st := range students {
		class := byID[st.ClassID]
		subjects, ok := eligible[class.Track]
		if !ok {
			subjects = subject.FilterEligible(cols, gradeLevel, class.Track)
			eligible[class.Track] = subjects
		}
		row := buildRow(studentRef(st, class.Name), cols, subjects, scores[st.ID], band)
		row.Attendance = attendanceCounts(presence, st.ID)
		rep.Rows = append(rep.Rows, row)
	}
	rankRows(rep.Rows)
	return rep, nil
}
