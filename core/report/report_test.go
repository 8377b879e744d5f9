package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/attendance"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/report"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
	"github.com/trezcool/masomo-grading/storage/database/inmem"
	"github.com/trezcool/masomo-grading/tests"
)

var march = core.NewPeriod(time.March, 2024)

type fixture struct {
	svc        *report.Service
	rec        *grade.Reconciler
	subjects   *inmemdb.SubjectRepository
	schools    *inmemdb.SchoolRepository
	attendance *inmemdb.AttendanceRepository
}

func setup(t *testing.T) *fixture {
	db := testutil.PrepareDB(t)
	f := &fixture{
		subjects:   inmemdb.NewSubjectRepository(db),
		schools:    inmemdb.NewSchoolRepository(db),
		attendance: inmemdb.NewAttendanceRepository(db),
	}
	gradeRepo := inmemdb.NewGradeRepository(db)
	validate, _ := testutil.NewValidator()
	f.rec = grade.NewReconciler(gradeRepo, f.subjects, f.schools, validate, testutil.NewLogger(t), 0)
	f.svc = report.NewService(f.schools, subject.NewResolver(f.subjects), gradeRepo, f.attendance)
	return f
}

func (f *fixture) grade(t *testing.T, classID string, period core.Period, in ...grade.Incoming) {
	res, err := f.rec.Reconcile(context.Background(), classID, period, in)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
}

func score(studentID, subjectID string, s float64) grade.Incoming {
	return grade.Incoming{StudentID: studentID, SubjectID: subjectID, Score: testutil.FloatPtr(s)}
}

// seedClass creates a grade 7 class of three students graded on two subjects:
// A: math 90, khmer 80; B: math 60; C: nothing.
func seedClass(t *testing.T, f *fixture) {
	testutil.CreateClass(t, f.schools, "c1", "7A", 7, subject.TrackNone)
	testutil.CreateStudent(t, f.schools, "a", "c1", "Ana", "Alpha", school.GenderFemale)
	testutil.CreateStudent(t, f.schools, "b", "c1", "Ben", "Bravo", school.GenderMale)
	testutil.CreateStudent(t, f.schools, "c", "c1", "Cleo", "Charlie", school.GenderFemale)
	testutil.CreateSubject(t, f.subjects, "math", "MATH", 7, subject.TrackNone, 100, 2)
	testutil.CreateSubject(t, f.subjects, "khm", "KHM", 7, subject.TrackNone, 100, 1)
	testutil.CreateSubject(t, f.subjects, "art", "ART", 7, subject.TrackNone, 100, 1, false)

	f.grade(t, "c1", march, score("a", "math", 90), score("a", "khm", 80), score("b", "math", 60))
}

type rowWant struct {
	id       string
	average  float64
	letter   string
	rank     int
	absences int
	perms    int
}

func checkRows(t *testing.T, rows []report.Row, want []rowWant, withAttendance bool) {
	t.Helper()
	require.Len(t, rows, len(want))
	for i, w := range want {
		row := rows[i]
		assert.Equal(t, w.id, row.Student.ID)
		assert.Equal(t, w.average, row.Average, w.id)
		assert.Equal(t, w.letter, row.LetterGrade, w.id)
		assert.Equal(t, w.rank, row.Rank, w.id)
		if withAttendance {
			require.NotNil(t, row.Attendance)
			assert.Equal(t, w.absences, row.Attendance.Absences, w.id)
			assert.Equal(t, w.perms, row.Attendance.Permissions, w.id)
		} else {
			assert.Nil(t, row.Attendance)
		}
	}
}

func TestService_MonthlyReport(t *testing.T) {
	f := setup(t)
	seedClass(t, f)
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	testutil.RecordAttendance(t, f.attendance, "a", "c1", day(time.March, 4), attendance.StatusAbsent)
	// stamped during the last day of the month
	testutil.RecordAttendance(t, f.attendance, "a", "c1", day(time.March, 31).Add(9*time.Hour+30*time.Minute), attendance.StatusAbsent)
	testutil.RecordAttendance(t, f.attendance, "a", "c1", day(time.April, 1), attendance.StatusAbsent)
	testutil.RecordAttendance(t, f.attendance, "b", "c1", day(time.March, 1), attendance.StatusPermission)
	testutil.RecordAttendance(t, f.attendance, "b", "c1", day(time.March, 5), attendance.StatusExcused)
	testutil.RecordAttendance(t, f.attendance, "b", "c1", day(time.March, 6), attendance.StatusLate)

	rep, err := f.svc.MonthlyReport(context.Background(), "c1", march)
	require.NoError(t, err)

	assert.Equal(t, "report", rep.Band)
	assert.Equal(t, march, rep.Period)
	require.Len(t, rep.Subjects, 2)
	assert.Equal(t, "KHM", rep.Subjects[0].Code)
	assert.Equal(t, 1, rep.Subjects[0].Order)
	assert.Equal(t, "MATH", rep.Subjects[1].Code)

	checkRows(t, rep.Rows, []rowWant{
		{id: "a", average: 56.67, letter: "A", rank: 1, absences: 2},
		{id: "b", average: 20, letter: "F", rank: 2, perms: 2},
		{id: "c", average: 0, letter: "F", rank: 3},
	}, true)

	for _, row := range rep.Rows {
		assert.Equal(t, 3.0, row.TotalCoefficient, "every student carries the full coefficient sum")
		assert.Equal(t, 200, row.TotalMaxScore)
	}

	a := rep.Rows[0]
	assert.Equal(t, 170.0, a.TotalScore)
	assert.Equal(t, "Alpha Ana", a.Student.Name)
	assert.Equal(t, "7A", a.Student.ClassName)
	require.Len(t, a.Cells, 2)
	assert.Equal(t, 80.0, *a.Cells[0].Score)
	assert.Equal(t, 80.0, a.Cells[0].Percentage)
	assert.Equal(t, "A", a.Cells[0].Level)
	assert.True(t, a.Cells[0].Applicable)

	b := rep.Rows[1]
	assert.Nil(t, b.Cells[0].Score)
	assert.Equal(t, -1.0, b.Cells[0].Percentage)
	assert.Equal(t, 60.0, b.Cells[1].Percentage)
}

func TestService_Grid(t *testing.T) {
	f := setup(t)
	seedClass(t, f)

	rep, err := f.svc.Grid(context.Background(), "c1", march)
	require.NoError(t, err)
	assert.Equal(t, "grid", rep.Band)
	checkRows(t, rep.Rows, []rowWant{
		{id: "a", average: 56.67, letter: "D", rank: 1},
		{id: "b", average: 20, letter: "F", rank: 2},
		{id: "c", average: 0, letter: "F", rank: 3},
	}, false)

	other, err := f.svc.Grid(context.Background(), "c1", core.NewPeriod(time.April, 2024))
	require.NoError(t, err)
	for _, row := range other.Rows {
		assert.Equal(t, 0.0, row.Average)
	}
}

func TestService_classReports_errors(t *testing.T) {
	f := setup(t)
	seedClass(t, f)
	ctx := context.Background()

	_, err := f.svc.Grid(ctx, "nope", march)
	assert.Equal(t, school.ErrClassNotFound, errors.Cause(err))
	_, err = f.svc.MonthlyReport(ctx, "nope", march)
	assert.Equal(t, school.ErrClassNotFound, errors.Cause(err))
	_, err = f.svc.Statistics(ctx, "nope", march)
	assert.Equal(t, school.ErrClassNotFound, errors.Cause(err))
	_, err = f.svc.TrackingBook(ctx, "nope", report.TrackingFilter{Year: 2024})
	assert.Equal(t, school.ErrClassNotFound, errors.Cause(err))

	_, err = f.svc.Grid(ctx, "c1", core.Period{Month: time.March})
	_, ok := errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok)
}

func seedGrade12(t *testing.T, f *fixture) {
	testutil.CreateClass(t, f.schools, "sci", "12 Science", 12, subject.TrackScience)
	testutil.CreateClass(t, f.schools, "soc", "12 Social", 12, subject.TrackSocial)
	testutil.CreateClass(t, f.schools, "g11", "11 Science", 11, subject.TrackScience)
	testutil.CreateStudent(t, f.schools, "sci1", "sci", "Sam", "Sci", school.GenderMale)
	testutil.CreateStudent(t, f.schools, "soc1", "soc", "Sue", "Soc", school.GenderFemale)
	testutil.CreateStudent(t, f.schools, "soc2", "soc", "Sid", "Zed", school.GenderMale)
	testutil.CreateSubject(t, f.subjects, "khm12", "KHM", 12, subject.TrackCommon, 100, 1)
	testutil.CreateSubject(t, f.subjects, "math12", "MATH", 12, subject.TrackNone, 100, 2)
	testutil.CreateSubject(t, f.subjects, "phy12", "PHY", 12, subject.TrackScience, 100, 2)
	testutil.CreateSubject(t, f.subjects, "hist12", "HIST", 12, subject.TrackSocial, 100, 1)

	f.grade(t, "sci", march, score("sci1", "khm12", 50), score("sci1", "math12", 50), score("sci1", "phy12", 50),
		// recorded on a subject outside the student's track: never counted
		score("sci1", "hist12", 100))
	f.grade(t, "soc", march, score("soc1", "khm12", 50), score("soc1", "math12", 50), score("soc1", "hist12", 50))
}

func TestService_GradeReport(t *testing.T) {
	f := setup(t)
	seedGrade12(t, f)

	rep, err := f.svc.GradeReport(context.Background(), 12, march)
	require.NoError(t, err)

	assert.Equal(t, 12, rep.Grade)
	assert.Equal(t, "report", rep.Band)
	require.Len(t, rep.Classes, 2)
	assert.Equal(t, "12 Science", rep.Classes[0].Name)

	codes := make([]string, 0, len(rep.Subjects))
	for _, col := range rep.Subjects {
		codes = append(codes, col.Code)
	}
	assert.Equal(t, []string{"KHM", "MATH", "PHY", "HIST"}, codes)

	require.Len(t, rep.Rows, 3)
	byID := make(map[string]report.Row, len(rep.Rows))
	for _, row := range rep.Rows {
		byID[row.Student.ID] = row
		require.Len(t, row.Cells, 4)
		require.NotNil(t, row.Attendance)
	}

	sci := byID["sci1"]
	assert.Equal(t, 5.0, sci.TotalCoefficient)
	assert.Equal(t, 150.0, sci.TotalScore)
	assert.Equal(t, 30.0, sci.Average)
	assert.Equal(t, "D", sci.LetterGrade)
	assert.Equal(t, 2, sci.Rank)
	assert.True(t, sci.Cells[2].Applicable)
	assert.False(t, sci.Cells[3].Applicable)
	assert.Nil(t, sci.Cells[3].Score)

	soc := byID["soc1"]
	assert.Equal(t, 4.0, soc.TotalCoefficient)
	assert.Equal(t, 37.5, soc.Average)
	assert.Equal(t, "C", soc.LetterGrade)
	assert.Equal(t, 1, soc.Rank)
	assert.False(t, soc.Cells[2].Applicable)
	assert.Equal(t, "12 Social", soc.Student.ClassName)

	zed := byID["soc2"]
	assert.Equal(t, 4.0, zed.TotalCoefficient)
	assert.Equal(t, 0.0, zed.Average)
	assert.Equal(t, 3, zed.Rank)
}

func TestService_GradeReport_empty(t *testing.T) {
	f := setup(t)
	seedGrade12(t, f)

	rep, err := f.svc.GradeReport(context.Background(), 9, march)
	require.NoError(t, err)
	assert.Empty(t, rep.Classes)
	assert.Empty(t, rep.Subjects)
	assert.Empty(t, rep.Rows)
}

func TestService_TrackingBook(t *testing.T) {
	f := setup(t)
	seedClass(t, f)
	jan := core.NewPeriod(time.January, 2024)
	f.grade(t, "c1", jan, score("a", "math", 80), score("a", "khm", 70))
	// march: a math 90, khm 80; b math 60 (from seedClass)
	f.grade(t, "c1", march, score("c", "khm", 40))
	f.grade(t, "c1", core.NewPeriod(time.March, 2023), score("c", "math", 100))

	tests := []struct {
		name       string
		filter     report.TrackingFilter
		wantMonths []time.Month
		wantCodes  []string
		want       []rowWant
	}{
		{
			name:       "whole year",
			filter:     report.TrackingFilter{Year: 2024},
			wantMonths: []time.Month{time.January, time.March},
			wantCodes:  []string{"KHM", "MATH"},
			// a: khm (70+80)/2 = 75, math (80+90)/2 = 85 -> 160/3
			want: []rowWant{
				{id: "a", average: 53.33, letter: "A", rank: 1},
				{id: "b", average: 20, letter: "F", rank: 2},
				{id: "c", average: 13.33, letter: "F", rank: 3},
			},
		},
		{
			name:       "single month",
			filter:     report.TrackingFilter{Year: 2024, Month: time.January},
			wantMonths: []time.Month{time.January},
			wantCodes:  []string{"KHM", "MATH"},
			want: []rowWant{
				{id: "a", average: 50, letter: "A", rank: 1},
				{id: "b", average: 0, letter: "F", rank: 0},
				{id: "c", average: 0, letter: "F", rank: 0},
			},
		},
		{
			name:       "single subject",
			filter:     report.TrackingFilter{Year: 2024, SubjectID: "math"},
			wantMonths: []time.Month{time.January, time.March},
			wantCodes:  []string{"MATH"},
			want: []rowWant{
				{id: "a", average: 42.5, letter: "B", rank: 1},
				{id: "b", average: 30, letter: "D", rank: 2},
				{id: "c", average: 0, letter: "F", rank: 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, err := f.svc.TrackingBook(context.Background(), "c1", tt.filter)
			require.NoError(t, err)

			months := make([]time.Month, 0, len(book.Months))
			for _, p := range book.Months {
				months = append(months, p.Month)
				assert.Equal(t, tt.filter.Year, p.Year)
			}
			assert.Equal(t, tt.wantMonths, months)

			codes := make([]string, 0, len(book.Subjects))
			for _, col := range book.Subjects {
				codes = append(codes, col.Code)
			}
			assert.Equal(t, tt.wantCodes, codes)

			require.Len(t, book.Rows, len(tt.want))
			for i, w := range tt.want {
				row := book.Rows[i]
				assert.Equal(t, w.id, row.Student.ID)
				assert.Equal(t, w.average, row.Average, w.id)
				assert.Equal(t, w.letter, row.LetterGrade, w.id)
				assert.Equal(t, w.rank, row.Rank, w.id)
				require.Len(t, row.Subjects, len(tt.wantCodes))
				for _, ts := range row.Subjects {
					assert.Len(t, ts.Months, len(tt.wantMonths))
				}
			}
		})
	}
}

func TestService_TrackingBook_cells(t *testing.T) {
	f := setup(t)
	seedClass(t, f)
	f.grade(t, "c1", core.NewPeriod(time.January, 2024), score("a", "math", 80))

	book, err := f.svc.TrackingBook(context.Background(), "c1", report.TrackingFilter{Year: 2024, SubjectID: "math"})
	require.NoError(t, err)

	math := book.Rows[0].Subjects[0]
	assert.Equal(t, "math", math.SubjectID)
	require.Len(t, math.Months, 2)
	assert.Equal(t, 80.0, *math.Months[0].Score)
	assert.Equal(t, "A", math.Months[0].Level)
	assert.Equal(t, 90.0, *math.Months[1].Score)
	assert.Equal(t, 85.0, *math.Overall)
	assert.Equal(t, 85.0, math.Percentage)
	assert.Equal(t, "A", math.Level)

	none := book.Rows[2].Subjects[0]
	assert.Nil(t, none.Overall)
	assert.Equal(t, -1.0, none.Percentage)
	assert.Nil(t, none.Months[0].Score)
	assert.Equal(t, -1.0, none.Months[0].Percentage)
}

func TestService_TrackingBook_errors(t *testing.T) {
	f := setup(t)
	seedClass(t, f)
	ctx := context.Background()

	_, err := f.svc.TrackingBook(ctx, "c1", report.TrackingFilter{})
	_, ok := errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok)

	_, err = f.svc.TrackingBook(ctx, "c1", report.TrackingFilter{Year: 2024, Month: 13})
	_, ok = errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok)

	_, err = f.svc.TrackingBook(ctx, "c1", report.TrackingFilter{Year: 2024, SubjectID: "art"})
	assert.Equal(t, subject.ErrNotFound, errors.Cause(err))
}

func TestService_Statistics(t *testing.T) {
	f := setup(t)
	seedClass(t, f)

	st, err := f.svc.Statistics(context.Background(), "c1", march)
	require.NoError(t, err)

	assert.Equal(t, report.GenderCount{Male: 1, Female: 2, Total: 3}, st.Students)
	assert.Equal(t, report.GenderCount{Female: 1, Total: 1}, st.Pass)
	assert.Equal(t, report.GenderCount{Male: 1, Female: 1, Total: 2}, st.Fail)

	grades := make(map[string]report.GenderCount, len(st.Grades))
	letters := make([]string, 0, len(st.Grades))
	for _, lc := range st.Grades {
		grades[lc.Letter] = lc.GenderCount
		letters = append(letters, lc.Letter)
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, letters)
	assert.Equal(t, report.GenderCount{Female: 1, Total: 1}, grades["A"])
	assert.Equal(t, report.GenderCount{Male: 1, Female: 1, Total: 2}, grades["F"])
	assert.Equal(t, report.GenderCount{}, grades["B"])

	require.Len(t, st.Subjects, 2)
	khm, math := st.Subjects[0], st.Subjects[1]
	assert.Equal(t, "KHM", khm.Subject.Code)
	assert.Equal(t, report.GenderCount{Female: 1, Total: 1}, khm.Graded)
	assert.Equal(t, report.GenderCount{Male: 1, Female: 1, Total: 2}, math.Graded)
	levels := make(map[string]int, len(math.Levels))
	for _, lc := range math.Levels {
		levels[lc.Letter] = lc.Total
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 0, "C": 1, "D": 0, "E": 0, "F": 0}, levels)

	assert.Equal(t, 25.56, st.Mean)
	assert.Equal(t, 20.0, st.Median)
	assert.Equal(t, 23.47, st.StdDev)
}

func TestService_Statistics_emptyClass(t *testing.T) {
	f := setup(t)
	testutil.CreateClass(t, f.schools, "c9", "9A", 9, subject.TrackNone)

	st, err := f.svc.Statistics(context.Background(), "c9", march)
	require.NoError(t, err)
	assert.Equal(t, report.GenderCount{}, st.Students)
	assert.Equal(t, 0.0, st.Mean)
	assert.Empty(t, st.Subjects)
}
