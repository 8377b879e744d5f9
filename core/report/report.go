package report

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/aggregate"
	"github.com/trezcool/masomo-grading/core/attendance"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/ranking"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

// decimals kept in report payloads; ranking always uses the unrounded average
const decimals = 2

type (
	SubjectColumn struct {
		ID          string        `json:"id"`
		Code        string        `json:"code"`
		NameKh      string        `json:"name_kh"`
		NameEn      string        `json:"name_en"`
		Track       subject.Track `json:"track,omitempty"`
		MaxScore    int           `json:"max_score"`
		Coefficient float64       `json:"coefficient"`
		Order       int           `json:"order"`
	}

	StudentRef struct {
		ID        string        `json:"id"`
		Code      string        `json:"code"`
		Name      string        `json:"name"`
		Gender    school.Gender `json:"gender"`
		ClassID   string        `json:"class_id"`
		ClassName string        `json:"class_name,omitempty"`
	}

	Cell struct {
		SubjectID  string   `json:"subject_id"`
		Score      *float64 `json:"score"`
		Percentage float64  `json:"percentage"`
		Level      string   `json:"level,omitempty"`
		// Applicable is false for subjects outside the student's track.
		Applicable bool `json:"applicable"`
	}

	AttendanceCounts struct {
		Absences    int `json:"absences"`
		Permissions int `json:"permissions"`
	}

	Row struct {
		Student          StudentRef        `json:"student"`
		Cells            []Cell            `json:"cells"`
		TotalScore       float64           `json:"total_score"`
		TotalMaxScore    int               `json:"total_max_score"`
		TotalCoefficient float64           `json:"total_coefficient"`
		Average          float64           `json:"average"`
		LetterGrade      string            `json:"letter_grade"`
		Rank             int               `json:"rank"`
		Attendance       *AttendanceCounts `json:"attendance,omitempty"`

		average float64
	}

	// ClassReport is the payload of the grid and monthly reports.
	ClassReport struct {
		Class    school.Class    `json:"class"`
		Period   core.Period     `json:"period"`
		Band     string          `json:"band"`
		Subjects []SubjectColumn `json:"subjects"`
		Rows     []Row           `json:"rows"`
	}

	Service struct {
		schools    school.Repository
		resolver   *subject.Resolver
		grades     grade.Repository
		attendance attendance.Repository
	}
)

func NewService(
	schools school.Repository,
	resolver *subject.Resolver,
	grades grade.Repository,
	attendance attendance.Repository,
) *Service {
	return &Service{
		schools:    schools,
		resolver:   resolver,
		grades:     grades,
		attendance: attendance,
	}
}

func columns(subjects []subject.Subject) []SubjectColumn {
	cols := make([]SubjectColumn, 0, len(subjects))
	for i, subj := range subjects {
		cols = append(cols, SubjectColumn{
			ID:          subj.ID,
			Code:        subj.Code,
			NameKh:      subj.NameKh,
			NameEn:      subj.NameEn,
			Track:       subj.Track,
			MaxScore:    subj.MaxScore,
			Coefficient: subj.Coefficient,
			Order:       i + 1,
		})
	}
	return cols
}

func studentRef(st school.Student, className string) StudentRef {
	return StudentRef{
		ID:        st.ID,
		Code:      st.Code,
		Name:      st.FullName(),
		Gender:    st.Gender,
		ClassID:   st.ClassID,
		ClassName: className,
	}
}

// buildRow aggregates a student over `eligible` and lays the result out over `cols`.
func buildRow(ref StudentRef, cols, eligible []subject.Subject, scores map[string]*float64, band aggregate.Band) Row {
	res := aggregate.Aggregate(ref.ID, eligible, scores, band)
	bySubject := make(map[string]aggregate.SubjectResult, len(res.Subjects))
	for _, sr := range res.Subjects {
		bySubject[sr.SubjectID] = sr
	}

	row := Row{
		Student:          ref,
		Cells:            make([]Cell, 0, len(cols)),
		TotalScore:       aggregate.Round(res.TotalScore, decimals),
		TotalMaxScore:    res.TotalMaxScore,
		TotalCoefficient: res.TotalCoefficient,
		Average:          aggregate.Round(res.Average, decimals),
		LetterGrade:      res.LetterGrade,
		average:          res.Average,
	}
	for _, col := range cols {
		sr, ok := bySubject[col.ID]
		if !ok {
			row.Cells = append(row.Cells, Cell{SubjectID: col.ID, Percentage: aggregate.NotGraded})
			continue
		}
		cell := Cell{SubjectID: col.ID, Score: sr.Score, Percentage: sr.Percentage, Level: sr.Level, Applicable: true}
		if sr.Score != nil {
			cell.Percentage = aggregate.Round(sr.Percentage, decimals)
		}
		row.Cells = append(row.Cells, cell)
	}
	return row
}

// rankRows ranks the rows in place over their unrounded averages, keeping row order.
func rankRows(rows []Row) {
	cohort := make([]ranking.Entry, 0, len(rows))
	for _, r := range rows {
		cohort = append(cohort, ranking.Entry{StudentID: r.Student.ID, Average: r.average})
	}
	ranks := ranking.Ranks(ranking.Rank(cohort))
	for i := range rows {
		rows[i].Rank = ranks[rows[i].Student.ID]
	}
}

func attendanceCounts(summaries map[string]attendance.Summary, studentID string) *AttendanceCounts {
	s := summaries[studentID]
	return &AttendanceCounts{Absences: s.Absences(), Permissions: s.Permissions()}
}

// classData is what every single-class report reads.
type classData struct {
	class    school.Class
	subjects []subject.Subject
	students []school.Student
	records  []grade.Record
}

func (svc *Service) loadClass(ctx context.Context, classID string, filter grade.Filter) (classData, error) {
	var data classData
	var err error
	if data.class, err = svc.schools.GetClass(ctx, classID); err != nil {
		return data, errors.Wrap(err, "getting class")
	}
	if data.subjects, err = svc.resolver.Resolve(ctx, data.class.Grade, data.class.Track); err != nil {
		return data, errors.Wrap(err, "resolving subjects")
	}
	if data.students, err = svc.schools.ListStudents(ctx, classID); err != nil {
		return data, errors.Wrap(err, "listing students")
	}
	filter.ClassIDs = []string{classID}
	if data.records, err = svc.grades.QueryRecords(ctx, filter); err != nil {
		return data, errors.Wrap(err, "querying grade records")
	}
	return data, nil
}

func validatePeriod(period core.Period) error {
	if !period.Valid() {
		return core.NewValidationError(fmt.Errorf("invalid period %q", period))
	}
	return nil
}
