package gradeimport

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

type (
	// Table is a header plus data rows, e.g. a parsed spreadsheet or CSV file.
	Table struct {
		Header []string
		Rows   [][]string
	}

	Result struct {
		grade.Result
		// Rows counts the data rows read, blank lines excluded.
		Rows int `json:"rows"`
	}

	Importer struct {
		reconciler *grade.Reconciler
		schools    school.Repository
		resolver   *subject.Resolver
		mapping    Mapping
	}
)

func NewImporter(reconciler *grade.Reconciler, schools school.Repository, resolver *subject.Resolver, mapping Mapping) *Importer {
	return &Importer{
		reconciler: reconciler,
		schools:    schools,
		resolver:   resolver,
		mapping:    mapping,
	}
}

// Import validates the table header once, turns rows into reconcile input and reconciles them.
// Row numbers in errors are 1-based file lines, the header being line 1.
func (imp *Importer) Import(ctx context.Context, classID string, period core.Period, table Table) (Result, error) {
	class, err := imp.schools.GetClass(ctx, classID)
	if err != nil {
		return Result{}, errors.Wrap(err, "getting class")
	}
	subjects, err := imp.resolver.Resolve(ctx, class.Grade, class.Track)
	if err != nil {
		return Result{}, errors.Wrap(err, "resolving subjects")
	}
	layout, err := imp.mapping.Validate(table.Header, subjects)
	if err != nil {
		return Result{}, err
	}

	var byCode map[string]string
	if layout.StudentCode >= 0 {
		students, err := imp.schools.ListStudents(ctx, classID)
		if err != nil {
			return Result{}, errors.Wrap(err, "listing students")
		}
		byCode = make(map[string]string, len(students))
		for _, st := range students {
			byCode[normalize(st.Code)] = st.ID
		}
	}
	subjectsByCode := make(map[string]subject.Subject, len(subjects))
	for _, subj := range subjects {
		subjectsByCode[normalize(subj.Code)] = subj
	}
	wideCols := make([]int, 0, len(layout.Subjects))
	for i := range layout.Subjects {
		wideCols = append(wideCols, i)
	}
	sort.Ints(wideCols)

	var (
		res       Result
		incoming  []grade.Incoming
		rowErrors = make([]grade.RowError, 0)
	)
	for i, cells := range table.Rows {
		if blank(cells) {
			continue
		}
		res.Rows++
		line := i + 2
		cell := func(idx int) string {
			if idx < 0 || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}
		reject := func(subjectID, reason string) {
			rowErrors = append(rowErrors, grade.RowError{Row: line, StudentID: cell(layout.StudentID), SubjectID: subjectID, Reason: reason})
		}

		studentID := cell(layout.StudentID)
		if studentID == "" && layout.StudentCode >= 0 {
			if code := cell(layout.StudentCode); code != "" {
				id, ok := byCode[normalize(code)]
				if !ok {
					reject("", fmt.Sprintf("unknown student code %q", code))
					continue
				}
				studentID = id
			}
		}

		if layout.Long() {
			code := cell(layout.SubjectCode)
			subj, ok := subjectsByCode[normalize(code)]
			if !ok {
				reject("", fmt.Sprintf("unknown subject code %q", code))
				continue
			}
			score, err := parseScore(cell(layout.Score))
			if err != nil {
				reject(subj.ID, err.Error())
				continue
			}
			incoming = append(incoming, grade.Incoming{Row: line, StudentID: studentID, SubjectID: subj.ID, Score: score})
			continue
		}

		for _, col := range wideCols {
			subj := layout.Subjects[col]
			score, err := parseScore(cell(col))
			if err != nil {
				reject(subj.ID, err.Error())
				continue
			}
			incoming = append(incoming, grade.Incoming{Row: line, StudentID: studentID, SubjectID: subj.ID, Score: score})
		}
	}

	reconciled, err := imp.reconciler.Reconcile(ctx, classID, period, incoming)
	if err != nil {
		return res, err
	}
	res.Result = reconciled
	res.Errors = append(rowErrors, reconciled.Errors...)
	sort.SliceStable(res.Errors, func(i, j int) bool { return res.Errors[i].Row < res.Errors[j].Row })
	return res, nil
}

// parseScore reads a score cell; a blank cell is an ungraded score.
func parseScore(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("score %q is not a number", s)
	}
	return &v, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
