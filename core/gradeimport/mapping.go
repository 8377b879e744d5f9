package gradeimport

import (
	"fmt"
	"strings"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/subject"
)

type Field string

const (
	FieldStudentID   Field = "student_id"
	FieldStudentCode Field = "student_code"
	FieldSubjectCode Field = "subject_code"
	FieldScore       Field = "score"
	// FieldIgnored columns are accepted and skipped (names, row numbers...).
	FieldIgnored Field = "-"
)

// Mapping is a versioned table of header names to fields.
// Any other column must be the code of one of the class subjects (wide layout).
type Mapping struct {
	Version int
	Columns map[string]Field
}

var V1 = Mapping{
	Version: 1,
	Columns: map[string]Field{
		"student_id":   FieldStudentID,
		"student_code": FieldStudentCode,
		"subject_code": FieldSubjectCode,
		"score":        FieldScore,
		"no":           FieldIgnored,
		"name":         FieldIgnored,
		"first_name":   FieldIgnored,
		"last_name":    FieldIgnored,
		"gender":       FieldIgnored,
	},
}

// Layout is the column positions resolved from a header.
type Layout struct {
	StudentID   int
	StudentCode int
	SubjectCode int
	Score       int
	// Subjects maps wide-layout column positions to their subject.
	Subjects map[int]subject.Subject
}

// Long reports whether the table carries one (subject_code, score) pair per row.
func (l Layout) Long() bool {
	return l.SubjectCode >= 0
}

func normalize(col string) string {
	return strings.Join(strings.Fields(core.CleanString(col, true /* lower */)), "_")
}

// Validate resolves header against the mapping and the class subjects.
// Every missing, duplicated or unrecognized column is reported at once in a *core.ValidationError.
func (m Mapping) Validate(header []string, subjects []subject.Subject) (Layout, error) {
	layout := Layout{StudentID: -1, StudentCode: -1, SubjectCode: -1, Score: -1, Subjects: make(map[int]subject.Subject)}
	byCode := make(map[string]subject.Subject, len(subjects))
	for _, subj := range subjects {
		byCode[normalize(subj.Code)] = subj
	}

	var fldErrs []core.FieldError
	seen := make(map[string]struct{}, len(header))
	for i, raw := range header {
		col := normalize(raw)
		if col == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: fmt.Sprintf("column %d", i+1), Error: "blank column name"})
			continue
		}
		if _, dup := seen[col]; dup {
			fldErrs = append(fldErrs, core.FieldError{Field: raw, Error: "duplicate column"})
			continue
		}
		seen[col] = struct{}{}

		if fld, ok := m.Columns[col]; ok {
			switch fld {
			case FieldStudentID:
				layout.StudentID = i
			case FieldStudentCode:
				layout.StudentCode = i
			case FieldSubjectCode:
				layout.SubjectCode = i
			case FieldScore:
				layout.Score = i
			}
			continue
		}
		if subj, ok := byCode[col]; ok {
			layout.Subjects[i] = subj
			continue
		}
		fldErrs = append(fldErrs, core.FieldError{Field: raw, Error: "unrecognized column"})
	}

	if layout.StudentID < 0 && layout.StudentCode < 0 {
		fldErrs = append(fldErrs, core.FieldError{Field: string(FieldStudentID), Error: "missing column (or " + string(FieldStudentCode) + ")"})
	}
	switch {
	case layout.SubjectCode >= 0 && layout.Score < 0:
		fldErrs = append(fldErrs, core.FieldError{Field: string(FieldScore), Error: "missing column"})
	case layout.Score >= 0 && layout.SubjectCode < 0:
		fldErrs = append(fldErrs, core.FieldError{Field: string(FieldSubjectCode), Error: "missing column"})
	case layout.SubjectCode >= 0 && len(layout.Subjects) > 0:
		fldErrs = append(fldErrs, core.FieldError{Field: string(FieldSubjectCode), Error: "cannot be combined with subject columns"})
	case layout.SubjectCode < 0 && len(layout.Subjects) == 0:
		fldErrs = append(fldErrs, core.FieldError{Field: "subjects", Error: "missing subject columns"})
	}

	if len(fldErrs) > 0 {
		return layout, core.NewValidationError(
			fmt.Errorf("invalid import header (mapping v%d): %d column error(s)", m.Version, len(fldErrs)),
			fldErrs...,
		)
	}
	return layout, nil
}
