package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/attendance"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
	"github.com/trezcool/masomo-grading/storage/database/inmem"
)

type (
	subjectCreator interface {
		CreateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error)
	}

	schoolCreator interface {
		CreateClass(ctx context.Context, class school.Class) (school.Class, error)
		CreateStudent(ctx context.Context, st school.Student) (school.Student, error)
	}

	attendanceRecorder interface {
		RecordAttendance(ctx context.Context, facts ...attendance.Fact) error
	}
)

func PrepareDB(t *testing.T) *inmemdb.DB {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate, translator
}

func FloatPtr(f float64) *float64 {
	return &f
}

func CreateSubject(
	t *testing.T,
	repo subjectCreator,
	id, code string,
	grade int,
	track subject.Track,
	maxScore int,
	coefficient float64,
	isActive ...bool,
) subject.Subject {
	active := true
	if len(isActive) > 0 {
		active = isActive[0]
	}
	subj, err := repo.CreateSubject(context.Background(), subject.Subject{
		ID:          id,
		Code:        code,
		NameKh:      code,
		NameEn:      code,
		Grade:       grade,
		Track:       track,
		MaxScore:    maxScore,
		Coefficient: coefficient,
		IsActive:    active,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return subj
}

func CreateClass(t *testing.T, repo schoolCreator, id, name string, grade int, track subject.Track) school.Class {
	class, err := repo.CreateClass(context.Background(), school.Class{
		ID:           id,
		Name:         name,
		Grade:        grade,
		Track:        track,
		AcademicYear: "2023-2024",
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return class
}

func CreateStudent(t *testing.T, repo schoolCreator, id, classID, firstName, lastName string, gender school.Gender) school.Student {
	st, err := repo.CreateStudent(context.Background(), school.Student{
		ID:        id,
		Code:      "ST-" + id,
		FirstName: firstName,
		LastName:  lastName,
		Gender:    gender,
		ClassID:   classID,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func RecordAttendance(t *testing.T, repo attendanceRecorder, studentID, classID string, date time.Time, status attendance.Status) {
	fact := attendance.Fact{StudentID: studentID, ClassID: classID, Date: date, Status: status}
	if err := repo.RecordAttendance(context.Background(), fact); err != nil {
		t.Fatalf("RecordAttendance() failed: %v", err)
	}
}

// Logger writes through t.Log.
type Logger struct {
	t *testing.T
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t *testing.T) *Logger {
	return &Logger{t: t}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.t.Helper()
	if len(args) > 0 {
		msg = fmt.Sprintf("%s %+v", msg, args)
	}
	l.t.Logf("%s: %s", level, msg)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	l.t.FailNow()
}
