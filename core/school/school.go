package school

import (
	"context"
	"strings"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/subject"
)

var ErrClassNotFound = core.NewNotFoundError("class not found")

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

type (
	Class struct {
		ID           string        `json:"id" db:"id"`
		Name         string        `json:"name" db:"name"`
		Grade        int           `json:"grade" db:"grade"`
		Track        subject.Track `json:"track,omitempty" db:"track"`
		AcademicYear string        `json:"academic_year" db:"academic_year"`
	}

	Student struct {
		ID        string `json:"id" db:"id"`
		Code      string `json:"code" db:"code"`
		FirstName string `json:"first_name" db:"first_name"`
		LastName  string `json:"last_name" db:"last_name"`
		Gender    Gender `json:"gender" db:"gender"`
		ClassID   string `json:"class_id" db:"class_id"`
	}

	ClassFilter struct {
		Grade int
	}

	// Repository is the read-only class & roster store.
	Repository interface {
		GetClass(ctx context.Context, id string) (Class, error)
		ListClasses(ctx context.Context, filter ClassFilter) ([]Class, error)
		// ListStudents returns the rosters of the classes ordered by class, last name, first name.
		ListStudents(ctx context.Context, classIDs ...string) ([]Student, error)
	}
)

func (s Student) FullName() string {
	return strings.TrimSpace(s.LastName + " " + s.FirstName)
}
