package attendance

import (
	"context"
	"time"

	"github.com/trezcool/masomo-grading/core"
)

type Status string

const (
	StatusPresent    Status = "PRESENT"
	StatusAbsent     Status = "ABSENT"
	StatusLate       Status = "LATE"
	StatusExcused    Status = "EXCUSED"
	StatusPermission Status = "PERMISSION"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused, StatusPermission:
		return true
	}
	return false
}

type (
	Fact struct {
		StudentID string    `json:"student_id" db:"student_id"`
		ClassID   string    `json:"class_id" db:"class_id"`
		Date      time.Time `json:"date" db:"date"`
		Status    Status    `json:"status" db:"status"`
	}

	Summary struct {
		Present    int `json:"present"`
		Absent     int `json:"absent"`
		Late       int `json:"late"`
		Excused    int `json:"excused"`
		Permission int `json:"permission"`
	}

	// Filter narrows ListAttendance. From and To are inclusive dates; zero values are ignored.
	Filter struct {
		ClassIDs   []string
		StudentIDs []string
		From       time.Time
		To         time.Time
	}

	Repository interface {
		ListAttendance(ctx context.Context, filter Filter) ([]Fact, error)
	}
)

// Absences counts unjustified absences.
func (s Summary) Absences() int {
	return s.Absent
}

// Permissions counts justified absences.
func (s Summary) Permissions() int {
	return s.Permission + s.Excused
}

func (s *Summary) add(status Status) {
	switch status {
	case StatusPresent:
		s.Present++
	case StatusAbsent:
		s.Absent++
	case StatusLate:
		s.Late++
	case StatusExcused:
		s.Excused++
	case StatusPermission:
		s.Permission++
	}
}

// Summarize counts facts per student. Unknown statuses are ignored.
func Summarize(facts []Fact) map[string]Summary {
	summaries := make(map[string]Summary)
	for _, f := range facts {
		s := summaries[f.StudentID]
		s.add(f.Status)
		summaries[f.StudentID] = s
	}
	return summaries
}

// MonthSpan returns the first and last day of the period's calendar month, in UTC.
func MonthSpan(period core.Period) (time.Time, time.Time) {
	from := time.Date(period.Year, period.Month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return from, to
}
