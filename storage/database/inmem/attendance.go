package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/attendance"
)

type AttendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *AttendanceRepository {
	return &AttendanceRepository{db: db.attendance}
}

func (repo *AttendanceRepository) RecordAttendance(_ context.Context, facts ...attendance.Fact) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, f := range facts {
		if !f.Status.Valid() {
			return core.NewValidationError(errors.Errorf("invalid attendance status %q", f.Status))
		}
	}
	// one fact per student, class & day; the last one wins
	for _, f := range facts {
		replaced := false
		for i, row := range repo.db.rows {
			if row.StudentID == f.StudentID && row.ClassID == f.ClassID && row.Date.Equal(f.Date) {
				repo.db.rows[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			repo.db.rows = append(repo.db.rows, f)
		}
	}
	return nil
}

func (repo *AttendanceRepository) ListAttendance(_ context.Context, filter attendance.Filter) ([]attendance.Fact, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	// To is a date: facts stamped later that day are still in range
	facts := make([]attendance.Fact, 0)
	for _, f := range repo.db.rows {
		switch {
		case len(filter.ClassIDs) > 0 && !contains(filter.ClassIDs, f.ClassID),
			len(filter.StudentIDs) > 0 && !contains(filter.StudentIDs, f.StudentID),
			!filter.From.IsZero() && f.Date.Before(filter.From),
			!filter.To.IsZero() && !f.Date.Before(filter.To.AddDate(0, 0, 1)):
			continue
		}
		facts = append(facts, f)
	}
	sort.SliceStable(facts, func(i, j int) bool {
		if !facts[i].Date.Equal(facts[j].Date) {
			return facts[i].Date.Before(facts[j].Date)
		}
		return facts[i].StudentID < facts[j].StudentID
	})
	return facts, nil
}
