package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/grade"
)

type GradeRepository struct {
	db *gradeTable
}

var _ grade.Repository = (*GradeRepository)(nil)

func NewGradeRepository(db *DB) *GradeRepository {
	return &GradeRepository{db: db.grade}
}

func naturalKey(rec grade.Record) gradeKey {
	return gradeKey{
		studentID: rec.StudentID,
		subjectID: rec.SubjectID,
		classID:   rec.ClassID,
		month:     rec.MonthNumber,
		year:      rec.Year,
	}
}

func (repo *GradeRepository) FindRecords(_ context.Context, classID string, period core.Period, keys []grade.Key) ([]grade.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]grade.Record, 0, len(keys))
	for _, k := range keys {
		nk := gradeKey{studentID: k.StudentID, subjectID: k.SubjectID, classID: classID, month: int(period.Month), year: period.Year}
		if id, ok := repo.db.index[nk]; ok {
			recs = append(recs, *repo.db.table[id])
		}
	}
	return recs, nil
}

func (repo *GradeRepository) InsertRecords(_ context.Context, recs []grade.Record) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var inserted int
	for _, rec := range recs {
		nk := naturalKey(rec)
		if _, exists := repo.db.index[nk]; exists {
			continue
		}
		rec := rec
		repo.db.table[rec.ID] = &rec
		repo.db.index[nk] = rec.ID
		inserted++
	}
	return inserted, nil
}

func (repo *GradeRepository) UpdateRecords(_ context.Context, recs []grade.Record) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	// all or nothing
	for _, rec := range recs {
		if _, ok := repo.db.table[rec.ID]; !ok {
			return errors.Errorf("grade record %s not found", rec.ID)
		}
	}
	for _, rec := range recs {
		orig := repo.db.table[rec.ID]
		orig.Score = rec.Score
		orig.MaxScore = rec.MaxScore
		orig.Percentage = rec.Percentage
		orig.WeightedScore = rec.WeightedScore
		orig.UpdatedAt = rec.UpdatedAt
	}
	return nil
}

func (repo *GradeRepository) QueryRecords(_ context.Context, filter grade.Filter) ([]grade.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]grade.Record, 0)
	for _, rec := range repo.db.table {
		switch {
		case len(filter.ClassIDs) > 0 && !contains(filter.ClassIDs, rec.ClassID),
			len(filter.SubjectIDs) > 0 && !contains(filter.SubjectIDs, rec.SubjectID),
			len(filter.StudentIDs) > 0 && !contains(filter.StudentIDs, rec.StudentID),
			filter.Year != 0 && rec.Year != filter.Year,
			filter.Month != 0 && rec.MonthNumber != int(filter.Month):
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		switch {
		case a.Year != b.Year:
			return a.Year < b.Year
		case a.MonthNumber != b.MonthNumber:
			return a.MonthNumber < b.MonthNumber
		case a.StudentID != b.StudentID:
			return a.StudentID < b.StudentID
		}
		return a.SubjectID < b.SubjectID
	})
	return recs, nil
}

// Count returns the number of stored grade records.
func (repo *GradeRepository) Count() int {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.table)
}
