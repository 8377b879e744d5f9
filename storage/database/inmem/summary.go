package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/ranking"
)

type SummaryRepository struct {
	db *summaryTable
}

var _ ranking.SummaryRepository = (*SummaryRepository)(nil)

func NewSummaryRepository(db *DB) *SummaryRepository {
	return &SummaryRepository{db: db.summary}
}

func (repo *SummaryRepository) SaveSummaries(_ context.Context, classID string, period core.Period, summaries []ranking.Summary) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for key := range repo.db.table {
		if key.classID == classID && key.month == int(period.Month) && key.year == period.Year {
			delete(repo.db.table, key)
		}
	}
	for _, s := range summaries {
		s := s
		repo.db.table[summaryKey{studentID: s.StudentID, classID: s.ClassID, month: s.MonthNumber, year: s.Year}] = &s
	}
	return nil
}

func (repo *SummaryRepository) ListSummaries(_ context.Context, classID string, period core.Period) ([]ranking.Summary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	summaries := make([]ranking.Summary, 0)
	for _, s := range repo.db.table {
		if s.ClassID == classID && s.MonthNumber == int(period.Month) && s.Year == period.Year {
			summaries = append(summaries, *s)
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].ClassRank != summaries[j].ClassRank {
			return summaries[i].ClassRank < summaries[j].ClassRank
		}
		return summaries[i].StudentID < summaries[j].StudentID
	})
	return summaries, nil
}
