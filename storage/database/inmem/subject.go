package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-grading/core/subject"
)

type SubjectRepository struct {
	db *subjectTable
}

var _ subject.Catalog = (*SubjectRepository)(nil)

func NewSubjectRepository(db *DB) *SubjectRepository {
	return &SubjectRepository{db: db.subject}
}

func (repo *SubjectRepository) CreateSubject(_ context.Context, subj subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[subj.ID] = &subj
	return subj, nil
}

func (repo *SubjectRepository) ListSubjects(_ context.Context, filter subject.Filter) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]subject.Subject, 0, len(repo.db.table))
	for _, subj := range repo.db.table {
		if filter.Grade != 0 && subj.Grade != filter.Grade {
			continue
		}
		if filter.ActiveOnly && !subj.IsActive {
			continue
		}
		subjects = append(subjects, *subj)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

func (repo *SubjectRepository) GetSubjectsByIDs(_ context.Context, ids []string) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]subject.Subject, 0, len(ids))
	for _, id := range ids {
		if subj, ok := repo.db.table[id]; ok {
			subjects = append(subjects, *subj)
		}
	}
	return subjects, nil
}
