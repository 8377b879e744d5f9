package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-grading/core/school"
)

type SchoolRepository struct {
	classes  *classTable
	students *studentTable
}

var _ school.Repository = (*SchoolRepository)(nil)

func NewSchoolRepository(db *DB) *SchoolRepository {
	return &SchoolRepository{classes: db.class, students: db.student}
}

func (repo *SchoolRepository) CreateClass(_ context.Context, class school.Class) (school.Class, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	repo.classes.table[class.ID] = &class
	return class, nil
}

func (repo *SchoolRepository) CreateStudent(_ context.Context, st school.Student) (school.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	repo.students.table[st.ID] = &st
	return st, nil
}

func (repo *SchoolRepository) GetClass(_ context.Context, id string) (school.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	if class, ok := repo.classes.table[id]; ok {
		return *class, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *SchoolRepository) ListClasses(_ context.Context, filter school.ClassFilter) ([]school.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	classes := make([]school.Class, 0, len(repo.classes.table))
	for _, class := range repo.classes.table {
		if filter.Grade != 0 && class.Grade != filter.Grade {
			continue
		}
		classes = append(classes, *class)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *SchoolRepository) ListStudents(_ context.Context, classIDs ...string) ([]school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	students := make([]school.Student, 0)
	for _, st := range repo.students.table {
		if contains(classIDs, st.ClassID) {
			students = append(students, *st)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		switch {
		case a.ClassID != b.ClassID:
			return a.ClassID < b.ClassID
		case a.LastName != b.LastName:
			return a.LastName < b.LastName
		case a.FirstName != b.FirstName:
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return students, nil
}
