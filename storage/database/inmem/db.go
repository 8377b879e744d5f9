package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-grading/core/attendance"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/ranking"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

type (
	// DB is a process-local database used by tests and the DEV setup.
	DB struct {
		subject    *subjectTable
		class      *classTable
		student    *studentTable
		grade      *gradeTable
		attendance *attendanceTable
		summary    *summaryTable
	}

	subjectTable struct {
		sync.RWMutex
		table map[string]*subject.Subject
	}

	classTable struct {
		sync.RWMutex
		table map[string]*school.Class
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*school.Student
	}

	gradeTable struct {
		sync.RWMutex
		table map[string]*grade.Record
		// natural key -> record ID
		index map[gradeKey]string
	}

	attendanceTable struct {
		sync.RWMutex
		rows []attendance.Fact
	}

	summaryTable struct {
		sync.RWMutex
		table map[summaryKey]*ranking.Summary
	}

	gradeKey struct {
		studentID, subjectID, classID string
		month                         int
		year                          int
	}

	summaryKey struct {
		studentID, classID string
		month              int
		year               int
	}
)

func Open() (*DB, error) {
	db := &DB{
		subject:    &subjectTable{},
		class:      &classTable{},
		student:    &studentTable{},
		grade:      &gradeTable{},
		attendance: &attendanceTable{},
		summary:    &summaryTable{},
	}
	db.Reset()
	return db, nil
}

// Reset empties every table in place; repositories opened on db stay valid.
func (db *DB) Reset() {
	db.subject.Lock()
	db.subject.table = make(map[string]*subject.Subject)
	db.subject.Unlock()

	db.class.Lock()
	db.class.table = make(map[string]*school.Class)
	db.class.Unlock()

	db.student.Lock()
	db.student.table = make(map[string]*school.Student)
	db.student.Unlock()

	db.grade.Lock()
	db.grade.table = make(map[string]*grade.Record)
	db.grade.index = make(map[gradeKey]string)
	db.grade.Unlock()

	db.attendance.Lock()
	db.attendance.rows = nil
	db.attendance.Unlock()

	db.summary.Lock()
	db.summary.table = make(map[summaryKey]*ranking.Summary)
	db.summary.Unlock()
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
