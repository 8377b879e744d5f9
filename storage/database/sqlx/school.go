package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

type classRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Grade        int         `db:"grade"`
	Track        null.String `db:"track"`
	AcademicYear string      `db:"academic_year"`
}

func (r classRow) toClass() school.Class {
	return school.Class{
		ID:           r.ID,
		Name:         r.Name,
		Grade:        r.Grade,
		Track:        subject.Track(r.Track.String),
		AcademicYear: r.AcademicYear,
	}
}

type SchoolRepository struct {
	db core.DB
}

var _ school.Repository = (*SchoolRepository)(nil)

func NewSchoolRepository(db core.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

func (repo *SchoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	var row classRow
	err := repo.db.GetContext(ctx, &row, `SELECT id, name, grade, track, academic_year FROM class WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.Class{}, school.ErrClassNotFound
		}
		return school.Class{}, errors.Wrap(err, "selecting class")
	}
	return row.toClass(), nil
}

func (repo *SchoolRepository) ListClasses(ctx context.Context, filter school.ClassFilter) ([]school.Class, error) {
	query := `SELECT id, name, grade, track, academic_year FROM class
		WHERE ($1 = 0 OR grade = $1)
		ORDER BY name, id`
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, query, filter.Grade); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClass())
	}
	return classes, nil
}

func (repo *SchoolRepository) ListStudents(ctx context.Context, classIDs ...string) ([]school.Student, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, code, first_name, last_name, gender, class_id FROM student
		WHERE class_id = ANY($1)
		ORDER BY class_id, last_name, first_name, id`
	var students []school.Student
	if err := repo.db.SelectContext(ctx, &students, query, pq.Array(classIDs)); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}

func (repo *SchoolRepository) CreateClass(ctx context.Context, class school.Class) (school.Class, error) {
	row := classRow{
		ID:           class.ID,
		Name:         class.Name,
		Grade:        class.Grade,
		Track:        null.NewString(string(class.Track), class.Track != subject.TrackNone),
		AcademicYear: class.AcademicYear,
	}
	query := `INSERT INTO class (id, name, grade, track, academic_year)
		VALUES (:id, :name, :grade, :track, :academic_year)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return class, nil
}

func (repo *SchoolRepository) CreateStudent(ctx context.Context, student school.Student) (school.Student, error) {
	query := `INSERT INTO student (id, code, first_name, last_name, gender, class_id)
		VALUES (:id, :code, :first_name, :last_name, :gender, :class_id)`
	if _, err := repo.db.NamedExecContext(ctx, query, student); err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return student, nil
}
