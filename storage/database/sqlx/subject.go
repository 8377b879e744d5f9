package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/subject"
)

const subjectColumns = `id, code, name_kh, name_en, grade, track, max_score, coefficient, is_active`

type subjectRow struct {
	ID          string      `db:"id"`
	Code        string      `db:"code"`
	NameKh      string      `db:"name_kh"`
	NameEn      string      `db:"name_en"`
	Grade       int         `db:"grade"`
	Track       null.String `db:"track"`
	MaxScore    int         `db:"max_score"`
	Coefficient float64     `db:"coefficient"`
	IsActive    bool        `db:"is_active"`
}

func (r subjectRow) toSubject() subject.Subject {
	return subject.Subject{
		ID:          r.ID,
		Code:        r.Code,
		NameKh:      r.NameKh,
		NameEn:      r.NameEn,
		Grade:       r.Grade,
		Track:       subject.Track(r.Track.String),
		MaxScore:    r.MaxScore,
		Coefficient: r.Coefficient,
		IsActive:    r.IsActive,
	}
}

type SubjectRepository struct {
	db core.DB
}

var _ subject.Catalog = (*SubjectRepository)(nil)

func NewSubjectRepository(db core.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (repo *SubjectRepository) ListSubjects(ctx context.Context, filter subject.Filter) ([]subject.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subject
		WHERE ($1 = 0 OR grade = $1) AND (NOT $2 OR is_active)
		ORDER BY id`
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, query, filter.Grade, filter.ActiveOnly); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	return toSubjects(rows), nil
}

func (repo *SubjectRepository) GetSubjectsByIDs(ctx context.Context, ids []string) ([]subject.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+subjectColumns+` FROM subject WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building subject query")
	}
	var rows []subjectRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	return toSubjects(rows), nil
}

// CreateSubject inserts a catalog entry.
func (repo *SubjectRepository) CreateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error) {
	row := subjectRow{
		ID:          subj.ID,
		Code:        subj.Code,
		NameKh:      subj.NameKh,
		NameEn:      subj.NameEn,
		Grade:       subj.Grade,
		Track:       null.NewString(string(subj.Track), subj.Track != subject.TrackNone),
		MaxScore:    subj.MaxScore,
		Coefficient: subj.Coefficient,
		IsActive:    subj.IsActive,
	}
	query := `INSERT INTO subject (` + subjectColumns + `)
		VALUES (:id, :code, :name_kh, :name_en, :grade, :track, :max_score, :coefficient, :is_active)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return subj, nil
}

func toSubjects(rows []subjectRow) []subject.Subject {
	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.toSubject())
	}
	return subjects
}
