package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/grade"
)

const (
	gradeColumns = `id, student_id, subject_id, class_id, month, month_number, year,
		score, max_score, percentage, weighted_score, created_at, updated_at`
	gradeColumnCount = 13

	// keeps a bulk insert well under the 65535 bind parameters limit
	insertChunkSize = 1000
)

type gradeRow struct {
	ID            string       `db:"id"`
	StudentID     string       `db:"student_id"`
	SubjectID     string       `db:"subject_id"`
	ClassID       string       `db:"class_id"`
	Month         string       `db:"month"`
	MonthNumber   int          `db:"month_number"`
	Year          int          `db:"year"`
	Score         null.Float64 `db:"score"`
	MaxScore      int          `db:"max_score"`
	Percentage    null.Float64 `db:"percentage"`
	WeightedScore null.Float64 `db:"weighted_score"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

func newGradeRow(rec grade.Record) gradeRow {
	return gradeRow{
		ID:            rec.ID,
		StudentID:     rec.StudentID,
		SubjectID:     rec.SubjectID,
		ClassID:       rec.ClassID,
		Month:         rec.Month,
		MonthNumber:   rec.MonthNumber,
		Year:          rec.Year,
		Score:         null.Float64FromPtr(rec.Score),
		MaxScore:      rec.MaxScore,
		Percentage:    null.Float64FromPtr(rec.Percentage),
		WeightedScore: null.Float64FromPtr(rec.WeightedScore),
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func (r gradeRow) toRecord() grade.Record {
	return grade.Record{
		ID:            r.ID,
		StudentID:     r.StudentID,
		SubjectID:     r.SubjectID,
		ClassID:       r.ClassID,
		Month:         r.Month,
		MonthNumber:   r.MonthNumber,
		Year:          r.Year,
		Score:         r.Score.Ptr(),
		MaxScore:      r.MaxScore,
		Percentage:    r.Percentage.Ptr(),
		WeightedScore: r.WeightedScore.Ptr(),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (r gradeRow) values() []interface{} {
	return []interface{}{
		r.ID, r.StudentID, r.SubjectID, r.ClassID, r.Month, r.MonthNumber, r.Year,
		r.Score, r.MaxScore, r.Percentage, r.WeightedScore, r.CreatedAt, r.UpdatedAt,
	}
}

type GradeRepository struct {
	db core.DB
}

var _ grade.Repository = (*GradeRepository)(nil)

func NewGradeRepository(db core.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

func (repo *GradeRepository) FindRecords(ctx context.Context, classID string, period core.Period, keys []grade.Key) ([]grade.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	studentIDs := make([]string, len(keys))
	subjectIDs := make([]string, len(keys))
	for i, k := range keys {
		studentIDs[i], subjectIDs[i] = k.StudentID, k.SubjectID
	}

	query := `SELECT g.* FROM grade_record g
		JOIN unnest($4::text[], $5::text[]) AS k (student_id, subject_id)
		  ON g.student_id = k.student_id AND g.subject_id = k.subject_id
		WHERE g.class_id = $1 AND g.month = $2 AND g.year = $3`
	var rows []gradeRow
	err := repo.db.SelectContext(
		ctx, &rows, query,
		classID, period.MonthName(), period.Year, pq.Array(studentIDs), pq.Array(subjectIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting grade records")
	}
	return toRecords(rows), nil
}

func (repo *GradeRepository) InsertRecords(ctx context.Context, recs []grade.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	var inserted int64
	err := inTx(ctx, repo.db, func(tx core.DBTransactor) error {
		for start := 0; start < len(recs); start += insertChunkSize {
			end := start + insertChunkSize
			if end > len(recs) {
				end = len(recs)
			}
			query, args := bulkInsertQuery(recs[start:end])
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return errors.Wrap(err, "inserting grade records")
			}
			n, err := res.RowsAffected()
			if err != nil {
				return errors.Wrap(err, "counting inserted grade records")
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// bulkInsertQuery builds a multi-row INSERT that skips rows conflicting on the natural key.
func bulkInsertQuery(recs []grade.Record) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO grade_record (" + gradeColumns + ") VALUES ")
	args := make([]interface{}, 0, len(recs)*gradeColumnCount)
	for i, rec := range recs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < gradeColumnCount; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*gradeColumnCount+c+1)
		}
		sb.WriteByte(')')
		args = append(args, newGradeRow(rec).values()...)
	}
	sb.WriteString(" ON CONFLICT ON CONSTRAINT grade_record_natural_key DO NOTHING")
	return sb.String(), args
}

func (repo *GradeRepository) UpdateRecords(ctx context.Context, recs []grade.Record) error {
	if len(recs) == 0 {
		return nil
	}
	query := `UPDATE grade_record
		SET score = $2, max_score = $3, percentage = $4, weighted_score = $5, updated_at = $6
		WHERE id = $1`
	return inTx(ctx, repo.db, func(tx core.DBTransactor) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return errors.Wrap(err, "preparing grade record update")
		}
		defer func() { _ = stmt.Close() }()

		for _, rec := range recs {
			row := newGradeRow(rec)
			res, err := stmt.ExecContext(ctx, row.ID, row.Score, row.MaxScore, row.Percentage, row.WeightedScore, row.UpdatedAt)
			if err != nil {
				return errors.Wrapf(err, "updating grade record %s", rec.ID)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return errors.Errorf("updating grade record %s: no such record", rec.ID)
			}
		}
		return nil
	})
}

func (repo *GradeRepository) QueryRecords(ctx context.Context, filter grade.Filter) ([]grade.Record, error) {
	query := `SELECT ` + gradeColumns + ` FROM grade_record
		WHERE (coalesce(cardinality($1::text[]), 0) = 0 OR class_id = ANY($1))
		  AND ($2 = 0 OR year = $2)
		  AND ($3 = 0 OR month_number = $3)
		  AND (coalesce(cardinality($4::text[]), 0) = 0 OR subject_id = ANY($4))
		  AND (coalesce(cardinality($5::text[]), 0) = 0 OR student_id = ANY($5))
		ORDER BY year, month_number, student_id, subject_id`
	var rows []gradeRow
	err := repo.db.SelectContext(
		ctx, &rows, query,
		pq.Array(filter.ClassIDs), filter.Year, int(filter.Month), pq.Array(filter.SubjectIDs), pq.Array(filter.StudentIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting grade records")
	}
	return toRecords(rows), nil
}

func toRecords(rows []gradeRow) []grade.Record {
	recs := make([]grade.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, r.toRecord())
	}
	return recs
}
