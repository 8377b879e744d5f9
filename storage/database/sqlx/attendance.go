package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/attendance"
)

type AttendanceRepository struct {
	db core.DB
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

func NewAttendanceRepository(db core.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (repo *AttendanceRepository) ListAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Fact, error) {
	query := `SELECT student_id, class_id, date, status FROM attendance
		WHERE (coalesce(cardinality($1::text[]), 0) = 0 OR class_id = ANY($1))
		  AND (coalesce(cardinality($2::text[]), 0) = 0 OR student_id = ANY($2))
		  AND ($3::date IS NULL OR date >= $3)
		  AND ($4::date IS NULL OR date <= $4)
		ORDER BY date, student_id`
	args := []interface{}{
		pq.Array(filter.ClassIDs),
		pq.Array(filter.StudentIDs),
		null.NewTime(filter.From, !filter.From.IsZero()),
		null.NewTime(filter.To, !filter.To.IsZero()),
	}
	facts := make([]attendance.Fact, 0)
	if err := repo.db.SelectContext(ctx, &facts, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	return facts, nil
}

// RecordAttendance upserts the daily attendance facts.
func (repo *AttendanceRepository) RecordAttendance(ctx context.Context, facts ...attendance.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	query := `INSERT INTO attendance (student_id, class_id, date, status)
		VALUES (:student_id, :class_id, :date, :status)
		ON CONFLICT (student_id, class_id, date) DO UPDATE SET status = EXCLUDED.status`
	return inTx(ctx, repo.db, func(tx core.DBTransactor) error {
		for _, f := range facts {
			if !f.Status.Valid() {
				return core.NewValidationError(errors.Errorf("invalid attendance status %q", f.Status))
			}
			if _, err := tx.NamedExecContext(ctx, query, f); err != nil {
				return errors.Wrap(err, "inserting attendance")
			}
		}
		return nil
	})
}
