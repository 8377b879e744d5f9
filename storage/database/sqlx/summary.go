package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/ranking"
)

const summaryColumns = `student_id, class_id, month, month_number, year, total_score, total_max_score,
	total_weighted_score, total_coefficient, average, letter_grade, class_rank, updated_at`

type SummaryRepository struct {
	db core.DB
}

var _ ranking.SummaryRepository = (*SummaryRepository)(nil)

func NewSummaryRepository(db core.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (repo *SummaryRepository) SaveSummaries(ctx context.Context, classID string, period core.Period, summaries []ranking.Summary) error {
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.StudentID)
	}
	prune := `DELETE FROM student_monthly_summary
		WHERE class_id = $1 AND month = $2 AND year = $3 AND NOT (student_id = ANY($4))`
	query := `INSERT INTO student_monthly_summary (` + summaryColumns + `)
		VALUES (:student_id, :class_id, :month, :month_number, :year, :total_score, :total_max_score,
			:total_weighted_score, :total_coefficient, :average, :letter_grade, :class_rank, :updated_at)
		ON CONFLICT (student_id, class_id, month, year) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			total_max_score = EXCLUDED.total_max_score,
			total_weighted_score = EXCLUDED.total_weighted_score,
			total_coefficient = EXCLUDED.total_coefficient,
			average = EXCLUDED.average,
			letter_grade = EXCLUDED.letter_grade,
			class_rank = EXCLUDED.class_rank,
			updated_at = EXCLUDED.updated_at`
	return inTx(ctx, repo.db, func(tx core.DBTransactor) error {
		if _, err := tx.ExecContext(ctx, prune, classID, period.MonthName(), period.Year, pq.Array(ids)); err != nil {
			return errors.Wrap(err, "pruning summaries")
		}
		for _, s := range summaries {
			if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
				return errors.Wrapf(err, "saving summary of student %s", s.StudentID)
			}
		}
		return nil
	})
}

func (repo *SummaryRepository) ListSummaries(ctx context.Context, classID string, period core.Period) ([]ranking.Summary, error) {
	query := `SELECT ` + summaryColumns + ` FROM student_monthly_summary
		WHERE class_id = $1 AND month = $2 AND year = $3
		ORDER BY class_rank, student_id`
	summaries := make([]ranking.Summary, 0)
	if err := repo.db.SelectContext(ctx, &summaries, query, classID, period.MonthName(), period.Year); err != nil {
		return nil, errors.Wrap(err, "selecting summaries")
	}
	return summaries, nil
}
