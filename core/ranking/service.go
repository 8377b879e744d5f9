package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/aggregate"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

var NowFunc = time.Now // mockable

type (
	// Summary is the stored monthly rollup of a student's grades in a class.
	Summary struct {
		StudentID          string    `json:"student_id" db:"student_id"`
		ClassID            string    `json:"class_id" db:"class_id"`
		Month              string    `json:"month" db:"month"`
		MonthNumber        int       `json:"month_number" db:"month_number"`
		Year               int       `json:"year" db:"year"`
		TotalScore         float64   `json:"total_score" db:"total_score"`
		TotalMaxScore      int       `json:"total_max_score" db:"total_max_score"`
		TotalWeightedScore float64   `json:"total_weighted_score" db:"total_weighted_score"`
		TotalCoefficient   float64   `json:"total_coefficient" db:"total_coefficient"`
		Average            float64   `json:"average" db:"average"`
		LetterGrade        string    `json:"letter_grade" db:"letter_grade"`
		ClassRank          int       `json:"class_rank" db:"class_rank"`
		UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
	}

	SummaryRepository interface {
		// SaveSummaries replaces the summaries of a class for a period in one unit of work:
		// summaries of students missing from the set are removed.
		SaveSummaries(ctx context.Context, classID string, period core.Period, summaries []Summary) error
		ListSummaries(ctx context.Context, classID string, period core.Period) ([]Summary, error)
	}

	Service struct {
		schools   school.Repository
		resolver  *subject.Resolver
		grades    grade.Repository
		summaries SummaryRepository
		logger    core.Logger
	}
)

func NewService(
	schools school.Repository,
	resolver *subject.Resolver,
	grades grade.Repository,
	summaries SummaryRepository,
	logger core.Logger,
) *Service {
	return &Service{
		schools:   schools,
		resolver:  resolver,
		grades:    grades,
		summaries: summaries,
		logger:    logger,
	}
}

// RefreshSummaries recomputes every student summary of the class for the period,
// re-ranks the whole class and saves the result. Summaries are returned in roster order.
func (svc *Service) RefreshSummaries(ctx context.Context, classID string, period core.Period) ([]Summary, error) {
	if !period.Valid() {
		return nil, core.NewValidationError(fmt.Errorf("invalid period %q", period))
	}
	class, err := svc.schools.GetClass(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "getting class")
	}
	subjects, err := svc.resolver.Resolve(ctx, class.Grade, class.Track)
	if err != nil {
		return nil, errors.Wrap(err, "resolving subjects")
	}
	students, err := svc.schools.ListStudents(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	recs, err := svc.grades.QueryRecords(ctx, grade.Filter{ClassIDs: []string{classID}, Year: period.Year, Month: period.Month})
	if err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}
	scores := grade.ScoresByStudent(recs)

	now := NowFunc().UTC()
	summaries := make([]Summary, 0, len(students))
	cohort := make([]Entry, 0, len(students))
	for _, st := range students {
		res := aggregate.Aggregate(st.ID, subjects, scores[st.ID], aggregate.ReportGradeBand)
		cohort = append(cohort, Entry{StudentID: st.ID, Average: res.Average})
		summaries = append(summaries, Summary{
			StudentID:          st.ID,
			ClassID:            classID,
			Month:              period.MonthName(),
			MonthNumber:        int(period.Month),
			Year:               period.Year,
			TotalScore:         res.TotalScore,
			TotalMaxScore:      res.TotalMaxScore,
			TotalWeightedScore: res.TotalWeightedScore,
			TotalCoefficient:   res.TotalCoefficient,
			Average:            res.Average,
			LetterGrade:        res.LetterGrade,
			UpdatedAt:          now,
		})
	}
	ranks := Ranks(Rank(cohort))
	for i := range summaries {
		summaries[i].ClassRank = ranks[summaries[i].StudentID]
	}

	if err = svc.summaries.SaveSummaries(ctx, classID, period, summaries); err != nil {
		return nil, errors.Wrap(err, "saving summaries")
	}
	svc.logger.Info(fmt.Sprintf("refreshed %d summaries for class %s (%s)", len(summaries), classID, period))
	return summaries, nil
}

func (svc *Service) ListSummaries(ctx context.Context, classID string, period core.Period) ([]Summary, error) {
	if _, err := svc.schools.GetClass(ctx, classID); err != nil {
		return nil, errors.Wrap(err, "getting class")
	}
	return svc.summaries.ListSummaries(ctx, classID, period)
}
