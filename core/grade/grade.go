package grade

import (
	"context"
	"time"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/aggregate"
	"github.com/trezcool/masomo-grading/core/subject"
)

var NowFunc = time.Now // mockable

type (
	// Record is a stored score. (StudentID, SubjectID, ClassID, Month, Year) is unique.
	Record struct {
		ID          string `json:"id"`
		StudentID   string `json:"student_id"`
		SubjectID   string `json:"subject_id"`
		ClassID     string `json:"class_id"`
		Month       string `json:"month"`
		MonthNumber int    `json:"month_number"`
		Year        int    `json:"year"`
		// Score is nil when not graded.
		Score         *float64  `json:"score"`
		MaxScore      int       `json:"max_score"`
		Percentage    *float64  `json:"percentage"`
		WeightedScore *float64  `json:"weighted_score"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	Key struct {
		StudentID string `json:"student_id"`
		SubjectID string `json:"subject_id"`
	}

	// Filter narrows QueryRecords. Empty slices and zero values are ignored.
	Filter struct {
		ClassIDs   []string
		Year       int
		Month      time.Month
		SubjectIDs []string
		StudentIDs []string
	}

	Repository interface {
		// FindRecords fetches, in one round trip, the class records of the period matching keys.
		FindRecords(ctx context.Context, classID string, period core.Period, keys []Key) ([]Record, error)
		// InsertRecords bulk inserts recs, skipping those whose natural key already exists.
		// It returns the number of records actually inserted.
		InsertRecords(ctx context.Context, recs []Record) (int, error)
		// UpdateRecords updates recs by ID in a single transaction.
		UpdateRecords(ctx context.Context, recs []Record) error
		QueryRecords(ctx context.Context, filter Filter) ([]Record, error)
	}
)

func (r Record) Key() Key {
	return Key{StudentID: r.StudentID, SubjectID: r.SubjectID}
}

// Period returns the record's reporting month.
func (r Record) Period() core.Period {
	return core.NewPeriod(time.Month(r.MonthNumber), r.Year)
}

// setScore stores score and the fields derived from it and the subject.
func (r *Record) setScore(score *float64, subj subject.Subject) {
	r.MaxScore = subj.MaxScore
	r.Score, r.Percentage, r.WeightedScore = nil, nil, nil
	if score == nil {
		return
	}
	v := *score
	pct := aggregate.Percentage(v, subj.MaxScore)
	weighted := v * subj.Coefficient
	r.Score, r.Percentage, r.WeightedScore = &v, &pct, &weighted
}

// ScoresByStudent indexes record scores by student then subject.
func ScoresByStudent(recs []Record) map[string]map[string]*float64 {
	scores := make(map[string]map[string]*float64)
	for _, rec := range recs {
		byStudent, ok := scores[rec.StudentID]
		if !ok {
			byStudent = make(map[string]*float64)
			scores[rec.StudentID] = byStudent
		}
		byStudent[rec.SubjectID] = rec.Score
	}
	return scores
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
