package aggregate

import (
	"math"

	"github.com/trezcool/masomo-grading/core/subject"
)

// NotGraded is the percentage of a subject without a recorded score. It is distinct from 0%.
const NotGraded = -1.0

type (
	SubjectResult struct {
		SubjectID   string   `json:"subject_id"`
		Score       *float64 `json:"score"`
		MaxScore    int      `json:"max_score"`
		Coefficient float64  `json:"coefficient"`
		Percentage  float64  `json:"percentage"`
		// Level is the SubjectLevelBand letter, empty when not graded.
		Level string `json:"level,omitempty"`
	}

	Result struct {
		StudentID          string          `json:"student_id"`
		Subjects           []SubjectResult `json:"subjects"`
		TotalScore         float64         `json:"total_score"`
		TotalMaxScore      int             `json:"total_max_score"`
		TotalWeightedScore float64         `json:"total_weighted_score"`
		TotalCoefficient   float64         `json:"total_coefficient"`
		Average            float64         `json:"average"`
		LetterGrade        string          `json:"letter_grade"`
		GradedCount        int             `json:"graded_count"`
	}
)

// Aggregate computes a student's totals over the full eligible subject list.
// A missing score contributes 0 to the total but its coefficient still counts.
func Aggregate(studentID string, subjects []subject.Subject, scores map[string]*float64, band Band) Result {
	res := Result{
		StudentID: studentID,
		Subjects:  make([]SubjectResult, 0, len(subjects)),
	}
	for _, subj := range subjects {
		sr := SubjectResult{
			SubjectID:   subj.ID,
			MaxScore:    subj.MaxScore,
			Coefficient: subj.Coefficient,
			Percentage:  NotGraded,
		}
		res.TotalCoefficient += subj.Coefficient
		res.TotalMaxScore += subj.MaxScore

		if score := scores[subj.ID]; score != nil {
			v := *score
			sr.Score = &v
			sr.Percentage = Percentage(v, subj.MaxScore)
			sr.Level = SubjectLevelBand.Grade(sr.Percentage)
			res.TotalScore += v
			res.TotalWeightedScore += v * subj.Coefficient
			res.GradedCount++
		}
		res.Subjects = append(res.Subjects, sr)
	}
	if res.TotalCoefficient > 0 {
		res.Average = res.TotalScore / res.TotalCoefficient
	}
	res.LetterGrade = band.Grade(res.Average)
	return res
}

// Percentage returns score over maxScore, scaled to 100.
func Percentage(score float64, maxScore int) float64 {
	if maxScore <= 0 {
		return NotGraded
	}
	return score / float64(maxScore) * 100
}

// Round rounds half away from zero to `places` decimals. Presentation only.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
