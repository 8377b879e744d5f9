package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/aggregate"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/ranking"
	"github.com/trezcool/masomo-grading/core/school"
	"github.com/trezcool/masomo-grading/core/subject"
)

type (
	// TrackingFilter selects the tracking book's time axis and subjects.
	// Year is required; Month and SubjectID are optional.
	TrackingFilter struct {
		Year      int        `json:"year" query:"year"`
		Month     time.Month `json:"month" query:"month"`
		SubjectID string     `json:"subject_id" query:"subject_id"`
	}

	TrackingSubject struct {
		SubjectID string `json:"subject_id"`
		// Months is aligned with TrackingBook.Months.
		Months []Cell `json:"months"`
		// Overall is the mean of the recorded monthly scores.
		Overall    *float64 `json:"overall"`
		Percentage float64  `json:"percentage"`
		Level      string   `json:"level,omitempty"`
	}

	TrackingRow struct {
		Student          StudentRef        `json:"student"`
		Subjects         []TrackingSubject `json:"subjects"`
		TotalScore       float64           `json:"total_score"`
		TotalCoefficient float64           `json:"total_coefficient"`
		Average          float64           `json:"average"`
		LetterGrade      string            `json:"letter_grade"`
		// Rank is 0 for students without any recorded score.
		Rank int `json:"rank"`
	}

	TrackingBook struct {
		Class    school.Class    `json:"class"`
		Year     int             `json:"year"`
		Band     string          `json:"band"`
		Months   []core.Period   `json:"months"`
		Subjects []SubjectColumn `json:"subjects"`
		Rows     []TrackingRow   `json:"rows"`
	}
)

// TrackingBook renders per-subject percentages and levels of a class across the months of a year.
// Only students with at least one recorded score are ranked.
func (svc *Service) TrackingBook(ctx context.Context, classID string, filter TrackingFilter) (TrackingBook, error) {
	if filter.Year <= 0 {
		return TrackingBook{}, core.NewValidationError(fmt.Errorf("invalid year %d", filter.Year), core.FieldError{Field: "year", Error: "this field is required"})
	}
	if filter.Month != 0 && (filter.Month < time.January || filter.Month > time.December) {
		return TrackingBook{}, core.NewValidationError(fmt.Errorf("invalid month %d", filter.Month), core.FieldError{Field: "month", Error: "invalid month"})
	}

	gf := grade.Filter{Year: filter.Year, Month: filter.Month}
	if filter.SubjectID != "" {
		gf.SubjectIDs = []string{filter.SubjectID}
	}
	data, err := svc.loadClass(ctx, classID, gf)
	if err != nil {
		return TrackingBook{}, err
	}

	subjects := data.subjects
	if filter.SubjectID != "" {
		subj, ok := subject.Index(subjects)[filter.SubjectID]
		if !ok {
			return TrackingBook{}, subject.ErrNotFound
		}
		subjects = []subject.Subject{subj}
	}

	months := trackingMonths(data.records, filter)
	monthIdx := make(map[int]int, len(months))
	for i, p := range months {
		monthIdx[int(p.Month)] = i
	}

	// student -> subject -> month index -> score
	monthly := make(map[string]map[string][]*float64)
	for _, rec := range data.records {
		i, ok := monthIdx[rec.MonthNumber]
		if !ok {
			continue
		}
		bySubject, ok := monthly[rec.StudentID]
		if !ok {
			bySubject = make(map[string][]*float64)
			monthly[rec.StudentID] = bySubject
		}
		if bySubject[rec.SubjectID] == nil {
			bySubject[rec.SubjectID] = make([]*float64, len(months))
		}
		bySubject[rec.SubjectID][i] = rec.Score
	}

	band := aggregate.ReportGradeBand
	rows := make([]TrackingRow, 0, len(data.students))
	cohort := make([]ranking.Entry, 0, len(data.students))
	for _, st := range data.students {
		overall := make(map[string]*float64, len(subjects))
		row := TrackingRow{
			Student:  studentRef(st, data.class.Name),
			Subjects: make([]TrackingSubject, 0, len(subjects)),
		}
		for _, subj := range subjects {
			ts := TrackingSubject{SubjectID: subj.ID, Months: make([]Cell, 0, len(months)), Percentage: aggregate.NotGraded}
			var sum float64
			var n int
			for i := range months {
				cell := Cell{SubjectID: subj.ID, Percentage: aggregate.NotGraded, Applicable: true}
				if scores := monthly[st.ID][subj.ID]; scores != nil && scores[i] != nil {
					v := *scores[i]
					cell.Score = &v
					pct := aggregate.Percentage(v, subj.MaxScore)
					cell.Percentage = aggregate.Round(pct, decimals)
					cell.Level = aggregate.SubjectLevelBand.Grade(pct)
					sum += v
					n++
				}
				ts.Months = append(ts.Months, cell)
			}
			if n > 0 {
				mean := sum / float64(n)
				overall[subj.ID] = &mean
				pct := aggregate.Percentage(mean, subj.MaxScore)
				rounded := aggregate.Round(mean, decimals)
				ts.Overall = &rounded
				ts.Percentage = aggregate.Round(pct, decimals)
				ts.Level = aggregate.SubjectLevelBand.Grade(pct)
			}
			row.Subjects = append(row.Subjects, ts)
		}

		res := aggregate.Aggregate(st.ID, subjects, overall, band)
		row.TotalScore = aggregate.Round(res.TotalScore, decimals)
		row.TotalCoefficient = res.TotalCoefficient
		row.Average = aggregate.Round(res.Average, decimals)
		row.LetterGrade = res.LetterGrade
		if res.GradedCount > 0 {
			cohort = append(cohort, ranking.Entry{StudentID: st.ID, Average: res.Average})
		}
		rows = append(rows, row)
	}
	ranks := ranking.Ranks(ranking.Rank(cohort))
	for i := range rows {
		rows[i].Rank = ranks[rows[i].Student.ID]
	}

	return TrackingBook{
		Class:    data.class,
		Year:     filter.Year,
		Band:     band.Name,
		Months:   months,
		Subjects: columns(subjects),
		Rows:     rows,
	}, nil
}

// trackingMonths is the requested month, or every month of the year holding a record.
func trackingMonths(recs []grade.Record, filter TrackingFilter) []core.Period {
	if filter.Month != 0 {
		return []core.Period{core.NewPeriod(filter.Month, filter.Year)}
	}
	seen := make(map[int]struct{})
	months := make([]core.Period, 0)
	for _, rec := range recs {
		if _, ok := seen[rec.MonthNumber]; ok || rec.MonthNumber < 1 || rec.MonthNumber > 12 {
			continue
		}
		seen[rec.MonthNumber] = struct{}{}
		months = append(months, core.NewPeriod(time.Month(rec.MonthNumber), filter.Year))
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}
