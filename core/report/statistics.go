package report

import (
	"context"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/aggregate"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/school"
)

type (
	GenderCount struct {
		Male   int `json:"male"`
		Female int `json:"female"`
		Total  int `json:"total"`
	}

	LetterCount struct {
		Letter string `json:"letter"`
		GenderCount
	}

	SubjectStatistics struct {
		Subject SubjectColumn `json:"subject"`
		// Levels buckets the graded students by SubjectLevelBand.
		Levels []LetterCount `json:"levels"`
		Graded GenderCount   `json:"graded"`
	}

	Statistics struct {
		Class    school.Class `json:"class"`
		Period   core.Period  `json:"period"`
		Students GenderCount  `json:"students"`
		// Grades buckets every student's average by ReportGradeBand.
		Grades   []LetterCount       `json:"grades"`
		Pass     GenderCount         `json:"pass"`
		Fail     GenderCount         `json:"fail"`
		Subjects []SubjectStatistics `json:"subjects"`
		Mean     float64             `json:"mean"`
		Median   float64             `json:"median"`
		StdDev   float64             `json:"std_dev"`
	}
)

func (gc *GenderCount) add(g school.Gender) {
	switch g {
	case school.GenderMale:
		gc.Male++
	case school.GenderFemale:
		gc.Female++
	}
	gc.Total++
}

func newDistribution(band aggregate.Band) ([]LetterCount, map[string]int) {
	letters := band.Letters()
	dist := make([]LetterCount, 0, len(letters))
	idx := make(map[string]int, len(letters))
	for i, l := range letters {
		dist = append(dist, LetterCount{Letter: l})
		idx[l] = i
	}
	return dist, idx
}

// Statistics buckets the students of a class month, and each subject's graded students, by letter
// and gender. Nobody is ranked. A student passes with a report-band average of at least PassAverage.
func (svc *Service) Statistics(ctx context.Context, classID string, period core.Period) (Statistics, error) {
	if err := validatePeriod(period); err != nil {
		return Statistics{}, err
	}
	data, err := svc.loadClass(ctx, classID, grade.Filter{Year: period.Year, Month: period.Month})
	if err != nil {
		return Statistics{}, err
	}

	st := Statistics{Class: data.class, Period: period, Subjects: make([]SubjectStatistics, 0, len(data.subjects))}
	var gradeIdx map[string]int
	st.Grades, gradeIdx = newDistribution(aggregate.ReportGradeBand)

	levelIdx := make([]map[string]int, 0, len(data.subjects))
	for _, col := range columns(data.subjects) {
		ss := SubjectStatistics{Subject: col}
		var idx map[string]int
		ss.Levels, idx = newDistribution(aggregate.SubjectLevelBand)
		st.Subjects = append(st.Subjects, ss)
		levelIdx = append(levelIdx, idx)
	}

	scores := grade.ScoresByStudent(data.records)
	averages := make(stats.Float64Data, 0, len(data.students))
	for _, student := range data.students {
		res := aggregate.Aggregate(student.ID, data.subjects, scores[student.ID], aggregate.ReportGradeBand)
		averages = append(averages, res.Average)

		st.Students.add(student.Gender)
		st.Grades[gradeIdx[res.LetterGrade]].add(student.Gender)
		if res.Average >= aggregate.PassAverage {
			st.Pass.add(student.Gender)
		} else {
			st.Fail.add(student.Gender)
		}

		for i, sr := range res.Subjects {
			if sr.Score == nil {
				continue
			}
			ss := &st.Subjects[i]
			ss.Graded.add(student.Gender)
			ss.Levels[levelIdx[i][sr.Level]].add(student.Gender)
		}
	}

	if len(averages) > 0 {
		if st.Mean, err = averages.Mean(); err != nil {
			return st, errors.Wrap(err, "computing mean")
		}
		if st.Median, err = averages.Median(); err != nil {
			return st, errors.Wrap(err, "computing median")
		}
		if st.StdDev, err = averages.StandardDeviation(); err != nil {
			return st, errors.Wrap(err, "computing standard deviation")
		}
		st.Mean = aggregate.Round(st.Mean, decimals)
		st.Median = aggregate.Round(st.Median, decimals)
		st.StdDev = aggregate.Round(st.StdDev, decimals)
	}
	return st, nil
}
