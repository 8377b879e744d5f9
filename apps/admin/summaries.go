package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/aggregate"
	"github.com/trezcool/masomo-grading/core/ranking"
)

type summaryRefresher interface {
	RefreshSummaries(ctx context.Context, classID string, period core.Period) ([]ranking.Summary, error)
}

func (cli *commandLine) refreshSummaries(classID string, period core.Period) error {
	summaries, err := cli.ranking.RefreshSummaries(context.Background(), classID, period)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s (%s): %d summaries\n", classID, period, len(summaries))
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSTUDENT\tAVERAGE\tGRADE")
	for _, s := range summaries {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\n", s.ClassRank, s.StudentID, aggregate.Round(s.Average, 2), s.LetterGrade)
	}
	return w.Flush()
}
