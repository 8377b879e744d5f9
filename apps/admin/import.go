package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/gradeimport"
)

type gradeImporter interface {
	Import(ctx context.Context, classID string, period core.Period, table gradeimport.Table) (gradeimport.Result, error)
}

func (cli *commandLine) importGrades(classID string, period core.Period, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening grade sheet")
	}
	defer func() { _ = f.Close() }()

	table, err := gradeimport.ReadCSV(f)
	if err != nil {
		return err
	}
	res, err := cli.importer.Import(context.Background(), classID, period, table)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s (%s): %d rows read; created=%d updated=%d skipped=%d failed=%d\n",
		classID, period, res.Rows, res.Created, res.Updated, res.Skipped, res.Failed())
	for _, e := range res.Errors {
		fmt.Fprintf(cli.out, "  line %d: %s\n", e.Row, e.Reason)
	}
	for _, be := range res.BatchErrors {
		fmt.Fprintf(cli.out, "  batch %d (%d records): %s\n", be.Batch, len(be.Keys), be.Message)
	}
	return nil
}
