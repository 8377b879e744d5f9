package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/masomo-grading/core"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	out      io.Writer
	migrate  func(args []string) error
	importer gradeImporter
	ranking  summaryRefresher
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                 - run goose migrations (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  import -class ID -month MONTH -year YEAR -file PATH    - import a CSV grade sheet")
	fmt.Fprintln(cli.out, "  summaries -class ID -month MONTH -year YEAR            - recompute & rank the monthly summaries")
}

// periodFlags registers the -class, -month & -year flags shared by the grading commands.
type periodFlags struct {
	classID *string
	month   *string
	year    *int
}

func newPeriodFlags(fs *flag.FlagSet) periodFlags {
	return periodFlags{
		classID: fs.String("class", "", "The class ID."),
		month:   fs.String("month", "", "The month: name, 3-letter name or number."),
		year:    fs.Int("year", 0, "The year."),
	}
}

func (pf periodFlags) parse(fs *flag.FlagSet) (string, core.Period, error) {
	if *pf.classID == "" || *pf.month == "" || *pf.year <= 0 {
		fs.Usage()
		return "", core.Period{}, errHelp
	}
	month, err := core.ParseMonth(*pf.month)
	if err != nil {
		return "", core.Period{}, err
	}
	return *pf.classID, core.NewPeriod(month, *pf.year), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importCmd.SetOutput(cli.out)
	importPeriod := newPeriodFlags(importCmd)
	importFile := importCmd.String("file", "", "Path of the CSV grade sheet.")

	summariesCmd := flag.NewFlagSet("summaries", flag.ContinueOnError)
	summariesCmd.SetOutput(cli.out)
	summariesPeriod := newPeriodFlags(summariesCmd)

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		classID, period, err := importPeriod.parse(importCmd)
		if err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importGrades(classID, period, *importFile)
	case "summaries":
		if err := summariesCmd.Parse(args[2:]); err != nil {
			return err
		}
		classID, period, err := summariesPeriod.parse(summariesCmd)
		if err != nil {
			return err
		}
		return cli.refreshSummaries(classID, period)
	default:
		cli.printUsage()
		return errHelp
	}
}
