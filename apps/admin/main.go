package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/core/gradeimport"
	"github.com/trezcool/masomo-grading/core/ranking"
	"github.com/trezcool/masomo-grading/core/subject"
	"github.com/trezcool/masomo-grading/services/logger"
	"github.com/trezcool/masomo-grading/storage/database"
	"github.com/trezcool/masomo-grading/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	gradeRepo, closeGrades, err := database.OpenGradeStore(context.Background(), conf, db)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening grade store: %v", err), err)
	}

	subjectRepo := sqlxrepos.NewSubjectRepository(db)
	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	resolver := subject.NewResolver(subjectRepo)
	reconciler := grade.NewReconciler(gradeRepo, subjectRepo, schoolRepo, validate, logger, conf.Grades.UpdateBatchSize)

	// start CLI
	cli := commandLine{
		out:      os.Stdout,
		migrate:  migrator(db.DB),
		importer: gradeimport.NewImporter(reconciler, schoolRepo, resolver, gradeimport.V1),
		ranking:  ranking.NewService(schoolRepo, resolver, gradeRepo, sqlxrepos.NewSummaryRepository(db), logger),
	}
	err = cli.run(os.Args)
	_ = closeGrades()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		os.Exit(1)
	}
}
