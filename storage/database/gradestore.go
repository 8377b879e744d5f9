package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
	"github.com/trezcool/masomo-grading/core/grade"
	"github.com/trezcool/masomo-grading/storage/database/mongodb"
	"github.com/trezcool/masomo-grading/storage/database/sqlx"
)

// OpenGradeStore returns the grade record storage selected by conf.Grades.Store
// and its closer. The postgres store shares db.
func OpenGradeStore(ctx context.Context, conf *core.Config, db *sqlx.DB) (grade.Repository, func() error, error) {
	switch conf.Grades.Store {
	case core.StorePostgres:
		return sqlxrepos.NewGradeRepository(db), func() error { return nil }, nil
	case core.StoreMongo:
		client, mdb, err := mongodb.Connect(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		repo := mongodb.NewGradeRepository(client, mdb)
		if err = repo.EnsureIndexes(ctx); err != nil {
			_ = mongodb.Disconnect(client)
			return nil, nil, err
		}
		return repo, func() error { return mongodb.Disconnect(client) }, nil
	default:
		return nil, nil, errors.Errorf("unknown grade store %q", conf.Grades.Store)
	}
}
