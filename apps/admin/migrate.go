package main

import (
	"database/sql"

	"github.com/trezcool/masomo-grading/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func migrator(db *sql.DB) func(args []string) error {
	return func(args []string) error {
		return runMigrationsFunc(db, args[0], args[1:]...)
	}
}
