package database

import "embed"

// Migrations holds the goose SQL migrations, applied with Migrate or `admin migrate`.
//go:embed migrations/*.sql
var Migrations embed.FS
