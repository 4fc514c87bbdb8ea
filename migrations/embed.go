// Package migrations holds the SQLite schema. Importing it registers the
// embedded .sql files with the database package.
package migrations

import (
	"embed"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/database"
)

//go:embed *.up.sql *.down.sql
var schema embed.FS

func init() {
	database.MigrationsFS = schema
	database.MigrationsDir = "."
}
