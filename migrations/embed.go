// Package migrations embeds the hub's SQL migration files into the
// binary, so schema upgrades need no files on disk.
package migrations

import (
	"embed"

	"github.com/hearth-home/hearth-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the root of the embed
}
