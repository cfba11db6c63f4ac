// Package migrations embeds the Smart Lock schema into the binary.
//
// Importing this package (usually with a blank import from main) registers
// the files with the database package so db.Migrate needs nothing on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
