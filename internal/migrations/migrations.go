// Package migrations applies embedded goose migrations. The shared admin
// database and the per-project databases have separate schemas, so each
// gets its own migration directory.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	gdb "github.com/pressly/goose/v3/database"
)

//go:embed admin/*.sql project/*.sql
var files embed.FS

// Admin applies all pending migrations for the shared admin database.
func Admin(ctx context.Context, db *sql.DB) error {
	return run(ctx, db, "admin")
}

// Project applies all pending migrations for a per-project database.
// The registry calls this every time it opens a project store, so new
// migrations roll out lazily as projects are touched.
func Project(ctx context.Context, db *sql.DB) error {
	return run(ctx, db, "project")
}

func run(ctx context.Context, db *sql.DB, dir string) error {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		return fmt.Errorf("locating %s migrations: %w", dir, err)
	}
	provider, err := goose.NewProvider(gdb.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("creating %s migration provider: %w", dir, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("running %s migrations: %w", dir, err)
	}
	return nil
}
