package migrations

import (
	"context"
	"testing"

	"github.com/snapflowhq/snapflow/internal/database"
)

func TestAdminMigrationsApply(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Admin(ctx, db); err != nil {
		t.Fatalf("admin migrations: %v", err)
	}
	// Re-running is a no-op.
	if err := Admin(ctx, db); err != nil {
		t.Fatalf("admin migrations rerun: %v", err)
	}

	for _, table := range []string{"admins", "admin_sessions", "projects"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s: %v", table, err)
		}
	}
}

func TestProjectMigrationsApply(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Project(ctx, db); err != nil {
		t.Fatalf("project migrations: %v", err)
	}

	for _, table := range []string{"experiences", "events", "guests", "sessions"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s: %v", table, err)
		}
	}
}
