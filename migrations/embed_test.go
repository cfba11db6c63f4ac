package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/database"
)

func openMigrated(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "smartlock.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestSchema_Tables(t *testing.T) {
	db := openMigrated(t)

	for _, table := range []string{"attendance", "audit_logs"} {
		var count int
		err := db.QueryRowContext(context.Background(),
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("table %s missing after Migrate", table)
		}
	}
}

func TestSchema_AttendanceUniquePerDay(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()

	insert := `INSERT OR IGNORE INTO attendance (name, time, date, created_at) VALUES (?, ?, ?, ?)`
	for _, tm := range []string{"09:00:00", "12:30:00"} {
		if _, err := db.ExecContext(ctx, insert, "Alice", tm, "2026-03-02", "2026-03-02T09:00:00Z"); err != nil {
			t.Fatalf("insert error = %v", err)
		}
	}
	if _, err := db.ExecContext(ctx, insert, "Alice", "09:00:00", "2026-03-03", "2026-03-03T09:00:00Z"); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance WHERE name = 'Alice'").Scan(&count); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 2 {
		t.Errorf("attendance rows = %d, want 2 (one per day)", count)
	}
}

func TestSchema_RollsBack(t *testing.T) {
	db := openMigrated(t)

	if err := db.MigrateDown(context.Background()); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	applied, pending, err := db.GetMigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 0/1", len(applied), len(pending))
	}
}
