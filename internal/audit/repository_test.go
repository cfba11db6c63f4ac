package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/database"
	_ "github.com/nerrad567/smartlock-core/migrations" // registers schema
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_FillsIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)

	entry := &Entry{Action: ActionUnlock, Source: SourceAdmin}
	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" || entry.ID[:4] != "aud-" {
		t.Errorf("ID = %q, want aud- prefix", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestList_FiltersAndOrders(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionAccessGranted, Subject: "Alice", Source: SourceRecognition, CreatedAt: base},
		{Action: ActionAutoRelock, Source: SourceSystem, CreatedAt: base.Add(3 * time.Second)},
		{Action: ActionLockdown, Source: SourceAdmin, CreatedAt: base.Add(time.Minute),
			Details: map[string]any{"alarm": "10s"}},
		{Action: ActionAccessGranted, Subject: "Bob", Source: SourceRecognition, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
	}{
		{"all, newest first", Filter{}, 4, ActionAccessGranted},
		{"by action", Filter{Action: ActionAccessGranted}, 2, ActionAccessGranted},
		{"by subject", Filter{Subject: "Alice"}, 1, ActionAccessGranted},
		{"by source", Filter{Source: SourceAdmin}, 1, ActionLockdown},
		{"since", Filter{Since: base.Add(30 * time.Second)}, 2, ActionAccessGranted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Entries) != tt.wantTotal {
				t.Fatalf("Total=%d len=%d, want %d", res.Total, len(res.Entries), tt.wantTotal)
			}
			if res.Entries[0].Action != tt.wantFirst {
				t.Errorf("first action = %q, want %q", res.Entries[0].Action, tt.wantFirst)
			}
		})
	}

	res, _ := repo.List(ctx, Filter{Source: SourceAdmin})
	if got := res.Entries[0].Details["alarm"]; got != "10s" {
		t.Errorf("details round trip = %v, want 10s", got)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := newTestRepo(t)

	res, err := repo.List(context.Background(), Filter{Limit: 10_000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != maxListLimit || res.Offset != 0 {
		t.Errorf("Limit=%d Offset=%d, want %d/0", res.Limit, res.Offset, maxListLimit)
	}
	if res.Entries == nil {
		t.Error("Entries should be empty, not nil")
	}
}
