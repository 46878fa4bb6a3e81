package tiercache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupSQLStore(t *testing.T) *SQLBulkStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLBulkStore(db, "", DialectSQLite)
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return s
}

func TestSQLBulkStoreRoundTrip(t *testing.T) {
	s := setupSQLStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("payload"), time.Now()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("expected %q, got %q", "payload", got)
	}
}

func TestSQLBulkStoreMiss(t *testing.T) {
	s := setupSQLStore(t)

	got, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected (nil, nil) for a miss, got %q", got)
	}
}

func TestSQLBulkStoreUpsert(t *testing.T) {
	s := setupSQLStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v1"), time.Now()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v2"), time.Now()); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("expected upsert to replace data, got %q", got)
	}
}

func TestSQLBulkStoreDelete(t *testing.T) {
	s := setupSQLStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), time.Now()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := s.Get(ctx, "k"); got != nil {
		t.Error("expected key to be gone after delete")
	}
}

func TestSQLBulkStoreDeleteOlderThan(t *testing.T) {
	s := setupSQLStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.Set(ctx, "old", []byte("v"), now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "fresh", []byte("v"), now); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	removed, err := s.DeleteOlderThan(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 row removed, got %d", removed)
	}
	if got, _ := s.Get(ctx, "old"); got != nil {
		t.Error("expected stale row to be removed")
	}
	if got, _ := s.Get(ctx, "fresh"); got == nil {
		t.Error("expected fresh row to survive")
	}
}

func TestSQLBulkStoreClear(t *testing.T) {
	s := setupSQLStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		if err := s.Set(ctx, k, []byte("v"), time.Now()); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got, _ := s.Get(ctx, "a"); got != nil {
		t.Error("expected store to be empty after clear")
	}
}

func TestSQLBulkStoreEndToEnd(t *testing.T) {
	// The full orchestrator storing a large value in the SQL bulk tier.
	s := setupSQLStore(t)
	c := New(
		WithCleanupInterval(0),
		WithBulkStore(s),
		WithBroadcaster(&fakeBroadcaster{}),
	)
	ctx := context.Background()

	big := make([]byte, 2<<20)
	for i := range big {
		big[i] = byte(i % 251)
	}
	if err := Set(ctx, c, "blob_1", big); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	c.memory.clear()

	got, ok, err := Get[[]byte](ctx, c, "blob_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || len(got) != len(big) {
		t.Errorf("expected bulk-tier hit of %d bytes, got ok=%v len=%d", len(big), ok, len(got))
	}
}
