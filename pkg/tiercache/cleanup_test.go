package tiercache

import (
	"context"
	"testing"
	"time"
)

func TestRunCleanupRemovesExpiredEntries(t *testing.T) {
	clock := newFakeClock()
	scalar := newFakeScalar()
	bulk := newFakeBulk()
	c := New(
		WithCleanupInterval(0),
		WithClock(clock.Now),
		WithScalarStore(scalar),
		WithBulkStore(bulk),
		WithBroadcaster(&fakeBroadcaster{}),
	)
	ctx := context.Background()

	if err := Set(ctx, c, "short", profile{Name: "A"}, WithTTL(time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Set(ctx, c, "long", profile{Name: "B"}, WithTTL(time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(5 * time.Minute)
	res := c.RunCleanup(ctx)

	if res.MemoryRemoved != 1 {
		t.Errorf("expected 1 memory entry removed, got %d", res.MemoryRemoved)
	}
	if res.ScalarRemoved != 1 {
		t.Errorf("expected 1 scalar entry removed, got %d", res.ScalarRemoved)
	}
	if scalar.has(storageKey("short")) {
		t.Error("expected expired scalar entry to be removed")
	}
	if !scalar.has(storageKey("long")) {
		t.Error("expected live scalar entry to survive")
	}
}

func TestRunCleanupBulkRetention(t *testing.T) {
	clock := newFakeClock()
	bulk := newFakeBulk()
	c := New(
		WithCleanupInterval(0),
		WithClock(clock.Now),
		WithBulkStore(bulk),
		WithDefaultTTL(time.Hour),
		WithBroadcaster(&fakeBroadcaster{}),
	)
	ctx := context.Background()

	now := clock.Now()
	if err := bulk.Set(ctx, storageKey("stale"), []byte("x"), now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := bulk.Set(ctx, storageKey("fresh"), []byte("x"), now.Add(-time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	res := c.RunCleanup(ctx)

	if res.BulkRemoved != 1 {
		t.Errorf("expected 1 bulk row removed, got %d", res.BulkRemoved)
	}
	if bulk.len() != 1 {
		t.Errorf("expected 1 surviving bulk row, got %d", bulk.len())
	}
}

func TestRunCleanupRemovesCorruptScalarEntries(t *testing.T) {
	scalar := newFakeScalar()
	c := New(
		WithCleanupInterval(0),
		WithScalarStore(scalar),
		WithBroadcaster(&fakeBroadcaster{}),
	)
	ctx := context.Background()

	if err := scalar.Set(ctx, storageKey("garbled"), []byte("not an envelope")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	res := c.RunCleanup(ctx)
	if res.ScalarRemoved != 1 {
		t.Errorf("expected corrupt entry removed, got %d", res.ScalarRemoved)
	}
}

func TestRunCleanupSkipsSyncSignal(t *testing.T) {
	scalar := newFakeScalar()
	c := New(
		WithCleanupInterval(0),
		WithScalarStore(scalar),
	)
	ctx := context.Background()

	// Without a broadcaster the write path leaves a sync signal in the
	// scalar tier; the sweep must not treat it as a corrupt entry.
	if err := Set(ctx, c, "k", profile{Name: "A"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	res := c.RunCleanup(ctx)
	if res.ScalarRemoved != 0 {
		t.Errorf("expected no scalar removals, got %d", res.ScalarRemoved)
	}
	if !scalar.has(syncSignalKey) {
		t.Error("expected sync signal to survive the sweep")
	}
}

func TestCleanupTickerRuns(t *testing.T) {
	clock := newFakeClock()
	c := New(
		WithCleanupInterval(20*time.Millisecond),
		WithClock(clock.Now),
	)
	defer c.Close()
	ctx := context.Background()

	if err := Set(ctx, c, "k", profile{Name: "A"}, WithTTL(time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clock.Advance(5 * time.Minute)

	deadline := time.After(2 * time.Second)
	for {
		if c.memory.len() == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("ticker sweep never removed the expired entry")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
