package tiercache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupBroadcaster(t *testing.T) *RedisBroadcaster {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBroadcaster(client, "")
}

func TestRedisBroadcasterDelivery(t *testing.T) {
	b := setupBroadcaster(t)
	ctx := context.Background()

	received := make(chan SyncSignal, 1)
	stop := b.Subscribe(ctx, func(sig SyncSignal) {
		received <- sig
	})
	defer stop()

	// Give the subscriber a moment to register before publishing.
	time.Sleep(50 * time.Millisecond)

	sig := SyncSignal{Key: "profile_1", Timestamp: time.Now().UnixMilli()}
	if err := b.Announce(ctx, sig); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Key != "profile_1" {
			t.Errorf("expected key profile_1, got %q", got.Key)
		}
		if got.Timestamp != sig.Timestamp {
			t.Errorf("expected timestamp %d, got %d", sig.Timestamp, got.Timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync signal")
	}
}

func TestRedisBroadcasterStopEndsDelivery(t *testing.T) {
	b := setupBroadcaster(t)
	ctx := context.Background()

	received := make(chan SyncSignal, 4)
	stop := b.Subscribe(ctx, func(sig SyncSignal) {
		received <- sig
	})
	time.Sleep(50 * time.Millisecond)
	stop()
	time.Sleep(50 * time.Millisecond)

	if err := b.Announce(ctx, SyncSignal{Key: "k", Timestamp: 1}); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}

	select {
	case sig := <-received:
		t.Errorf("expected no delivery after stop, got %v", sig)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRedisBroadcasterEndToEnd(t *testing.T) {
	// An unscoped write on the cache announces to subscribed siblings.
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	b := NewRedisBroadcaster(client, "")

	received := make(chan SyncSignal, 1)
	stop := b.Subscribe(context.Background(), func(sig SyncSignal) {
		received <- sig
	})
	defer stop()
	time.Sleep(50 * time.Millisecond)

	c := New(WithCleanupInterval(0), WithBroadcaster(b))
	if err := Set(context.Background(), c, "settings", profile{Name: "S"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Key != "settings" {
			t.Errorf("expected signal for settings, got %q", got.Key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write announcement")
	}
}
