package tiercache

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) *RedisScalarStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisScalarStore(client, "")
}

func TestRedisScalarStoreRoundTrip(t *testing.T) {
	s := setupRedisStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("payload")); err != nil {
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

func TestRedisScalarStoreMiss(t *testing.T) {
	s := setupRedisStore(t)

	got, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected (nil, nil) for a miss, got %q", got)
	}
}

func TestRedisScalarStoreDelete(t *testing.T) {
	s := setupRedisStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := s.Get(ctx, "k"); got != nil {
		t.Error("expected key to be gone after delete")
	}

	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestRedisScalarStoreKeys(t *testing.T) {
	s := setupRedisStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("expected [a b c], got %v", keys)
	}
}

func TestRedisScalarStoreClear(t *testing.T) {
	s := setupRedisStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected empty store, got %v", keys)
	}
}

func TestRedisScalarStoreQuota(t *testing.T) {
	s := setupRedisStore(t)
	s.MaxKeys = 2
	ctx := context.Background()

	if err := s.Set(ctx, "a", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "b", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	err := s.Set(ctx, "c", []byte("v"))
	if !errors.Is(err, ErrScalarCapacity) {
		t.Fatalf("expected ErrScalarCapacity, got %v", err)
	}

	// Overwriting an existing key does not grow the store past the quota.
	if err := s.Set(ctx, "a", []byte("v2")); err != nil {
		t.Errorf("overwrite at quota failed: %v", err)
	}
}

func TestRedisScalarStorePrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	a := NewRedisScalarStore(client, "app_a:")
	b := NewRedisScalarStore(client, "app_b:")

	if err := a.Set(ctx, "k", []byte("from a")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if got, _ := b.Get(ctx, "k"); got != nil {
		t.Error("prefixes must isolate stores sharing one Redis")
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys under app_b prefix, got %v", keys)
	}
}

func TestRedisScalarStoreEndToEnd(t *testing.T) {
	// The full orchestrator against a real (mini) Redis scalar tier.
	s := setupRedisStore(t)
	c := New(WithCleanupInterval(0), WithScalarStore(s))
	ctx := context.Background()

	if err := Set(ctx, c, "profile_9", profile{Name: "Z"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	c.memory.clear()

	got, ok, err := Get[profile](ctx, c, "profile_9")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || got.Name != "Z" {
		t.Errorf("expected redis-tier hit with Name Z, got ok=%v name=%q", ok, got.Name)
	}
}
