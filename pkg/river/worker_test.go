package river

import (
	"context"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"tiercache/pkg/tiercache"
)

func TestCleanupArgsKind(t *testing.T) {
	if got := (CleanupArgs{}).Kind(); got != "tiercache_cleanup" {
		t.Errorf("expected kind tiercache_cleanup, got %q", got)
	}
}

func TestCleanupWorkerWork(t *testing.T) {
	cache := tiercache.New(tiercache.WithCleanupInterval(0))
	defer cache.Close()
	w := NewCleanupWorker(cache)

	job := &river.Job[CleanupArgs]{
		JobRow: &rivertype.JobRow{
			ID:        1,
			Kind:      "tiercache_cleanup",
			Attempt:   1,
			CreatedAt: time.Now(),
		},
		Args: CleanupArgs{},
	}

	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work failed: %v", err)
	}
}

func TestCleanupWorkerCancelledContext(t *testing.T) {
	cache := tiercache.New(tiercache.WithCleanupInterval(0))
	defer cache.Close()
	w := NewCleanupWorker(cache)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &river.Job[CleanupArgs]{
		JobRow: &rivertype.JobRow{ID: 2, Kind: "tiercache_cleanup"},
		Args:   CleanupArgs{},
	}

	err := w.Work(ctx, job)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestNewPeriodicCleanupJob(t *testing.T) {
	job := NewPeriodicCleanupJob(time.Minute)
	if job == nil {
		t.Fatal("expected a periodic job definition")
	}
}
