// Package river provides integration between tiercache and the River queue.
//
// Deployments already running River can drive the cache's cleanup sweep as
// a periodic job instead of the built-in ticker, which gives the sweep
// River's visibility, retries, and single-runner semantics across workers.
package river

import (
	"context"
	"time"

	"github.com/riverqueue/river"

	"tiercache/pkg/tiercache"
)

// CleanupArgs are the arguments for the periodic cleanup job.
type CleanupArgs struct{}

func (CleanupArgs) Kind() string { return "tiercache_cleanup" }

// CleanupWorker is a River worker that runs one cache cleanup sweep per job.
type CleanupWorker struct {
	river.WorkerDefaults[CleanupArgs]

	// Cache is the orchestrator whose tiers get swept. Construct it with
	// the built-in ticker disabled (WithCleanupInterval(0)) so River is the
	// only scheduler.
	Cache *tiercache.Cache
}

// NewCleanupWorker creates a cleanup worker for the given cache.
func NewCleanupWorker(c *tiercache.Cache) *CleanupWorker {
	return &CleanupWorker{Cache: c}
}

// Work runs one sweep. Sweeps absorb backend faults internally, so the job
// itself only fails on context cancellation.
func (w *CleanupWorker) Work(ctx context.Context, job *river.Job[CleanupArgs]) error {
	if err := ctx.Err(); err != nil {
		return river.JobCancel(err)
	}
	w.Cache.RunCleanup(ctx)
	return nil
}

// NewPeriodicCleanupJob returns a periodic job definition that enqueues a
// cleanup sweep on the given interval, starting with one sweep immediately.
func NewPeriodicCleanupJob(interval time.Duration) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return CleanupArgs{}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
