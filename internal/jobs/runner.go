// Package jobs runs the engine's batch entry points on fixed intervals.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/fairshare/internal/lock"
)

// Job is one periodic unit of work.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the job once immediately instead of waiting for the
	// first tick.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Runner ticks every registered job on its own interval. Each run is
// guarded by the locker so only one replica executes a job at a time.
type Runner struct {
	mu      sync.RWMutex
	jobs    []Job
	locker  lock.Locker
	logger  *slog.Logger
	timeout time.Duration
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a runner. A nil locker means an in-process lock.
func NewRunner(locker lock.Locker, logger *slog.Logger) *Runner {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Runner{
		locker:  locker,
		logger:  logger.With("component", "jobs"),
		timeout: 10 * time.Minute,
	}
}

// Add registers a job. Jobs added after Start are ignored until restart.
func (r *Runner) Add(j Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, j)
}

// Start begins one ticker loop per job.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	jobs := append([]Job(nil), r.jobs...)
	r.mu.Unlock()

	for _, j := range jobs {
		r.wg.Add(1)
		go func(j Job) {
			defer r.wg.Done()
			r.loop(ctx, j)
		}(j)
	}
	r.logger.Info("job runner started", "jobs", len(jobs))
}

// Stop cancels running jobs and waits for their loops to exit.
func (r *Runner) Stop() {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, j Job) {
	if j.RunOnStart {
		r.RunOnce(ctx, j)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx, j)
		}
	}
}

// RunOnce runs the job under its lock. It reports false when another holder
// had the lock and the run was skipped.
func (r *Runner) RunOnce(ctx context.Context, j Job) bool {
	// The lock outlives a hung run by at most the timeout.
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	release, err := r.locker.Acquire(ctx, j.Name, r.timeout)
	if errors.Is(err, lock.ErrNotAcquired) {
		r.logger.Debug("job skipped, lock held elsewhere", "job", j.Name)
		return false
	}
	if err != nil {
		r.logger.Error("job lock failed", "job", j.Name, "error", err)
		return false
	}
	defer release()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		r.logger.Error("job failed", "job", j.Name, "duration", time.Since(start), "error", err)
		return true
	}
	r.logger.Debug("job finished", "job", j.Name, "duration", time.Since(start))
	return true
}
