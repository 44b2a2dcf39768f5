package service

import (
	"context"
	"os"
	"time"

	"github.com/bnema/transcoder/internal/infrastructure/logger"
	"github.com/bnema/transcoder/internal/port"
)

// Reaper purges terminal jobs once they are older than the retention
// period: their working directory goes first, then the registry entry.
type Reaper struct {
	registry  *Registry
	archive   port.JobArchive
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

type ReaperOption func(*Reaper)

// WithArchive records every reaped job in archive before it is dropped.
func WithArchive(archive port.JobArchive) ReaperOption {
	return func(r *Reaper) { r.archive = archive }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ReaperOption {
	return func(r *Reaper) { r.now = now }
}

func NewReaper(registry *Registry, retention, interval time.Duration, opts ...ReaperOption) *Reaper {
	r := &Reaper{
		registry:  registry,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sweeps every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep removes every job that finished more than the retention period
// ago and returns how many were removed. Filesystem and archive errors are
// logged; the registry entry is dropped regardless.
func (r *Reaper) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.retention)
	removed := 0

	for _, job := range r.registry.Terminal() {
		if job.FinishedAt == nil || !job.FinishedAt.Before(cutoff) {
			continue
		}

		if job.WorkDir != "" {
			if err := os.RemoveAll(job.WorkDir); err != nil {
				logger.Error.Printf("cleanup: failed to remove job dir %s for job %s: %v", job.WorkDir, job.ID, err)
			} else {
				logger.Info.Printf("cleanup: removed job dir %s for job %s", job.WorkDir, job.ID)
			}
		}

		if r.archive != nil {
			if err := r.archive.Archive(ctx, job); err != nil {
				logger.Error.Printf("cleanup: failed to archive job %s: %v", job.ID, err)
			}
		}

		r.registry.Delete(job.ID)
		removed++
	}

	if removed > 0 {
		logger.Info.Printf("cleanup: removed %d expired jobs", removed)
	}
	return removed
}
