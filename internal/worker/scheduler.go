package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules in one location.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	timeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler in timezone tz, falling back to UTC when
// tz cannot be loaded. Each run is bounded by timeout.
func NewScheduler(tz string, timeout time.Duration) *Scheduler {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		if tz != "" {
			slog.Warn("Invalid timezone, falling back to UTC", "timezone", tz, "error", err)
		}
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		loc:     loc,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under spec (standard five-field cron or descriptors like "@every 1h").
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	slog.Info("Job scheduled", "job", name, "schedule", spec, "timezone", s.loc.String())
	return nil
}

// RunNow executes job once outside the schedule, synchronously.
func (s *Scheduler) RunNow(name string, job Job) {
	s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx := parent
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}

	start := time.Now()
	slog.InfoContext(ctx, "Starting scheduled job", "job", name, "at", start.In(s.loc).Format(time.RFC3339))
	if err := job(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled job failed", "job", name, "error", err, "duration", time.Since(start))
		return
	}
	slog.InfoContext(ctx, "Scheduled job completed", "job", name, "duration", time.Since(start))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecategorizeJob adapts a Recategorizer to a Job.
func RecategorizeJob(r Recategorizer) Job {
	return func(ctx context.Context) error {
		n, err := r.RecategorizeUncategorized(ctx)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Recategorization finished", "updated", n)
		return nil
	}
}
