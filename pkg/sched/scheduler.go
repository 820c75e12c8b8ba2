package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// job is one registered recurring task.
type job struct {
	name string
	spec string
	run  func(context.Context)
}

// Scheduler runs recurring jobs on cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []job
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger.With("component", "sched"),
	}
}

// Add registers a job. The spec is validated immediately; jobs do not
// run until Start.
//
// Common cron expressions:
//   - "*/5 * * * *" - every five minutes
//   - "0 0 1 * *"   - monthly on the 1st at midnight
func (s *Scheduler) Add(name, spec string, run func(context.Context)) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q for %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cannot add job %s to a running scheduler", name)
	}
	s.jobs = append(s.jobs, job{name: name, spec: spec, run: run})
	return nil
}

// Start begins running the registered jobs. The scheduler stops itself
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	for _, j := range s.jobs {
		j := j
		_, err := s.cron.AddFunc(j.spec, func() {
			s.logger.Debug("running scheduled job", "job", j.name)
			j.run(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
		s.logger.Info("job scheduled", "job", j.name, "schedule", j.spec)
	}

	s.cron.Start()
	s.running = true

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("scheduler stopped")
	}
}

// IsRunning reports whether the scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the earliest next firing time across all jobs, or nil
// when nothing is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return &next
}
