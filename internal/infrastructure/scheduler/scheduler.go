// Package scheduler runs the background jobs of the practice hub:
// the nightly full recomputation sweep and the optional cache refresh.
// Scheduling itself is delegated to gocron; this package adds the
// panic recovery, per-run timeout and logging around each job.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is a unit of background work. Implementations must honor the
// context deadline.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Run executes the job once.
	Run(ctx context.Context) error
}

// Config configures the scheduler.
type Config struct {
	// Location determines what "00:10 daily" means. Must match the
	// day-boundary timezone used by the derivation engine.
	Location *time.Location

	// JobTimeout bounds a single run of any job.
	JobTimeout time.Duration

	// Logger for job lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Location:   time.UTC,
		JobTimeout: 10 * time.Minute,
	}
}

// Scheduler wraps gocron with job-level timeouts and panic recovery.
type Scheduler struct {
	scheduler *gocron.Scheduler
	config    Config
	logger    *slog.Logger
	running   atomic.Bool
}

// New creates a scheduler. Jobs are registered afterwards and start
// firing once Start is called.
func New(config Config) *Scheduler {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 10 * time.Minute
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		scheduler: gocron.NewScheduler(config.Location),
		config:    config,
		logger:    logger.With("component", "scheduler"),
	}
}

// ScheduleDaily registers a job to run once a day at the given local
// wall-clock time.
func (s *Scheduler) ScheduleDaily(hour, minute int, job Job) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("schedule %s: hour %d out of range", job.Name(), hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("schedule %s: minute %d out of range", job.Name(), minute)
	}

	at := fmt.Sprintf("%02d:%02d", hour, minute)
	if _, err := s.scheduler.Every(1).Day().At(at).Do(s.wrap(job)); err != nil {
		return fmt.Errorf("schedule %s daily at %s: %w", job.Name(), at, err)
	}

	s.logger.Info("scheduled daily job", "job", job.Name(), "at", at, "location", s.config.Location.String())
	return nil
}

// ScheduleEvery registers a job to run at a fixed interval.
func (s *Scheduler) ScheduleEvery(interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive", job.Name())
	}

	if _, err := s.scheduler.Every(interval).Do(s.wrap(job)); err != nil {
		return fmt.Errorf("schedule %s every %s: %w", job.Name(), interval, err)
	}

	s.logger.Info("scheduled interval job", "job", job.Name(), "every", interval.String())
	return nil
}

// Start begins firing the registered jobs. Non-blocking.
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "jobs", len(s.scheduler.Jobs()))
}

// Stop halts the scheduler. Running jobs finish their current run.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.scheduler.Stop()
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// wrap adds the timeout, panic recovery and timing log around a job.
func (s *Scheduler) wrap(job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("job panicked",
					"job", job.Name(),
					"panic", fmt.Sprintf("%v", r),
				)
			}
		}()

		started := time.Now()
		s.logger.Info("job started", "job", job.Name())

		if err := job.Run(ctx); err != nil {
			s.logger.Error("job failed",
				"job", job.Name(),
				"duration", time.Since(started).String(),
				"error", err,
			)
			return
		}

		s.logger.Info("job completed",
			"job", job.Name(),
			"duration", time.Since(started).String(),
		)
	}
}
