// Package jobs contains the concrete background jobs run by the
// scheduler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/signalschool/practice-hub/internal/application/command"
)

// RecomputeAllJob is the nightly sweep: it re-derives every learner's
// statistics from their full practice history. Its main effect is
// breaking streaks of learners who skipped a day, since a lapsed
// streak only becomes visible when something recomputes it.
type RecomputeAllJob struct {
	handler *command.RecomputeProgressHandler
	logger  *slog.Logger
}

// NewRecomputeAllJob creates the nightly recomputation job.
func NewRecomputeAllJob(handler *command.RecomputeProgressHandler, logger *slog.Logger) *RecomputeAllJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecomputeAllJob{
		handler: handler,
		logger:  logger.With("job", "recompute_all"),
	}
}

// Name implements scheduler.Job.
func (j *RecomputeAllJob) Name() string {
	return "recompute_all"
}

// Run implements scheduler.Job.
func (j *RecomputeAllJob) Run(ctx context.Context) error {
	result, err := j.handler.HandleAll(ctx)
	if err != nil {
		return fmt.Errorf("recompute all learners: %w", err)
	}

	j.logger.Info("nightly recompute sweep finished",
		"total", result.Total,
		"changed", result.Changed,
		"failed", result.Failed,
		"duration", result.Duration.String(),
	)

	for _, learnerErr := range result.Errors {
		j.logger.Warn("learner recompute failed", "error", learnerErr)
	}

	if result.Failed > 0 {
		return fmt.Errorf("recompute sweep: %d of %d learners failed", result.Failed, result.Total)
	}
	return nil
}
