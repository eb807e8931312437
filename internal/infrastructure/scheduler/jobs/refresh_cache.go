package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/signalschool/practice-hub/internal/application/query"
	"github.com/signalschool/practice-hub/internal/domain/learner"
)

// RefreshCacheJob warms the progress cache by reading every learner's
// progress through the query handler. The handler's read-through cache
// stores each view it computes, so after a run the dashboard reads of
// active learners hit Redis instead of recomputing.
type RefreshCacheJob struct {
	learnerRepo learner.Repository
	progress    *query.GetProgressHandler
	logger      *slog.Logger
}

// NewRefreshCacheJob creates the cache warming job.
func NewRefreshCacheJob(learnerRepo learner.Repository, progress *query.GetProgressHandler, logger *slog.Logger) *RefreshCacheJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshCacheJob{
		learnerRepo: learnerRepo,
		progress:    progress,
		logger:      logger.With("job", "refresh_cache"),
	}
}

// Name implements scheduler.Job.
func (j *RefreshCacheJob) Name() string {
	return "refresh_cache"
}

// Run implements scheduler.Job.
func (j *RefreshCacheJob) Run(ctx context.Context) error {
	ids, err := j.learnerRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list learner ids: %w", err)
	}

	var failed int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cache refresh aborted after %d learners: %w", failed, err)
		}

		if _, err := j.progress.Handle(ctx, query.GetProgressQuery{LearnerID: id}); err != nil {
			failed++
			j.logger.Warn("failed to warm progress cache",
				"learner_id", id,
				"error", err,
			)
		}
	}

	j.logger.Info("progress cache refreshed",
		"total", len(ids),
		"failed", failed,
	)

	if failed > 0 {
		return fmt.Errorf("cache refresh: %d of %d learners failed", failed, len(ids))
	}
	return nil
}
