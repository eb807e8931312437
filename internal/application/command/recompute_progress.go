package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/learner"
	"github.com/signalschool/practice-hub/internal/domain/practice"
	"github.com/signalschool/practice-hub/internal/domain/progress"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTE PROGRESS COMMAND
// Batch maintenance: re-derives the statistics snapshot of one or all
// learners from the stored history without appending anything. The
// nightly run repairs streaks that went stale since the last session
// (a streak only visibly drops to zero when something recomputes it)
// and heals any snapshot that drifted from its history.
// ══════════════════════════════════════════════════════════════════════════════

// maxStaleRetries bounds how often a single learner recompute is
// retried after losing an optimistic-lock race.
const maxStaleRetries = 3

// RecomputeResult describes the outcome for a single learner.
type RecomputeResult struct {
	LearnerID    string
	Changed      bool
	StreakBroken bool
	RecomputedAt time.Time
}

// BatchRecomputeResult summarizes a full sweep.
type BatchRecomputeResult struct {
	Total     int
	Changed   int
	Failed    int
	Errors    []error
	StartedAt time.Time
	Duration  time.Duration
}

// RecomputeProgressHandler re-derives statistics snapshots from the
// practice history.
type RecomputeProgressHandler struct {
	learnerRepo  learner.Repository
	practiceRepo practice.Repository
	engine       *progress.Engine
	publisher    shared.EventPublisher
	cache        CacheInvalidator
	location     *time.Location
}

// NewRecomputeProgressHandler creates a new RecomputeProgressHandler.
// publisher and cache may be nil; location defaults to UTC.
func NewRecomputeProgressHandler(
	learnerRepo learner.Repository,
	practiceRepo practice.Repository,
	engine *progress.Engine,
	publisher shared.EventPublisher,
	cache CacheInvalidator,
	location *time.Location,
) *RecomputeProgressHandler {
	if location == nil {
		location = time.UTC
	}
	return &RecomputeProgressHandler{
		learnerRepo:  learnerRepo,
		practiceRepo: practiceRepo,
		engine:       engine,
		publisher:    publisher,
		cache:        cache,
		location:     location,
	}
}

// Handle recomputes one learner. A lost optimistic-lock race is
// retried with a fresh read, up to maxStaleRetries times.
func (h *RecomputeProgressHandler) Handle(ctx context.Context, learnerID string) (*RecomputeResult, error) {
	if learnerID == "" {
		return nil, errors.New("recompute_progress: learner_id is required")
	}

	var result *RecomputeResult
	var err error
	for attempt := 0; attempt <= maxStaleRetries; attempt++ {
		result, err = h.recomputeOnce(ctx, learnerID)
		if !errors.Is(err, shared.ErrStaleLearner) {
			break
		}
	}
	return result, err
}

// HandleAll sweeps every learner. Individual failures are collected
// rather than aborting the sweep; a context cancellation stops it.
func (h *RecomputeProgressHandler) HandleAll(ctx context.Context) (*BatchRecomputeResult, error) {
	start := time.Now().In(h.location)

	ids, err := h.learnerRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("recompute_progress: failed to list learners: %w", err)
	}

	batch := &BatchRecomputeResult{Total: len(ids), StartedAt: start}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		res, err := h.Handle(ctx, id)
		if err != nil {
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Errorf("learner %s: %w", id, err))
			continue
		}
		if res.Changed {
			batch.Changed++
		}
	}
	batch.Duration = time.Since(start)

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewRecomputeCompletedEvent(batch.Total, batch.Changed, batch.Failed))
	}

	return batch, nil
}

func (h *RecomputeProgressHandler) recomputeOnce(ctx context.Context, learnerID string) (*RecomputeResult, error) {
	now := time.Now().In(h.location)

	lrn, err := h.learnerRepo.GetByID(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("recompute_progress: failed to get learner: %w", err)
	}

	history, err := h.practiceRepo.GetByLearner(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("recompute_progress: failed to load history: %w", err)
	}

	before := lrn.Stats
	stats := h.engine.Recompute(history, now)

	result := &RecomputeResult{
		LearnerID:    learnerID,
		Changed:      !statsEqual(stats, before),
		StreakBroken: before.Streak > 0 && stats.Streak == 0,
		RecomputedAt: now,
	}
	if !result.Changed {
		return result, nil
	}

	lrn.ApplyRecompute(stats, now)
	if err := h.learnerRepo.Save(ctx, lrn); err != nil {
		return nil, fmt.Errorf("recompute_progress: failed to save learner: %w", err)
	}

	if h.cache != nil {
		_ = h.cache.InvalidateProgress(ctx, learnerID)
	}

	if h.publisher != nil && result.StreakBroken {
		_ = h.publisher.Publish(learner.NewStreakBrokenEvent(learnerID, before.Streak))
	}

	return result, nil
}

// statsEqual compares snapshots, using time.Equal for the timestamp so
// a location difference between a stored and a derived value does not
// read as a change.
func statsEqual(a, b progress.Statistics) bool {
	if !a.LastPracticedAt.Equal(b.LastPracticedAt) {
		return false
	}
	a.LastPracticedAt = time.Time{}
	b.LastPracticedAt = time.Time{}
	return a == b
}
