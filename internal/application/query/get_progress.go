// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/learner"
	"github.com/signalschool/practice-hub/internal/domain/practice"
	"github.com/signalschool/practice-hub/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Returns the full derived progress view for one learner: statistics,
// position on the level curve, and the recent daily breakdown.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains the parameters of a progress lookup.
type GetProgressQuery struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string

	// IncludeDaily includes the per-day activity breakdown.
	IncludeDaily bool
}

// Validate checks the query parameters.
func (q GetProgressQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_progress: learner_id is required")
	}
	return nil
}

// ProgressView is the assembled read model.
type ProgressView struct {
	LearnerID   string                 `json:"learner_id"`
	DisplayName string                 `json:"display_name"`
	Callsign    string                 `json:"callsign,omitempty"`
	Stats       progress.Statistics    `json:"stats"`
	Curve       progress.LevelProgress `json:"level_progress"`
	Daily       []progress.DayActivity `json:"daily,omitempty"`
	FetchedAt   time.Time              `json:"fetched_at"`
}

// ProgressCache is an optional read-through cache for progress views.
// Implementations must treat a miss as (nil, nil).
type ProgressCache interface {
	GetProgress(ctx context.Context, learnerID string) (*ProgressView, error)
	SetProgress(ctx context.Context, learnerID string, view *ProgressView) error
}

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	learnerRepo  learner.Repository
	practiceRepo practice.Repository
	engine       *progress.Engine
	cache        ProgressCache
	location     *time.Location
}

// NewGetProgressHandler creates a new GetProgressHandler.
// cache may be nil; location defaults to UTC.
func NewGetProgressHandler(
	learnerRepo learner.Repository,
	practiceRepo practice.Repository,
	engine *progress.Engine,
	cache ProgressCache,
	location *time.Location,
) *GetProgressHandler {
	if location == nil {
		location = time.UTC
	}
	return &GetProgressHandler{
		learnerRepo:  learnerRepo,
		practiceRepo: practiceRepo,
		engine:       engine,
		cache:        cache,
		location:     location,
	}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if view, err := h.cache.GetProgress(ctx, q.LearnerID); err == nil && view != nil {
			return view, nil
		}
	}

	lrn, err := h.learnerRepo.GetByID(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to get learner: %w", err)
	}

	now := time.Now().In(h.location)
	view := &ProgressView{
		LearnerID:   lrn.ID,
		DisplayName: lrn.DisplayName,
		Callsign:    lrn.Callsign,
		Stats:       lrn.Stats,
		Curve:       h.engine.LevelProgressFor(lrn.Stats.Points),
		FetchedAt:   now,
	}

	if q.IncludeDaily {
		history, err := h.practiceRepo.GetByLearner(ctx, q.LearnerID)
		if err != nil {
			return nil, fmt.Errorf("get_progress: failed to load history: %w", err)
		}
		view.Daily = h.engine.DailyBreakdown(history, now)
	}

	if h.cache != nil {
		_ = h.cache.SetProgress(ctx, q.LearnerID, view)
	}
	return view, nil
}
