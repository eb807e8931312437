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
// GET ACHIEVEMENTS QUERY
// Evaluates the full achievement catalog for one learner. Evaluation is
// stateless: unlock state and progress are derived fresh on every call,
// in catalog order, never stored by the engine.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery contains the parameters of an achievements lookup.
type GetAchievementsQuery struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string

	// UnlockedOnly restricts the result to unlocked achievements,
	// for the "recently earned" display.
	UnlockedOnly bool
}

// Validate checks the query parameters.
func (q GetAchievementsQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_achievements: learner_id is required")
	}
	return nil
}

// AchievementsView is the assembled read model.
type AchievementsView struct {
	LearnerID    string           `json:"learner_id"`
	Achievements []progress.State `json:"achievements"`
	Unlocked     int              `json:"unlocked"`
	Total        int              `json:"total"`
	FetchedAt    time.Time        `json:"fetched_at"`
}

// GetAchievementsHandler handles the GetAchievementsQuery.
type GetAchievementsHandler struct {
	learnerRepo  learner.Repository
	practiceRepo practice.Repository
	engine       *progress.Engine
	location     *time.Location
}

// NewGetAchievementsHandler creates a new GetAchievementsHandler.
func NewGetAchievementsHandler(
	learnerRepo learner.Repository,
	practiceRepo practice.Repository,
	engine *progress.Engine,
	location *time.Location,
) *GetAchievementsHandler {
	if location == nil {
		location = time.UTC
	}
	return &GetAchievementsHandler{
		learnerRepo:  learnerRepo,
		practiceRepo: practiceRepo,
		engine:       engine,
		location:     location,
	}
}

// Handle executes the query.
func (h *GetAchievementsHandler) Handle(ctx context.Context, q GetAchievementsQuery) (*AchievementsView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	lrn, err := h.learnerRepo.GetByID(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_achievements: failed to get learner: %w", err)
	}

	history, err := h.practiceRepo.GetByLearner(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_achievements: failed to load history: %w", err)
	}

	quiz, voice := practice.SplitByKind(history)
	all := h.engine.Evaluate(lrn.Stats, quiz, voice)

	unlocked := 0
	for _, st := range all {
		if st.Unlocked {
			unlocked++
		}
	}

	view := &AchievementsView{
		LearnerID: q.LearnerID,
		Unlocked:  unlocked,
		Total:     len(all),
		FetchedAt: time.Now().In(h.location),
	}
	if q.UnlockedOnly {
		view.Achievements = h.engine.Unlocked(lrn.Stats, quiz, voice)
	} else {
		view.Achievements = all
	}
	return view, nil
}
