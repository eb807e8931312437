package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalschool/practice-hub/internal/domain/learner"
	"github.com/signalschool/practice-hub/internal/domain/practice"
	"github.com/signalschool/practice-hub/internal/domain/progress"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

type stubLearnerRepo struct {
	learner *learner.Learner
}

func (r *stubLearnerRepo) Create(context.Context, *learner.Learner) error { return nil }

func (r *stubLearnerRepo) GetByID(_ context.Context, id string) (*learner.Learner, error) {
	if r.learner == nil || r.learner.ID != id {
		return nil, shared.ErrLearnerNotFound
	}
	cp := *r.learner
	return &cp, nil
}

func (r *stubLearnerRepo) Save(context.Context, *learner.Learner) error { return nil }

func (r *stubLearnerRepo) ListIDs(context.Context) ([]string, error) {
	if r.learner == nil {
		return nil, nil
	}
	return []string{r.learner.ID}, nil
}

type stubPracticeRepo struct {
	history []practice.Event
	calls   int
}

func (r *stubPracticeRepo) Append(context.Context, practice.Event) error { return nil }

func (r *stubPracticeRepo) GetByLearner(context.Context, string) ([]practice.Event, error) {
	r.calls++
	return r.history, nil
}

func (r *stubPracticeRepo) CountByLearner(_ context.Context, _ string, kind practice.Kind) (int, error) {
	if kind == "" {
		return len(r.history), nil
	}
	return practice.CountByKind(r.history, kind), nil
}

type memCache struct {
	views map[string]*ProgressView
}

func (c *memCache) GetProgress(_ context.Context, id string) (*ProgressView, error) {
	return c.views[id], nil
}

func (c *memCache) SetProgress(_ context.Context, id string, v *ProgressView) error {
	if c.views == nil {
		c.views = make(map[string]*ProgressView)
	}
	c.views[id] = v
	return nil
}

func testLearner(t *testing.T) *learner.Learner {
	t.Helper()
	l, err := learner.New("learner-1", "Ada", time.Now().UTC())
	require.NoError(t, err)
	l.Stats = progress.Statistics{Streak: 5, Points: 250, Level: 2, TotalSessions: 6, OverallAccuracy: 85}
	return l
}

func TestGetProgress(t *testing.T) {
	learners := &stubLearnerRepo{learner: testLearner(t)}
	events := &stubPracticeRepo{}
	h := NewGetProgressHandler(learners, events, progress.DefaultEngine(), nil, time.UTC)

	view, err := h.Handle(context.Background(), GetProgressQuery{LearnerID: "learner-1"})
	require.NoError(t, err)

	assert.Equal(t, "learner-1", view.LearnerID)
	assert.Equal(t, 5, view.Stats.Streak)
	assert.Equal(t, 2, view.Curve.Level)
	assert.Equal(t, 75, view.Curve.ProgressPercent) // 150 of 200 into level 2
	assert.Nil(t, view.Daily)
	assert.Equal(t, 0, events.calls, "history is not loaded unless daily is requested")
}

func TestGetProgress_IncludeDaily(t *testing.T) {
	now := time.Now().UTC()
	quiz, err := practice.NewQuizCompletion("q1", "learner-1", now, 5, 10)
	require.NoError(t, err)

	learners := &stubLearnerRepo{learner: testLearner(t)}
	events := &stubPracticeRepo{history: []practice.Event{quiz}}
	h := NewGetProgressHandler(learners, events, progress.DefaultEngine(), nil, time.UTC)

	view, err := h.Handle(context.Background(), GetProgressQuery{LearnerID: "learner-1", IncludeDaily: true})
	require.NoError(t, err)
	require.Len(t, view.Daily, 1)
	assert.Equal(t, 1, view.Daily[0].QuizSessions)
}

func TestGetProgress_CacheHitSkipsRepositories(t *testing.T) {
	cached := &ProgressView{LearnerID: "learner-1", Stats: progress.Statistics{Streak: 9}}
	cache := &memCache{views: map[string]*ProgressView{"learner-1": cached}}

	h := NewGetProgressHandler(&stubLearnerRepo{}, &stubPracticeRepo{}, progress.DefaultEngine(), cache, time.UTC)
	view, err := h.Handle(context.Background(), GetProgressQuery{LearnerID: "learner-1"})
	require.NoError(t, err)
	assert.Equal(t, 9, view.Stats.Streak)
}

func TestGetProgress_UnknownLearner(t *testing.T) {
	h := NewGetProgressHandler(&stubLearnerRepo{}, &stubPracticeRepo{}, progress.DefaultEngine(), nil, time.UTC)
	_, err := h.Handle(context.Background(), GetProgressQuery{LearnerID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetAchievements(t *testing.T) {
	learners := &stubLearnerRepo{learner: testLearner(t)}
	events := &stubPracticeRepo{}
	h := NewGetAchievementsHandler(learners, events, progress.DefaultEngine(), time.UTC)

	view, err := h.Handle(context.Background(), GetAchievementsQuery{LearnerID: "learner-1"})
	require.NoError(t, err)

	assert.Equal(t, len(progress.Catalog()), view.Total)
	assert.Len(t, view.Achievements, view.Total)
	// Streak 5 over a 3-day target, 6 sessions over 1: both unlocked.
	assert.GreaterOrEqual(t, view.Unlocked, 2)

	// Catalog order is preserved in the output.
	for i, def := range progress.Catalog() {
		assert.Equal(t, def.ID, view.Achievements[i].ID)
	}
}

func TestGetAchievements_UnlockedOnly(t *testing.T) {
	learners := &stubLearnerRepo{learner: testLearner(t)}
	h := NewGetAchievementsHandler(learners, &stubPracticeRepo{}, progress.DefaultEngine(), time.UTC)

	view, err := h.Handle(context.Background(), GetAchievementsQuery{LearnerID: "learner-1", UnlockedOnly: true})
	require.NoError(t, err)
	require.NotEmpty(t, view.Achievements)
	for _, st := range view.Achievements {
		assert.True(t, st.Unlocked)
	}
}
