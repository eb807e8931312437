package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalschool/practice-hub/internal/domain/learner"
	"github.com/signalschool/practice-hub/internal/domain/practice"
	"github.com/signalschool/practice-hub/internal/domain/progress"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memLearnerRepo struct {
	mu       sync.Mutex
	learners map[string]*learner.Learner
}

func newMemLearnerRepo() *memLearnerRepo {
	return &memLearnerRepo{learners: make(map[string]*learner.Learner)}
}

func (r *memLearnerRepo) Create(_ context.Context, l *learner.Learner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.learners[l.ID]; ok {
		return shared.ErrLearnerAlreadyExists
	}
	cp := *l
	r.learners[l.ID] = &cp
	return nil
}

func (r *memLearnerRepo) GetByID(_ context.Context, id string) (*learner.Learner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.learners[id]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memLearnerRepo) Save(_ context.Context, l *learner.Learner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.learners[l.ID]
	if !ok {
		return shared.ErrLearnerNotFound
	}
	if stored.Version != l.Version {
		return shared.ErrStaleLearner
	}
	cp := *l
	cp.Version++
	r.learners[l.ID] = &cp
	l.Version = cp.Version
	return nil
}

func (r *memLearnerRepo) ListIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.learners))
	for id := range r.learners {
		ids = append(ids, id)
	}
	return ids, nil
}

type memPracticeRepo struct {
	mu     sync.Mutex
	events map[string][]practice.Event
}

func newMemPracticeRepo() *memPracticeRepo {
	return &memPracticeRepo{events: make(map[string][]practice.Event)}
}

func (r *memPracticeRepo) Append(_ context.Context, e practice.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.LearnerID] = append(r.events[e.LearnerID], e)
	return nil
}

func (r *memPracticeRepo) GetByLearner(_ context.Context, learnerID string) ([]practice.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]practice.Event, len(r.events[learnerID]))
	copy(out, r.events[learnerID])
	return out, nil
}

func (r *memPracticeRepo) CountByLearner(_ context.Context, learnerID string, kind practice.Kind) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == "" {
		return len(r.events[learnerID]), nil
	}
	return practice.CountByKind(r.events[learnerID], kind), nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturePublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type captureInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (c *captureInvalidator) InvalidateProgress(_ context.Context, learnerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, learnerID)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func newFixture(t *testing.T) (*RecordPracticeHandler, *memLearnerRepo, *memPracticeRepo, *capturePublisher, *captureInvalidator) {
	t.Helper()

	learners := newMemLearnerRepo()
	events := newMemPracticeRepo()
	bus := &capturePublisher{}
	cache := &captureInvalidator{}

	l, err := learner.New("learner-1", "Ada", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, learners.Create(context.Background(), l))

	h := NewRecordPracticeHandler(learners, events, progress.DefaultEngine(), bus, cache, time.UTC)
	return h, learners, events, bus, cache
}

func TestHandle_RecordsQuizAndRecomputes(t *testing.T) {
	h, learners, events, bus, cache := newFixture(t)
	ctx := context.Background()

	result, err := h.Handle(ctx, RecordPracticeCommand{
		LearnerID:    "learner-1",
		Kind:         practice.KindQuiz,
		CorrectCount: 8,
		TotalCount:   10,
	})
	require.NoError(t, err)

	assert.Equal(t, 80, result.PointsEarned)
	assert.Equal(t, 1, result.Stats.Streak)
	assert.Equal(t, 1, result.Stats.TotalSessions)
	assert.Equal(t, 8, result.Stats.TotalCorrect)
	assert.NotEmpty(t, result.EventID)

	stored, err := learners.GetByID(ctx, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, result.Stats, stored.Stats)
	assert.Equal(t, 2, stored.Version, "save must bump the version")

	history, err := events.GetByLearner(ctx, "learner-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	assert.Len(t, bus.byType(shared.EventPracticeRecorded), 1)
	assert.Equal(t, []string{"learner-1"}, cache.ids)
}

func TestHandle_FirstSessionUnlocksAchievement(t *testing.T) {
	h, _, _, bus, _ := newFixture(t)

	result, err := h.Handle(context.Background(), RecordPracticeCommand{
		LearnerID:     "learner-1",
		Kind:          practice.KindVoice,
		AccuracyScore: 90,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.NewlyUnlocked)
	assert.Equal(t, "first_session", result.NewlyUnlocked[0].ID)
	assert.Len(t, bus.byType(shared.EventAchievementUnlocked), 1)
}

func TestHandle_AchievementNotReannounced(t *testing.T) {
	h, _, _, bus, _ := newFixture(t)
	ctx := context.Background()

	_, err := h.Handle(ctx, RecordPracticeCommand{
		LearnerID: "learner-1", Kind: practice.KindQuiz, CorrectCount: 5, TotalCount: 10,
	})
	require.NoError(t, err)

	second, err := h.Handle(ctx, RecordPracticeCommand{
		LearnerID: "learner-1", Kind: practice.KindQuiz, CorrectCount: 6, TotalCount: 10,
	})
	require.NoError(t, err)

	for _, st := range second.NewlyUnlocked {
		assert.NotEqual(t, "first_session", st.ID, "already-unlocked achievements must not repeat")
	}
	assert.Len(t, bus.byType(shared.EventAchievementUnlocked), 1)
}

func TestHandle_LevelUpEmitsEvent(t *testing.T) {
	h, _, _, bus, _ := newFixture(t)

	// 10/10 correct = 100 points = exactly the level 2 boundary.
	result, err := h.Handle(context.Background(), RecordPracticeCommand{
		LearnerID: "learner-1", Kind: practice.KindQuiz, CorrectCount: 10, TotalCount: 10,
	})
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, 2, result.Stats.Level)
	assert.Len(t, bus.byType(shared.EventLevelUp), 1)
}

func TestHandle_PerfectQuizUnlocksPerfectScore(t *testing.T) {
	h, _, _, _, _ := newFixture(t)

	result, err := h.Handle(context.Background(), RecordPracticeCommand{
		LearnerID: "learner-1", Kind: practice.KindQuiz, CorrectCount: 10, TotalCount: 10,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.NewlyUnlocked))
	for _, st := range result.NewlyUnlocked {
		ids = append(ids, st.ID)
	}
	assert.Contains(t, ids, "perfect_quiz")
}

func TestHandle_UnknownLearner(t *testing.T) {
	h, _, _, _, _ := newFixture(t)

	_, err := h.Handle(context.Background(), RecordPracticeCommand{
		LearnerID: "ghost", Kind: practice.KindQuiz, CorrectCount: 1, TotalCount: 1,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHandle_Validation(t *testing.T) {
	h, _, _, _, _ := newFixture(t)

	_, err := h.Handle(context.Background(), RecordPracticeCommand{Kind: practice.KindQuiz})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), RecordPracticeCommand{LearnerID: "learner-1", Kind: "swim"})
	assert.Error(t, err)

	// Domain validation surfaces ingestion errors instead of storing noise.
	_, err = h.Handle(context.Background(), RecordPracticeCommand{
		LearnerID: "learner-1", Kind: practice.KindQuiz, CorrectCount: 5, TotalCount: 3,
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestHandle_ReplayConvergesToSameStats(t *testing.T) {
	// Recording the same sessions against two independent stores must
	// converge on identical statistics: derivation is a pure function
	// of the history.
	occurredAt := time.Now().UTC()
	commands := []RecordPracticeCommand{
		{LearnerID: "learner-1", Kind: practice.KindQuiz, CorrectCount: 8, TotalCount: 10, OccurredAt: occurredAt},
		{LearnerID: "learner-1", Kind: practice.KindVoice, AccuracyScore: 75, OccurredAt: occurredAt},
		{LearnerID: "learner-1", Kind: practice.KindQuiz, CorrectCount: 10, TotalCount: 10, OccurredAt: occurredAt},
	}

	run := func() progress.Statistics {
		h, _, _, _, _ := newFixture(t)
		var last *RecordPracticeResult
		for _, cmd := range commands {
			var err error
			last, err = h.Handle(context.Background(), cmd)
			require.NoError(t, err)
		}
		return last.Stats
	}

	assert.Equal(t, run(), run())
}
