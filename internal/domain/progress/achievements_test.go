package progress

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalschool/practice-hub/internal/domain/practice"
)

func stateByID(t *testing.T, states []State, id string) State {
	t.Helper()
	for _, st := range states {
		if st.ID == id {
			return st
		}
	}
	t.Fatalf("achievement %q not found", id)
	return State{}
}

func quizResult(correct, total int) practice.Event {
	return practice.Event{
		ID:           "quiz",
		LearnerID:    "learner-1",
		Kind:         practice.KindQuiz,
		OccurredAt:   testNow,
		CorrectCount: correct,
		TotalCount:   total,
	}
}

func voiceResult(score int) practice.Event {
	return practice.Event{
		ID:            "voice",
		LearnerID:     "learner-1",
		Kind:          practice.KindVoice,
		OccurredAt:    testNow,
		AccuracyScore: score,
	}
}

func TestCatalog_StableUniqueIDs(t *testing.T) {
	catalog := Catalog()
	require.NotEmpty(t, catalog)

	seen := make(map[string]bool)
	for _, def := range catalog {
		assert.NotEmpty(t, def.ID)
		assert.NotEmpty(t, def.Title)
		assert.False(t, seen[def.ID], "duplicate achievement ID %q", def.ID)
		seen[def.ID] = true
		assert.NotNil(t, def.Condition, "%s has no condition", def.ID)
		assert.NotNil(t, def.Progress, "%s has no progress function", def.ID)
		assert.Positive(t, def.Target, "%s has no target", def.ID)
	}
}

func TestEvaluate_PreservesCatalogOrder(t *testing.T) {
	engine := DefaultEngine()
	stats := Statistics{Streak: 7, TotalSessions: 12, TotalCorrect: 150, Level: 4}

	first := engine.Evaluate(stats, nil, nil)
	second := engine.Evaluate(stats, nil, nil)
	assert.Equal(t, first, second, "evaluation must be deterministic")

	catalog := Catalog()
	require.Len(t, first, len(catalog))
	for i, def := range catalog {
		assert.Equal(t, def.ID, first[i].ID, "order must follow the catalog, not unlock state")
	}
}

func TestEvaluate_UnlockedImpliesFullProgress(t *testing.T) {
	engine := DefaultEngine()
	rng := rand.New(rand.NewSource(7))

	// Generated (stats, history) pairs: whatever unlocks must sit at 100%.
	for i := 0; i < 200; i++ {
		stats := Statistics{
			Streak:          rng.Intn(20),
			TotalSessions:   rng.Intn(30),
			QuizSessions:    rng.Intn(20),
			VoiceSessions:   rng.Intn(10),
			TotalCorrect:    rng.Intn(200),
			TotalAnswered:   rng.Intn(300),
			OverallAccuracy: rng.Intn(101),
			Points:          rng.Intn(2000),
			Level:           1 + rng.Intn(6),
		}
		var quiz, voice []practice.Event
		for q := rng.Intn(6); q > 0; q-- {
			total := 1 + rng.Intn(10)
			quiz = append(quiz, quizResult(rng.Intn(total+1), total))
		}
		for v := rng.Intn(8); v > 0; v-- {
			voice = append(voice, voiceResult(rng.Intn(101)))
		}

		for _, st := range engine.Evaluate(stats, quiz, voice) {
			assert.GreaterOrEqual(t, st.Progress, 0)
			assert.LessOrEqual(t, st.Progress, 100)
			if st.Unlocked {
				assert.Equal(t, 100, st.Progress,
					"unlocked %s must report 100%% progress", st.ID)
			}
		}
	}
}

func TestEvaluate_NilHistoriesTreatedAsEmpty(t *testing.T) {
	engine := DefaultEngine()
	states := engine.Evaluate(NewStatistics(), nil, nil)
	require.Len(t, states, len(Catalog()))
	for _, st := range states {
		assert.False(t, st.Unlocked)
	}
	assert.Equal(t, 0, stateByID(t, states, "first_session").Progress)
	assert.Equal(t, 0, stateByID(t, states, "perfect_quiz").Progress)
	assert.Equal(t, 0, stateByID(t, states, "voice_5").Progress)
	// A fresh learner is level 1, a third of the way to level 3.
	assert.Equal(t, 33, stateByID(t, states, "level_3").Progress)
}

func TestEvaluate_PerfectScoreScenario(t *testing.T) {
	engine := DefaultEngine()

	// One perfect session unlocks Perfect Score.
	quiz := []practice.Event{quizResult(10, 10)}
	st := stateByID(t, engine.Evaluate(Statistics{}, quiz, nil), "perfect_quiz")
	assert.True(t, st.Unlocked)
	assert.Equal(t, 100, st.Progress)

	// A later imperfect session does not revoke the unlock: the rule
	// scans for any perfect session, in any order.
	quiz = append(quiz, quizResult(9, 10))
	st = stateByID(t, engine.Evaluate(Statistics{}, quiz, nil), "perfect_quiz")
	assert.True(t, st.Unlocked)
	assert.Equal(t, 100, st.Progress)

	reversed := []practice.Event{quiz[1], quiz[0]}
	st = stateByID(t, engine.Evaluate(Statistics{}, reversed, nil), "perfect_quiz")
	assert.True(t, st.Unlocked)
}

func TestEvaluate_PerfectScoreEdgeCases(t *testing.T) {
	engine := DefaultEngine()

	// A zero-question quiz must not unlock and must not divide by zero.
	st := stateByID(t, engine.Evaluate(Statistics{}, []practice.Event{quizResult(0, 0)}, nil), "perfect_quiz")
	assert.False(t, st.Unlocked)
	assert.Equal(t, 0, st.Progress)

	// An imperfect session contributes its accuracy as progress.
	st = stateByID(t, engine.Evaluate(Statistics{}, []practice.Event{quizResult(9, 10)}, nil), "perfect_quiz")
	assert.False(t, st.Unlocked)
	assert.Equal(t, 90, st.Progress)
}

func TestEvaluate_WeekWarriorScenario(t *testing.T) {
	engine := DefaultEngine()

	st := stateByID(t, engine.Evaluate(Statistics{Streak: 7}, nil, nil), "streak_7")
	assert.True(t, st.Unlocked)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, 7, st.Target)

	st = stateByID(t, engine.Evaluate(Statistics{Streak: 5}, nil, nil), "streak_7")
	assert.False(t, st.Unlocked)
	assert.Equal(t, 71, st.Progress) // 5/7 rounded

	st = stateByID(t, engine.Evaluate(Statistics{Streak: 12}, nil, nil), "streak_7")
	assert.True(t, st.Unlocked)
	assert.Equal(t, 100, st.Progress, "progress is clamped, never above 100")
}

func TestEvaluate_VoiceProScenario(t *testing.T) {
	engine := DefaultEngine()

	voice := []practice.Event{
		voiceResult(80), voiceResult(90), voiceResult(70), voiceResult(85),
	}
	st := stateByID(t, engine.Evaluate(Statistics{}, nil, voice), "voice_5")
	assert.False(t, st.Unlocked)
	assert.Equal(t, 80, st.Progress)

	voice = append(voice, voiceResult(95))
	st = stateByID(t, engine.Evaluate(Statistics{}, nil, voice), "voice_5")
	assert.True(t, st.Unlocked)
	assert.Equal(t, 100, st.Progress)
}

func TestEvaluate_IndependentRules(t *testing.T) {
	engine := DefaultEngine()

	// A snapshot satisfying several rules at once unlocks all of them.
	stats := Statistics{Streak: 14, TotalSessions: 10, TotalCorrect: 100, OverallAccuracy: 95, Level: 3}
	states := engine.Evaluate(stats, []practice.Event{quizResult(10, 10)}, nil)

	for _, id := range []string{"first_session", "ten_sessions", "streak_3", "streak_7", "streak_14", "accuracy_90", "perfect_quiz", "correct_100", "level_3"} {
		assert.True(t, stateByID(t, states, id).Unlocked, "%s should be unlocked", id)
	}
	assert.False(t, stateByID(t, states, "voice_5").Unlocked)
}

func TestUnlocked_FiltersInCatalogOrder(t *testing.T) {
	engine := DefaultEngine()
	stats := Statistics{Streak: 3, TotalSessions: 1}

	unlocked := engine.Unlocked(stats, nil, nil)
	require.Len(t, unlocked, 2)
	assert.Equal(t, "first_session", unlocked[0].ID)
	assert.Equal(t, "streak_3", unlocked[1].ID)
}

func TestPercentOf_GuardsDivisionByZero(t *testing.T) {
	assert.Equal(t, 0, percentOf(5, 0))
	assert.Equal(t, 0, percentOf(5, -1))
	assert.Equal(t, 50, percentOf(1, 2))
	assert.Equal(t, 100, percentOf(9, 3))
}
