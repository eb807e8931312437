package progress

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalschool/practice-hub/internal/domain/practice"
)

func TestScoring_PointsFor(t *testing.T) {
	scoring := DefaultScoring()

	quiz := quizResult(7, 10)
	assert.Equal(t, 70, scoring.PointsFor(quiz))

	assert.Equal(t, 8, scoring.PointsFor(voiceResult(80)))
	assert.Equal(t, 10, scoring.PointsFor(voiceResult(100)))
	assert.Equal(t, 0, scoring.PointsFor(voiceResult(0)))
	assert.Equal(t, 9, scoring.PointsFor(voiceResult(85))) // 8.5 rounds up
}

func TestRecompute_EmptyHistory(t *testing.T) {
	stats := DefaultEngine().Recompute(nil, testNow)
	assert.Equal(t, NewStatistics(), stats)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 0, stats.Streak)
}

func TestRecompute_AggregatesTotals(t *testing.T) {
	engine := DefaultEngine()
	history := []practice.Event{
		quizOn(daysAgo(0)),  // 5/10 correct -> 50 points, accuracy 50
		voiceOn(daysAgo(1)), // score 80 -> 8 points
		quizOn(daysAgo(1)),  // 5/10 -> 50 points
	}

	stats := engine.Recompute(history, testNow)
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 2, stats.QuizSessions)
	assert.Equal(t, 1, stats.VoiceSessions)
	assert.Equal(t, 10, stats.TotalCorrect)
	assert.Equal(t, 20, stats.TotalAnswered)
	assert.Equal(t, 108, stats.Points)
	assert.Equal(t, 60, stats.OverallAccuracy) // mean of 50, 80, 50
	assert.Equal(t, 2, stats.Streak)
	assert.Equal(t, 2, stats.BestStreak)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, daysAgo(0), stats.LastPracticedAt)
}

func TestRecompute_LevelMatchesCurve(t *testing.T) {
	engine := DefaultEngine()
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 50; i++ {
		var history []practice.Event
		for n := rng.Intn(40); n > 0; n-- {
			total := 1 + rng.Intn(10)
			e := quizResult(rng.Intn(total+1), total)
			e.OccurredAt = testNow.AddDate(0, 0, -rng.Intn(60))
			history = append(history, e)
		}

		stats := engine.Recompute(history, testNow)
		assert.Equal(t, engine.Curve.LevelFor(stats.Points).Level, stats.Level,
			"level must always be derived from points")
	}
}

func TestRecompute_ReplayIsIdempotent(t *testing.T) {
	engine := DefaultEngine()
	history := []practice.Event{
		quizOn(daysAgo(0)),
		voiceOn(daysAgo(1)),
		quizOn(daysAgo(2)),
		quizOn(daysAgo(5)),
	}

	first := engine.Recompute(history, testNow)
	second := engine.Recompute(history, testNow)
	assert.Equal(t, first, second)

	// Order of the source history must not matter.
	shuffled := []practice.Event{history[2], history[0], history[3], history[1]}
	assert.Equal(t, first, engine.Recompute(shuffled, testNow))
}

func TestRecompute_ToleratesNoise(t *testing.T) {
	engine := DefaultEngine()
	history := []practice.Event{
		quizOn(daysAgo(0)),
		{Kind: practice.KindQuiz, LearnerID: "learner-1"},            // no timestamp
		{Kind: "unknown", LearnerID: "learner-1", OccurredAt: testNow}, // bad kind
		{Kind: practice.KindVoice, LearnerID: "learner-1", OccurredAt: daysAgo(1), AccuracyScore: 250}, // clamped to 100
	}

	stats := engine.Recompute(history, testNow)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.QuizSessions)
	assert.Equal(t, 1, stats.VoiceSessions)
	assert.Equal(t, 75, stats.OverallAccuracy) // mean of 50 and clamped 100
	assert.Equal(t, 2, stats.Streak)
}

func TestRecompute_DefaultsWhenOnlyNoise(t *testing.T) {
	engine := DefaultEngine()
	history := []practice.Event{
		{Kind: practice.KindQuiz},
		{Kind: practice.KindVoice},
	}
	assert.Equal(t, NewStatistics(), engine.Recompute(history, testNow))
}
