package progress

import (
	"math"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/practice"
)

// Scoring holds the point-award tunables. Quiz sessions earn a fixed
// number of points per correct answer; voice drills earn up to
// VoiceSessionMax points, scaled by the drill's accuracy score.
type Scoring struct {
	PointsPerCorrect int
	VoiceSessionMax  int
}

// DefaultScoring returns the scoring used when no configuration
// overrides it.
func DefaultScoring() Scoring {
	return Scoring{
		PointsPerCorrect: 10,
		VoiceSessionMax:  10,
	}
}

// PointsFor returns the points earned by a single practice event.
func (s Scoring) PointsFor(e practice.Event) int {
	switch e.Kind {
	case practice.KindQuiz:
		return s.PointsPerCorrect * e.CorrectCount
	case practice.KindVoice:
		return int(math.Round(float64(e.AccuracyScore) / 100 * float64(s.VoiceSessionMax)))
	default:
		return 0
	}
}

// Engine is the progress derivation engine. It bundles the level curve,
// the scoring rules and the achievement catalog, all fixed at process
// start. The engine holds no mutable state: every method is a pure
// function of its arguments, so a single Engine can be shared across
// goroutines freely.
type Engine struct {
	Curve   Curve
	Scoring Scoring
	Catalog []Definition
}

// NewEngine creates an engine with the given curve and scoring and the
// default achievement catalog.
func NewEngine(curve Curve, scoring Scoring) *Engine {
	return &Engine{
		Curve:   curve,
		Scoring: scoring,
		Catalog: Catalog(),
	}
}

// DefaultEngine creates an engine with all defaults.
func DefaultEngine() *Engine {
	return NewEngine(DefaultCurve(), DefaultScoring())
}

// Recompute derives a full statistics snapshot from the source history.
// The history may be unordered and noisy; it is sanitized first, so
// malformed events degrade the numbers at worst, never the call.
// Day boundaries are taken in the location carried by now.
func (e *Engine) Recompute(history []practice.Event, now time.Time) Statistics {
	events := practice.Sanitize(history)
	stats := NewStatistics()

	accuracySum := 0
	accuracyCount := 0
	for _, ev := range events {
		stats.TotalSessions++
		switch ev.Kind {
		case practice.KindQuiz:
			stats.QuizSessions++
			stats.TotalCorrect += ev.CorrectCount
			stats.TotalAnswered += ev.TotalCount
		case practice.KindVoice:
			stats.VoiceSessions++
		}

		stats.Points += e.Scoring.PointsFor(ev)

		if acc, ok := ev.Accuracy(); ok {
			accuracySum += acc
			accuracyCount++
		}

		if ev.OccurredAt.After(stats.LastPracticedAt) {
			stats.LastPracticedAt = ev.OccurredAt
		}
	}

	if accuracyCount > 0 {
		stats.OverallAccuracy = int(math.Round(float64(accuracySum) / float64(accuracyCount)))
	}

	stats.Streak = ComputeStreak(events, now)
	stats.BestStreak = BestStreak(events, now.Location())
	stats.Level = e.Curve.LevelFor(stats.Points).Level

	return stats
}

// LevelProgressFor returns the position of a point total on the
// engine's curve.
func (e *Engine) LevelProgressFor(points int) LevelProgress {
	return e.Curve.LevelFor(points)
}
