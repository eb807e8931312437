package progress

import (
	"math"

	"github.com/signalschool/practice-hub/internal/domain/practice"
)

// ConditionFunc is a pure predicate deciding whether an achievement is
// unlocked for the given statistics and histories.
type ConditionFunc func(stats Statistics, quiz, voice []practice.Event) bool

// ProgressFunc returns the 0-100 completion percentage of an
// achievement. It must be monotonically non-decreasing as qualifying
// activity accumulates and must reach 100 whenever the matching
// condition is true; the tests hold every catalog entry to that.
type ProgressFunc func(stats Statistics, quiz, voice []practice.Event) int

// Definition is one entry of the static achievement catalog: a stable
// ID (unlock history persisted outside the engine is keyed by it, so
// IDs are never reused or renumbered), display texts, the nominal
// target for display, and the two pure rule functions.
type Definition struct {
	ID          string
	Title       string
	Description string
	Target      int
	Condition   ConditionFunc
	Progress    ProgressFunc
}

// State is the evaluated per-learner state of one achievement.
type State struct {
	ID          string
	Title       string
	Description string
	Target      int
	Progress    int
	Unlocked    bool
}

// Catalog returns the achievement catalog. The slice order is the
// display order and is stable across calls; evaluation never reorders
// it. Thresholds here are configuration data, not engine logic.
func Catalog() []Definition {
	return []Definition{
		{
			ID:          "first_session",
			Title:       "First Contact",
			Description: "Complete your first practice session",
			Target:      1,
			Condition: func(s Statistics, _, _ []practice.Event) bool {
				return s.TotalSessions >= 1
			},
			Progress: func(s Statistics, _, _ []practice.Event) int {
				return percentOf(s.TotalSessions, 1)
			},
		},
		{
			ID:          "ten_sessions",
			Title:       "Regular Operator",
			Description: "Complete 10 practice sessions",
			Target:      10,
			Condition: func(s Statistics, _, _ []practice.Event) bool {
				return s.TotalSessions >= 10
			},
			Progress: func(s Statistics, _, _ []practice.Event) int {
				return percentOf(s.TotalSessions, 10)
			},
		},
		{
			ID:          "streak_3",
			Title:       "Getting Started",
			Description: "Practice 3 days in a row",
			Target:      3,
			Condition: func(s Statistics, _, _ []practice.Event) bool {
				return s.Streak >= 3
			},
			Progress: func(s Statistics, _, _ []practice.Event) int {
				return percentOf(s.Streak, 3)
			},
		},
		{
			ID:          "streak_7",
			Title:       "Week Warrior",
			Description: "Practice 7 days in a row",
			Target:      7,
			Condition: func(s Statistics, _, _ []practice.Event) bool {
				return s.Streak >= 7
			},
			Progress: func(s Statistics, _, _ []practice.Event) int {
				return percentOf(s.Streak, 7)
			},
		},
		{
			ID:          "streak_14",
			Title:       "Dedicated",
			Description: "Practice 14 days in a row",
			Target:      14,
			Condition: func(s Statistics, _, _ []practice.Event) bool {
				return s.Streak >= 14
			},
			Progress: func(s Statistics, _, _ []practice.Event) int {
				return percentOf(s.Streak, 14)
			},
		},
		{
			ID:          "accuracy_90",
			Title:       "Sharp Ear",
			Description: "Reach 90% overall accuracy",
			Target:      90,
			Condition: func(s Statistics, _, _ []practice.Event) bool {
				return s.OverallAccuracy >= 90
			},
			Progress: func(s Statistics, _, _ []practice.Event) int {
				return percentOf(s.OverallAccuracy, 90)
			},
		},
		{
			ID:          "perfect_quiz",
			Title:       "Perfect Score",
			Description: "Get every answer right in a single quiz",
			Target:      100,
			Condition: func(_ Statistics, quiz, _ []practice.Event) bool {
				return anyPerfect(quiz)
			},
			Progress: func(_ Statistics, quiz, _ []practice.Event) int {
				return bestQuizAccuracy(quiz)
			},
		},
		{
			ID:          "correct_100",
			Title:       "Century",
			Description: "Answer 100 questions correctly",
			Target:      100,
			Condition: func(s Statistics, _, _ []practice.Event) bool {
				return s.TotalCorrect >= 100
			},
			Progress: func(s Statistics, _, _ []practice.Event) int {
				return percentOf(s.TotalCorrect, 100)
			},
		},
		{
			ID:          "voice_5",
			Title:       "Voice Pro",
			Description: "Complete 5 voice drills",
			Target:      5,
			Condition: func(_ Statistics, _, voice []practice.Event) bool {
				return len(voice) >= 5
			},
			Progress: func(_ Statistics, _, voice []practice.Event) int {
				return percentOf(len(voice), 5)
			},
		},
		{
			ID:          "level_3",
			Title:       "Seasoned Operator",
			Description: "Reach level 3",
			Target:      3,
			Condition: func(s Statistics, _, _ []practice.Event) bool {
				return s.Level >= 3
			},
			Progress: func(s Statistics, _, _ []practice.Event) int {
				return percentOf(s.Level, 3)
			},
		},
	}
}

// Evaluate runs every catalog rule against the given snapshot and
// histories. The output preserves catalog order regardless of unlock
// state, progress values are clamped to [0, 100], and nil histories
// are treated as empty. Evaluation is stateless and side-effect-free:
// repeated calls with the same input produce the same output, and one
// rule never affects another.
func (e *Engine) Evaluate(stats Statistics, quiz, voice []practice.Event) []State {
	quiz = practice.Sanitize(quiz)
	voice = practice.Sanitize(voice)

	states := make([]State, 0, len(e.Catalog))
	for _, def := range e.Catalog {
		unlocked := def.Condition != nil && def.Condition(stats, quiz, voice)

		progress := 0
		if def.Progress != nil {
			progress = clampPercent(def.Progress(stats, quiz, voice))
		}

		states = append(states, State{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Target:      def.Target,
			Progress:    progress,
			Unlocked:    unlocked,
		})
	}
	return states
}

// Unlocked returns only the unlocked achievements, in the same relative
// order as the full catalog.
func (e *Engine) Unlocked(stats Statistics, quiz, voice []practice.Event) []State {
	var unlocked []State
	for _, st := range e.Evaluate(stats, quiz, voice) {
		if st.Unlocked {
			unlocked = append(unlocked, st)
		}
	}
	return unlocked
}

// percentOf returns value/target as a 0-100 percentage, rounded to the
// nearest integer and clamped. A non-positive target yields 0 rather
// than dividing by zero.
func percentOf(value, target int) int {
	if target <= 0 {
		return 0
	}
	return clampPercent(int(math.Round(float64(value) / float64(target) * 100)))
}

// clampPercent clamps v to [0, 100].
func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// anyPerfect reports whether any quiz session in the history was
// answered perfectly. The scan is O(n) per evaluation; at the scale of
// a single learner's history that is cheaper than keeping a cached
// flag consistent with every append.
func anyPerfect(quiz []practice.Event) bool {
	for _, e := range quiz {
		if e.IsPerfect() {
			return true
		}
	}
	return false
}

// bestQuizAccuracy returns the highest accuracy of any quiz session,
// 0 when there are none. Adding sessions can only raise the maximum,
// so the progress toward Perfect Score never moves backward.
func bestQuizAccuracy(quiz []practice.Event) int {
	best := 0
	for _, e := range quiz {
		if acc, ok := e.Accuracy(); ok && acc > best {
			best = acc
		}
	}
	return best
}
