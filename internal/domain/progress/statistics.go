package progress

import (
	"time"
)

// Statistics is the derived per-learner statistics snapshot. It is
// always produced by a full recomputation from the source history
// (never patched incrementally), so replaying the same history from an
// empty state yields an identical snapshot.
type Statistics struct {
	// Streak is the current consecutive-day practice streak.
	Streak int

	// BestStreak is the longest streak ever achieved.
	BestStreak int

	// TotalSessions is the total number of completed practice sessions.
	TotalSessions int

	// QuizSessions is the number of completed quiz sessions.
	QuizSessions int

	// VoiceSessions is the number of completed voice drills.
	VoiceSessions int

	// TotalCorrect is the cumulative number of correct quiz answers.
	TotalCorrect int

	// TotalAnswered is the cumulative number of quiz questions answered.
	TotalAnswered int

	// OverallAccuracy is the 0-100 mean accuracy across all sessions
	// that have a defined accuracy.
	OverallAccuracy int

	// Points is the cumulative point total.
	Points int

	// Level is derived from Points via the level curve. After any
	// recompute, Level == LevelFor(Points).Level always holds.
	Level int

	// LastPracticedAt is the completion time of the most recent event,
	// zero if the learner has never practiced.
	LastPracticedAt time.Time
}

// NewStatistics returns the statistics of a learner with no history:
// everything zero, level 1.
func NewStatistics() Statistics {
	return Statistics{Level: 1}
}

// HasPracticed reports whether the learner has completed any session.
func (s Statistics) HasPracticed() bool {
	return s.TotalSessions > 0
}
