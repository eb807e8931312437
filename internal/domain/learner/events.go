package learner

import (
	"time"

	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// RegisteredEvent is emitted when a new learner record is created.
type RegisteredEvent struct {
	shared.BaseEvent
	LearnerID   string    `json:"learner_id"`
	DisplayName string    `json:"display_name"`
	At          time.Time `json:"at"`
}

// Payload implements the shared.Event interface.
func (e RegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":   e.LearnerID,
		"display_name": e.DisplayName,
		"at":           e.At,
	}
}

// NewRegisteredEvent creates a new RegisteredEvent.
func NewRegisteredEvent(learnerID, displayName string, at time.Time) RegisteredEvent {
	return RegisteredEvent{
		BaseEvent:   shared.NewBaseEvent(shared.EventLearnerRegistered, learnerID),
		LearnerID:   learnerID,
		DisplayName: displayName,
		At:          at,
	}
}

// PracticeRecordedEvent is emitted after a practice event has been
// appended to the history and the statistics recomputed.
type PracticeRecordedEvent struct {
	shared.BaseEvent
	LearnerID    string `json:"learner_id"`
	EventID      string `json:"event_id"`
	Kind         string `json:"kind"`
	PointsEarned int    `json:"points_earned"`
	NewStreak    int    `json:"new_streak"`
}

// Payload implements the shared.Event interface.
func (e PracticeRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":    e.LearnerID,
		"event_id":      e.EventID,
		"kind":          e.Kind,
		"points_earned": e.PointsEarned,
		"new_streak":    e.NewStreak,
	}
}

// NewPracticeRecordedEvent creates a new PracticeRecordedEvent.
func NewPracticeRecordedEvent(learnerID, eventID, kind string, pointsEarned, newStreak int) PracticeRecordedEvent {
	return PracticeRecordedEvent{
		BaseEvent:    shared.NewBaseEvent(shared.EventPracticeRecorded, learnerID),
		LearnerID:    learnerID,
		EventID:      eventID,
		Kind:         kind,
		PointsEarned: pointsEarned,
		NewStreak:    newStreak,
	}
}

// LevelUpEvent is emitted when a recomputation raises the level.
type LevelUpEvent struct {
	shared.BaseEvent
	LearnerID string `json:"learner_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	Points    int    `json:"points"`
}

// Payload implements the shared.Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"points":     e.Points,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(learnerID string, oldLevel, newLevel, points int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, learnerID),
		LearnerID: learnerID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Points:    points,
	}
}

// StreakBrokenEvent is emitted when a recomputation finds the streak
// reset to zero after it had been positive.
type StreakBrokenEvent struct {
	shared.BaseEvent
	LearnerID      string `json:"learner_id"`
	PreviousStreak int    `json:"previous_streak"`
}

// Payload implements the shared.Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":      e.LearnerID,
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(learnerID string, previousStreak int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      shared.NewBaseEvent(shared.EventStreakBroken, learnerID),
		LearnerID:      learnerID,
		PreviousStreak: previousStreak,
	}
}

// AchievementUnlockedEvent is emitted for every achievement that is
// unlocked after a recomputation but was not before it. The engine
// itself stores no unlock timestamps; this event is what lets the
// notification collaborator react to fresh unlocks.
type AchievementUnlockedEvent struct {
	shared.BaseEvent
	LearnerID     string    `json:"learner_id"`
	AchievementID string    `json:"achievement_id"`
	Title         string    `json:"title"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// Payload implements the shared.Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":     e.LearnerID,
		"achievement_id": e.AchievementID,
		"title":          e.Title,
		"unlocked_at":    e.UnlockedAt,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(learnerID, achievementID, title string, unlockedAt time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventAchievementUnlocked, learnerID),
		LearnerID:     learnerID,
		AchievementID: achievementID,
		Title:         title,
		UnlockedAt:    unlockedAt,
	}
}
