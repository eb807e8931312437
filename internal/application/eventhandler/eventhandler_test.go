package eventhandler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalschool/practice-hub/internal/domain/learner"
)

type captureNotifier struct {
	sent []Notification
	err  error
}

func (n *captureNotifier) Notify(_ context.Context, notification Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func TestOnAchievementUnlocked_Notifies(t *testing.T) {
	notifier := &captureNotifier{}
	handler := NewOnAchievementUnlockedHandler(notifier, nil, DefaultAchievementUnlockedConfig())

	event := learner.NewAchievementUnlockedEvent("lrn-1", "first_steps", "First Steps", time.Now())

	err := handler.Handle(event)
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "lrn-1", notifier.sent[0].LearnerID)
	assert.Equal(t, "achievement", notifier.sent[0].Kind)
	assert.Contains(t, notifier.sent[0].Body, "First Steps")
}

func TestOnAchievementUnlocked_IgnoresWrongEventType(t *testing.T) {
	notifier := &captureNotifier{}
	handler := NewOnAchievementUnlockedHandler(notifier, nil, DefaultAchievementUnlockedConfig())

	event := learner.NewLevelUpEvent("lrn-1", 1, 2, 120)

	err := handler.Handle(event)
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
}

func TestOnLevelUp_SkipsEarlyLevels(t *testing.T) {
	notifier := &captureNotifier{}
	config := DefaultLevelUpConfig()
	config.MinLevelForNotification = 3
	handler := NewOnLevelUpHandler(notifier, nil, config)

	err := handler.Handle(learner.NewLevelUpEvent("lrn-1", 1, 2, 120))
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)

	err = handler.Handle(learner.NewLevelUpEvent("lrn-1", 2, 3, 280))
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "level_up", notifier.sent[0].Kind)
	assert.Contains(t, notifier.sent[0].Title, "Level 3")
}

func TestOnStreakBroken_ThresholdAndTone(t *testing.T) {
	notifier := &captureNotifier{}
	handler := NewOnStreakBrokenHandler(notifier, nil, DefaultStreakBrokenConfig())

	// A 2-day streak is below the default threshold of 3.
	err := handler.Handle(learner.NewStreakBrokenEvent("lrn-1", 2))
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)

	err = handler.Handle(learner.NewStreakBrokenEvent("lrn-1", 7))
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "streak_broken", notifier.sent[0].Kind)
	assert.Contains(t, notifier.sent[0].Body, "7-day streak")
}

func TestHandlers_NotifierFailureIsNotFatal(t *testing.T) {
	notifier := &captureNotifier{err: assert.AnError}
	handler := NewOnAchievementUnlockedHandler(notifier, nil, DefaultAchievementUnlockedConfig())

	event := learner.NewAchievementUnlockedEvent("lrn-1", "week_streak", "Week of Signal", time.Now())

	err := handler.Handle(event)
	assert.NoError(t, err)
}
