package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/learner"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ACHIEVEMENT UNLOCKED HANDLER
// Reacts to a freshly unlocked achievement by notifying the learner.
// The derivation engine keeps no unlock timestamps, so this event is
// the only place where "this just happened" is known.
// ═══════════════════════════════════════════════════════════════════════════

// OnAchievementUnlockedHandler sends a congratulation notification when
// a recomputation unlocks a new achievement.
type OnAchievementUnlockedHandler struct {
	notifier Notifier
	logger   *slog.Logger
	config   AchievementUnlockedConfig
}

// AchievementUnlockedConfig configures the handler.
type AchievementUnlockedConfig struct {
	// NotifyTimeout bounds the notification delivery call.
	NotifyTimeout time.Duration
}

// DefaultAchievementUnlockedConfig returns the default configuration.
func DefaultAchievementUnlockedConfig() AchievementUnlockedConfig {
	return AchievementUnlockedConfig{
		NotifyTimeout: 5 * time.Second,
	}
}

// NewOnAchievementUnlockedHandler creates a new handler.
func NewOnAchievementUnlockedHandler(notifier Notifier, logger *slog.Logger, config AchievementUnlockedConfig) *OnAchievementUnlockedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnAchievementUnlockedHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_achievement_unlocked"),
		config:   config,
	}
}

// Handle processes an achievement unlocked event.
// Implements shared.EventHandler.
func (h *OnAchievementUnlockedHandler) Handle(event shared.Event) error {
	unlockEvent, ok := event.(learner.AchievementUnlockedEvent)
	if !ok {
		h.logger.Warn("received non-AchievementUnlockedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing achievement unlocked event",
		"learner_id", unlockEvent.LearnerID,
		"achievement_id", unlockEvent.AchievementID,
		"title", unlockEvent.Title,
	)

	if h.notifier == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.NotifyTimeout)
	defer cancel()

	n := Notification{
		LearnerID: unlockEvent.LearnerID,
		Kind:      "achievement",
		Title:     "Achievement unlocked!",
		Body:      fmt.Sprintf("You earned %q. Keep practicing!", unlockEvent.Title),
	}

	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to send achievement notification",
			"learner_id", unlockEvent.LearnerID,
			"achievement_id", unlockEvent.AchievementID,
			"error", err,
		)
		// Notification delivery is not critical to the write path.
		return nil
	}

	return nil
}
