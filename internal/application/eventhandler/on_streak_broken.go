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
// ON STREAK BROKEN HANDLER
// A broken streak is bad news, so the tone here is encouragement rather
// than celebration. Short streaks are not worth a notification at all.
// ═══════════════════════════════════════════════════════════════════════════

// OnStreakBrokenHandler sends a gentle nudge when the nightly
// recomputation finds that a learner's streak has lapsed.
type OnStreakBrokenHandler struct {
	notifier Notifier
	logger   *slog.Logger
	config   StreakBrokenConfig
}

// StreakBrokenConfig configures the handler.
type StreakBrokenConfig struct {
	// MinStreakForNotification is the smallest broken streak that
	// warrants a notification. Losing a 1-day streak is not news.
	MinStreakForNotification int

	// NotifyTimeout bounds the notification delivery call.
	NotifyTimeout time.Duration
}

// DefaultStreakBrokenConfig returns the default configuration.
func DefaultStreakBrokenConfig() StreakBrokenConfig {
	return StreakBrokenConfig{
		MinStreakForNotification: 3,
		NotifyTimeout:            5 * time.Second,
	}
}

// NewOnStreakBrokenHandler creates a new handler.
func NewOnStreakBrokenHandler(notifier Notifier, logger *slog.Logger, config StreakBrokenConfig) *OnStreakBrokenHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnStreakBrokenHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_streak_broken"),
		config:   config,
	}
}

// Handle processes a streak broken event.
// Implements shared.EventHandler.
func (h *OnStreakBrokenHandler) Handle(event shared.Event) error {
	streakEvent, ok := event.(learner.StreakBrokenEvent)
	if !ok {
		h.logger.Warn("received non-StreakBrokenEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing streak broken event",
		"learner_id", streakEvent.LearnerID,
		"previous_streak", streakEvent.PreviousStreak,
	)

	if h.notifier == nil {
		return nil
	}

	if streakEvent.PreviousStreak < h.config.MinStreakForNotification {
		h.logger.Debug("skipping notification",
			"reason", "broken streak below notification threshold",
			"learner_id", streakEvent.LearnerID,
			"previous_streak", streakEvent.PreviousStreak,
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.NotifyTimeout)
	defer cancel()

	n := Notification{
		LearnerID: streakEvent.LearnerID,
		Kind:      "streak_broken",
		Title:     "Your streak has lapsed",
		Body:      fmt.Sprintf("Your %d-day streak ended. A single session today starts a new one.", streakEvent.PreviousStreak),
	}

	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to send streak broken notification",
			"learner_id", streakEvent.LearnerID,
			"error", err,
		)
		return nil
	}

	return nil
}
