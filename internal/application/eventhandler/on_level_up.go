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
// ON LEVEL UP HANDLER
// Celebrates a level increase. Levels can jump by more than one when a
// single session earns a lot of points, so the message always names the
// new level rather than saying "next level".
// ═══════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler sends a notification when a learner reaches a new level.
type OnLevelUpHandler struct {
	notifier Notifier
	logger   *slog.Logger
	config   LevelUpConfig
}

// LevelUpConfig configures the handler.
type LevelUpConfig struct {
	// MinLevelForNotification suppresses notifications for the earliest
	// levels, which are reached within minutes of signing up.
	MinLevelForNotification int

	// NotifyTimeout bounds the notification delivery call.
	NotifyTimeout time.Duration
}

// DefaultLevelUpConfig returns the default configuration.
func DefaultLevelUpConfig() LevelUpConfig {
	return LevelUpConfig{
		MinLevelForNotification: 2,
		NotifyTimeout:           5 * time.Second,
	}
}

// NewOnLevelUpHandler creates a new handler.
func NewOnLevelUpHandler(notifier Notifier, logger *slog.Logger, config LevelUpConfig) *OnLevelUpHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnLevelUpHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_level_up"),
		config:   config,
	}
}

// Handle processes a level up event.
// Implements shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	levelEvent, ok := event.(learner.LevelUpEvent)
	if !ok {
		h.logger.Warn("received non-LevelUpEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing level up event",
		"learner_id", levelEvent.LearnerID,
		"old_level", levelEvent.OldLevel,
		"new_level", levelEvent.NewLevel,
		"points", levelEvent.Points,
	)

	if h.notifier == nil {
		return nil
	}

	if levelEvent.NewLevel < h.config.MinLevelForNotification {
		h.logger.Debug("skipping notification",
			"reason", "level below notification threshold",
			"learner_id", levelEvent.LearnerID,
			"new_level", levelEvent.NewLevel,
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.NotifyTimeout)
	defer cancel()

	n := Notification{
		LearnerID: levelEvent.LearnerID,
		Kind:      "level_up",
		Title:     fmt.Sprintf("Level %d reached!", levelEvent.NewLevel),
		Body:      fmt.Sprintf("You now have %d points. Well done!", levelEvent.Points),
	}

	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to send level up notification",
			"learner_id", levelEvent.LearnerID,
			"error", err,
		)
		return nil
	}

	return nil
}
