// Package service provides infrastructure implementations of the
// application layer's outbound collaborator interfaces.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/signalschool/practice-hub/internal/application/eventhandler"
)

// LogNotifier implements eventhandler.Notifier by writing each
// notification to the structured log. It stands in for a real delivery
// channel (push, email) until one is wired up; the assigned delivery ID
// makes individual notifications traceable in the logs.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{
		logger: logger.With("component", "log_notifier"),
	}
}

// Notify implements eventhandler.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, notification eventhandler.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.logger.InfoContext(ctx, "notification delivered",
		"delivery_id", uuid.New().String(),
		"learner_id", notification.LearnerID,
		"kind", notification.Kind,
		"title", notification.Title,
		"body", notification.Body,
	)
	return nil
}
