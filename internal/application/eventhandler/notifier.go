// Package eventhandler contains domain event handlers. They are the
// reactive part of the system: side effects such as congratulating a
// learner on an unlocked achievement run here, decoupled from the
// recomputation write path by the event bus.
package eventhandler

import "context"

// Notification is a message destined for a learner.
type Notification struct {
	// LearnerID is the recipient.
	LearnerID string

	// Kind classifies the notification (achievement, level_up, streak_broken).
	Kind string

	// Title is the short headline.
	Title string

	// Body is the message text.
	Body string
}

// Notifier delivers notifications to learners. The delivery channel
// (push, email, in-app) is an infrastructure concern.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
