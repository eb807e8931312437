// Package practice contains the domain model for completed practice
// sessions: radio-code quizzes and voice-pronunciation drills.
package practice

import (
	"context"
)

// Repository defines the interface for practice event persistence.
// This interface is implemented by the infrastructure layer.
// The domain layer has no knowledge of the actual storage mechanism.
type Repository interface {
	// Append persists a new practice event. Events are immutable once
	// stored; there is no update or delete.
	Append(ctx context.Context, event Event) error

	// GetByLearner returns the full event history for a learner,
	// ordered by completion time ascending. Recomputation always reads
	// the full history, never an incremental slice.
	GetByLearner(ctx context.Context, learnerID string) ([]Event, error)

	// CountByLearner returns the number of stored events for a learner,
	// optionally filtered by kind (empty kind counts all).
	CountByLearner(ctx context.Context, learnerID string, kind Kind) (int, error)
}
