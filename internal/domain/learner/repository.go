// Package learner contains the learner aggregate.
package learner

import (
	"context"
)

// Repository defines the interface for learner persistence.
// Implementations must make Save a compare-and-swap on Version,
// returning shared.ErrStaleLearner when the stored version differs,
// so concurrent recomputations for the same learner cannot silently
// overwrite each other.
type Repository interface {
	// Create persists a new learner.
	Create(ctx context.Context, l *Learner) error

	// GetByID returns a learner by ID.
	GetByID(ctx context.Context, id string) (*Learner, error)

	// Save persists an updated learner using an optimistic version
	// check and increments Version on success.
	Save(ctx context.Context, l *Learner) error

	// ListIDs returns all learner IDs, for batch recomputation jobs.
	ListIDs(ctx context.Context) ([]string, error)
}
