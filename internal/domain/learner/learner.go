// Package learner contains the learner aggregate: identity plus the
// derived statistics snapshot maintained by the progress engine.
// This is a pure domain layer with zero external dependencies.
package learner

import (
	"strings"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/progress"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// Learner is one account's view of the training progress. The identity
// fields are owned by the external account system; the Stats snapshot
// is owned by the recomputation flow and is only ever replaced
// wholesale, never patched field by field.
type Learner struct {
	ID          string
	DisplayName string

	// Callsign is the learner's chosen radio callsign, display only.
	Callsign string

	Stats progress.Statistics

	// Version supports optimistic locking in the persistence layer.
	// The engine assumes at most one in-flight recomputation per
	// learner; the version check turns a violated assumption into a
	// retryable error instead of a lost update.
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a learner with default statistics: zero streak, level 1.
func New(id, displayName string, now time.Time) (*Learner, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.ErrInvalidLearnerID
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, shared.NewDomainError("learner", "New", shared.ErrEmptyValue, "display name is required")
	}

	return &Learner{
		ID:          id,
		DisplayName: displayName,
		Stats:       progress.NewStatistics(),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyRecompute replaces the statistics snapshot with a freshly
// derived one.
func (l *Learner) ApplyRecompute(stats progress.Statistics, now time.Time) {
	l.Stats = stats
	l.UpdatedAt = now
}
