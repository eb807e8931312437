package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/learner"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER LEARNER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterLearnerCommand creates a learner record with empty statistics.
type RegisterLearnerCommand struct {
	// LearnerID is the caller-assigned internal ID.
	LearnerID string

	// DisplayName is the learner's visible name.
	DisplayName string

	// Callsign is the learner's chosen radio callsign (optional).
	Callsign string
}

// Validate validates the command.
func (c RegisterLearnerCommand) Validate() error {
	if strings.TrimSpace(c.LearnerID) == "" {
		return errors.New("register_learner: learner_id is required")
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return errors.New("register_learner: display_name is required")
	}
	return nil
}

// RegisterLearnerResult contains the created learner.
type RegisterLearnerResult struct {
	Learner      *learner.Learner
	RegisteredAt time.Time
}

// RegisterLearnerHandler handles the RegisterLearnerCommand.
type RegisterLearnerHandler struct {
	learnerRepo learner.Repository
	publisher   shared.EventPublisher
	location    *time.Location
}

// NewRegisterLearnerHandler creates a new RegisterLearnerHandler.
// publisher may be nil; location defaults to UTC.
func NewRegisterLearnerHandler(
	learnerRepo learner.Repository,
	publisher shared.EventPublisher,
	location *time.Location,
) *RegisterLearnerHandler {
	if location == nil {
		location = time.UTC
	}
	return &RegisterLearnerHandler{
		learnerRepo: learnerRepo,
		publisher:   publisher,
		location:    location,
	}
}

// Handle executes the command.
func (h *RegisterLearnerHandler) Handle(ctx context.Context, cmd RegisterLearnerCommand) (*RegisterLearnerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().In(h.location)

	lrn, err := learner.New(cmd.LearnerID, cmd.DisplayName, now)
	if err != nil {
		return nil, fmt.Errorf("register_learner: %w", err)
	}
	lrn.Callsign = strings.TrimSpace(cmd.Callsign)

	if err := h.learnerRepo.Create(ctx, lrn); err != nil {
		return nil, fmt.Errorf("register_learner: failed to create learner: %w", err)
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(learner.NewRegisteredEvent(lrn.ID, lrn.DisplayName, now))
	}

	return &RegisterLearnerResult{Learner: lrn, RegisteredAt: now}, nil
}
