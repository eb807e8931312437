// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/signalschool/practice-hub/internal/domain/learner"
	"github.com/signalschool/practice-hub/internal/domain/practice"
	"github.com/signalschool/practice-hub/internal/domain/progress"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PRACTICE COMMAND
// The recomputation orchestrator: appends a completed practice session
// to the history, re-derives the full statistics snapshot from scratch,
// and publishes the resulting domain events. Recomputation is always a
// full replay of the stored history - never an incremental patch - so
// recording the same history from an empty state always converges on
// the same statistics.
// ══════════════════════════════════════════════════════════════════════════════

// RecordPracticeCommand contains the data of one completed session.
type RecordPracticeCommand struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string

	// Kind is the session kind: quiz or voice.
	Kind practice.Kind

	// CorrectCount and TotalCount describe a quiz session.
	CorrectCount int
	TotalCount   int

	// AccuracyScore is the 0-100 score of a voice drill, produced by
	// the external transcription-scoring collaborator.
	AccuracyScore int

	// OccurredAt is when the session completed (defaults to now).
	OccurredAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordPracticeCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("record_practice: learner_id is required")
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("record_practice: unknown practice kind: %s", c.Kind)
	}
	return nil
}

// RecordPracticeResult contains the outcome of recording a session.
type RecordPracticeResult struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string

	// EventID is the ID assigned to the stored practice event.
	EventID string

	// Stats is the freshly recomputed statistics snapshot.
	Stats progress.Statistics

	// PointsEarned is how many points this session added.
	PointsEarned int

	// LeveledUp indicates the session pushed the learner over a level
	// boundary.
	LeveledUp bool

	// StreakBroken indicates the recompute found a previously positive
	// streak reset to zero.
	StreakBroken bool

	// NewlyUnlocked lists achievements that are unlocked now but were
	// not before this session.
	NewlyUnlocked []progress.State

	// Events contains the domain events generated.
	Events []shared.Event

	// RecordedAt is when the session was recorded.
	RecordedAt time.Time
}

// CacheInvalidator drops any cached progress view for a learner after
// their statistics change. A nil invalidator is allowed.
type CacheInvalidator interface {
	InvalidateProgress(ctx context.Context, learnerID string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordPracticeHandler handles the RecordPracticeCommand.
type RecordPracticeHandler struct {
	learnerRepo  learner.Repository
	practiceRepo practice.Repository
	engine       *progress.Engine
	publisher    shared.EventPublisher
	cache        CacheInvalidator
	location     *time.Location
}

// NewRecordPracticeHandler creates a new RecordPracticeHandler.
// publisher and cache may be nil; location defaults to UTC.
func NewRecordPracticeHandler(
	learnerRepo learner.Repository,
	practiceRepo practice.Repository,
	engine *progress.Engine,
	publisher shared.EventPublisher,
	cache CacheInvalidator,
	location *time.Location,
) *RecordPracticeHandler {
	if location == nil {
		location = time.UTC
	}
	return &RecordPracticeHandler{
		learnerRepo:  learnerRepo,
		practiceRepo: practiceRepo,
		engine:       engine,
		publisher:    publisher,
		cache:        cache,
		location:     location,
	}
}

// Handle executes the record practice command.
func (h *RecordPracticeHandler) Handle(ctx context.Context, cmd RecordPracticeCommand) (*RecordPracticeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().In(h.location)
	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	lrn, err := h.learnerRepo.GetByID(ctx, cmd.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("record_practice: failed to get learner: %w", err)
	}

	event, err := h.buildEvent(cmd, occurredAt)
	if err != nil {
		return nil, fmt.Errorf("record_practice: invalid event: %w", err)
	}

	if err := h.practiceRepo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("record_practice: failed to append event: %w", err)
	}

	// Full re-derivation from the updated history.
	history, err := h.practiceRepo.GetByLearner(ctx, cmd.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("record_practice: failed to load history: %w", err)
	}

	before := lrn.Stats
	quizBefore, voiceBefore := practice.SplitByKind(withoutEvent(history, event.ID))
	unlockedBefore := unlockedSet(h.engine.Evaluate(before, quizBefore, voiceBefore))

	stats := h.engine.Recompute(history, now)
	lrn.ApplyRecompute(stats, now)

	if err := h.learnerRepo.Save(ctx, lrn); err != nil {
		return nil, fmt.Errorf("record_practice: failed to save learner: %w", err)
	}

	if h.cache != nil {
		// Cache staleness only degrades a read; do not fail the write.
		_ = h.cache.InvalidateProgress(ctx, cmd.LearnerID)
	}

	result := &RecordPracticeResult{
		LearnerID:    cmd.LearnerID,
		EventID:      event.ID,
		Stats:        stats,
		PointsEarned: stats.Points - before.Points,
		LeveledUp:    stats.Level > before.Level,
		StreakBroken: before.Streak > 0 && stats.Streak == 0,
		RecordedAt:   now,
	}

	quiz, voice := practice.SplitByKind(history)
	for _, st := range h.engine.Evaluate(stats, quiz, voice) {
		if st.Unlocked && !unlockedBefore[st.ID] {
			result.NewlyUnlocked = append(result.NewlyUnlocked, st)
		}
	}

	result.Events = h.buildEvents(cmd, event, before, result)
	if h.publisher != nil {
		for _, ev := range result.Events {
			_ = h.publisher.Publish(ev)
		}
	}

	return result, nil
}

// buildEvent turns the command into a validated practice event.
func (h *RecordPracticeHandler) buildEvent(cmd RecordPracticeCommand, occurredAt time.Time) (practice.Event, error) {
	id := uuid.NewString()
	switch cmd.Kind {
	case practice.KindQuiz:
		return practice.NewQuizCompletion(id, cmd.LearnerID, occurredAt, cmd.CorrectCount, cmd.TotalCount)
	case practice.KindVoice:
		return practice.NewVoiceCompletion(id, cmd.LearnerID, occurredAt, cmd.AccuracyScore)
	default:
		return practice.Event{}, shared.ErrInvalidEventKind
	}
}

// buildEvents assembles the domain events for the notification layer.
// Every event carries the command's correlation ID so a notification
// can be traced back to the HTTP request that caused it.
func (h *RecordPracticeHandler) buildEvents(
	cmd RecordPracticeCommand,
	event practice.Event,
	before progress.Statistics,
	result *RecordPracticeResult,
) []shared.Event {
	recorded := learner.NewPracticeRecordedEvent(cmd.LearnerID, event.ID, event.Kind.String(), result.PointsEarned, result.Stats.Streak)
	recorded.BaseEvent = recorded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	events := []shared.Event{recorded}

	if result.LeveledUp {
		ev := learner.NewLevelUpEvent(cmd.LearnerID, before.Level, result.Stats.Level, result.Stats.Points)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		events = append(events, ev)
	}
	if result.StreakBroken {
		ev := learner.NewStreakBrokenEvent(cmd.LearnerID, before.Streak)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		events = append(events, ev)
	}
	for _, st := range result.NewlyUnlocked {
		ev := learner.NewAchievementUnlockedEvent(cmd.LearnerID, st.ID, st.Title, result.RecordedAt)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		events = append(events, ev)
	}
	return events
}

// withoutEvent filters one event out of a history, to evaluate the
// pre-append achievement state without a second repository read.
func withoutEvent(history []practice.Event, eventID string) []practice.Event {
	out := make([]practice.Event, 0, len(history))
	for _, e := range history {
		if e.ID == eventID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// unlockedSet indexes unlocked achievement IDs.
func unlockedSet(states []progress.State) map[string]bool {
	set := make(map[string]bool, len(states))
	for _, st := range states {
		if st.Unlocked {
			set[st.ID] = true
		}
	}
	return set
}
