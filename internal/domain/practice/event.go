// Package practice contains the domain model for completed practice
// sessions: radio-code quizzes and voice-pronunciation drills.
// This is a pure domain layer with zero external dependencies.
package practice

import (
	"strings"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// Kind identifies the type of a practice event.
type Kind string

const (
	// KindQuiz is a completed radio-code quiz session.
	KindQuiz Kind = "quiz"
	// KindVoice is a completed voice-pronunciation drill.
	KindVoice Kind = "voice"
)

// IsValid checks that the kind is one of the known practice kinds.
func (k Kind) IsValid() bool {
	return k == KindQuiz || k == KindVoice
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Event is an immutable record of one completed practice session.
// The engine never mutates an event, only reads it. Quiz events carry
// CorrectCount/TotalCount; voice events carry AccuracyScore, produced
// by the external transcription-scoring collaborator.
type Event struct {
	ID         string
	LearnerID  string
	Kind       Kind
	OccurredAt time.Time

	// Quiz fields
	CorrectCount int
	TotalCount   int

	// Voice fields
	AccuracyScore int
}

// NewQuizCompletion creates a validated quiz completion event.
// Validation here guards ingestion; events already in history go
// through Sanitize instead.
func NewQuizCompletion(id, learnerID string, occurredAt time.Time, correct, total int) (Event, error) {
	if strings.TrimSpace(learnerID) == "" {
		return Event{}, shared.ErrInvalidLearnerID
	}
	if occurredAt.IsZero() {
		return Event{}, shared.ErrMissingTimestamp
	}
	if correct < 0 || total < 0 {
		return Event{}, shared.ErrNegativeCount
	}
	if correct > total {
		return Event{}, shared.ErrCorrectExceedsTotal
	}

	return Event{
		ID:           id,
		LearnerID:    learnerID,
		Kind:         KindQuiz,
		OccurredAt:   occurredAt,
		CorrectCount: correct,
		TotalCount:   total,
	}, nil
}

// NewVoiceCompletion creates a validated voice completion event.
func NewVoiceCompletion(id, learnerID string, occurredAt time.Time, score int) (Event, error) {
	if strings.TrimSpace(learnerID) == "" {
		return Event{}, shared.ErrInvalidLearnerID
	}
	if occurredAt.IsZero() {
		return Event{}, shared.ErrMissingTimestamp
	}
	if score < 0 || score > 100 {
		return Event{}, shared.ErrScoreOutOfRange
	}

	return Event{
		ID:            id,
		LearnerID:     learnerID,
		Kind:          KindVoice,
		OccurredAt:    occurredAt,
		AccuracyScore: score,
	}, nil
}

// IsQuiz reports whether the event is a quiz completion.
func (e Event) IsQuiz() bool {
	return e.Kind == KindQuiz
}

// IsVoice reports whether the event is a voice completion.
func (e Event) IsVoice() bool {
	return e.Kind == KindVoice
}

// HasTimestamp reports whether the event carries a usable completion
// instant. Events without one never count toward streaks or summaries.
func (e Event) HasTimestamp() bool {
	return !e.OccurredAt.IsZero()
}

// IsPerfect reports whether a quiz session had every answer correct.
// An empty quiz (zero questions) is never perfect.
func (e Event) IsPerfect() bool {
	return e.Kind == KindQuiz && e.TotalCount > 0 && e.CorrectCount == e.TotalCount
}

// Accuracy returns the 0-100 accuracy of the session and whether it is
// defined. Quiz accuracy is correct/total; an empty quiz has no accuracy.
func (e Event) Accuracy() (int, bool) {
	switch e.Kind {
	case KindQuiz:
		if e.TotalCount <= 0 {
			return 0, false
		}
		return int(float64(e.CorrectCount)/float64(e.TotalCount)*100 + 0.5), true
	case KindVoice:
		return e.AccuracyScore, true
	default:
		return 0, false
	}
}

// Sanitize returns a copy of the history with unusable events dropped
// and noisy values clamped. Events with missing timestamps or unknown
// kinds are excluded; negative counts and out-of-range scores are
// clamped rather than rejected, so corrupted upstream data can only
// produce an odd-looking number, never a failure.
func Sanitize(events []Event) []Event {
	if len(events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.HasTimestamp() || !e.Kind.IsValid() {
			continue
		}
		if e.CorrectCount < 0 {
			e.CorrectCount = 0
		}
		if e.TotalCount < 0 {
			e.TotalCount = 0
		}
		if e.CorrectCount > e.TotalCount {
			e.CorrectCount = e.TotalCount
		}
		if e.AccuracyScore < 0 {
			e.AccuracyScore = 0
		}
		if e.AccuracyScore > 100 {
			e.AccuracyScore = 100
		}
		out = append(out, e)
	}
	return out
}

// SplitByKind partitions a history into quiz and voice events,
// preserving the input order within each partition.
func SplitByKind(events []Event) (quiz, voice []Event) {
	for _, e := range events {
		switch e.Kind {
		case KindQuiz:
			quiz = append(quiz, e)
		case KindVoice:
			voice = append(voice, e)
		}
	}
	return quiz, voice
}

// CountByKind returns the number of events of the given kind.
func CountByKind(events []Event, kind Kind) int {
	count := 0
	for _, e := range events {
		if e.Kind == kind {
			count++
		}
	}
	return count
}
