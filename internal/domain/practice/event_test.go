package practice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalschool/practice-hub/internal/domain/shared"
)

var when = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestNewQuizCompletion(t *testing.T) {
	e, err := NewQuizCompletion("e1", "learner-1", when, 8, 10)
	require.NoError(t, err)
	assert.True(t, e.IsQuiz())
	assert.False(t, e.IsVoice())
	assert.True(t, e.HasTimestamp())
	assert.Equal(t, 8, e.CorrectCount)
	assert.Equal(t, 10, e.TotalCount)
}

func TestNewQuizCompletion_Validation(t *testing.T) {
	tests := []struct {
		name           string
		learnerID      string
		occurredAt     time.Time
		correct, total int
		wantErr        error
	}{
		{"empty learner", "", when, 5, 10, shared.ErrInvalidLearnerID},
		{"zero timestamp", "learner-1", time.Time{}, 5, 10, shared.ErrMissingTimestamp},
		{"negative correct", "learner-1", when, -1, 10, shared.ErrNegativeCount},
		{"negative total", "learner-1", when, 0, -5, shared.ErrNegativeCount},
		{"correct above total", "learner-1", when, 11, 10, shared.ErrCorrectExceedsTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuizCompletion("e1", tt.learnerID, tt.occurredAt, tt.correct, tt.total)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewVoiceCompletion_Validation(t *testing.T) {
	e, err := NewVoiceCompletion("e1", "learner-1", when, 85)
	require.NoError(t, err)
	assert.True(t, e.IsVoice())
	assert.Equal(t, 85, e.AccuracyScore)

	_, err = NewVoiceCompletion("e1", "learner-1", when, -1)
	assert.ErrorIs(t, err, shared.ErrScoreOutOfRange)

	_, err = NewVoiceCompletion("e1", "learner-1", when, 101)
	assert.ErrorIs(t, err, shared.ErrScoreOutOfRange)

	_, err = NewVoiceCompletion("e1", "", when, 50)
	assert.ErrorIs(t, err, shared.ErrInvalidLearnerID)
}

func TestEvent_IsPerfect(t *testing.T) {
	perfect, _ := NewQuizCompletion("e1", "learner-1", when, 10, 10)
	assert.True(t, perfect.IsPerfect())

	imperfect, _ := NewQuizCompletion("e2", "learner-1", when, 9, 10)
	assert.False(t, imperfect.IsPerfect())

	empty, _ := NewQuizCompletion("e3", "learner-1", when, 0, 0)
	assert.False(t, empty.IsPerfect(), "an empty quiz is never perfect")

	voice, _ := NewVoiceCompletion("e4", "learner-1", when, 100)
	assert.False(t, voice.IsPerfect())
}

func TestEvent_Accuracy(t *testing.T) {
	quiz, _ := NewQuizCompletion("e1", "learner-1", when, 7, 10)
	acc, ok := quiz.Accuracy()
	assert.True(t, ok)
	assert.Equal(t, 70, acc)

	empty, _ := NewQuizCompletion("e2", "learner-1", when, 0, 0)
	_, ok = empty.Accuracy()
	assert.False(t, ok, "zero-question quiz has no defined accuracy")

	voice, _ := NewVoiceCompletion("e3", "learner-1", when, 42)
	acc, ok = voice.Accuracy()
	assert.True(t, ok)
	assert.Equal(t, 42, acc)
}

func TestSanitize(t *testing.T) {
	events := []Event{
		{Kind: KindQuiz, OccurredAt: when, CorrectCount: 5, TotalCount: 10},
		{Kind: KindQuiz, CorrectCount: 5, TotalCount: 10},         // no timestamp: dropped
		{Kind: "mystery", OccurredAt: when},                       // unknown kind: dropped
		{Kind: KindQuiz, OccurredAt: when, CorrectCount: -3, TotalCount: -1}, // clamped to 0/0
		{Kind: KindQuiz, OccurredAt: when, CorrectCount: 12, TotalCount: 10}, // correct clamped to total
		{Kind: KindVoice, OccurredAt: when, AccuracyScore: 300},   // clamped to 100
	}

	clean := Sanitize(events)
	require.Len(t, clean, 4)
	assert.Equal(t, 0, clean[1].CorrectCount)
	assert.Equal(t, 0, clean[1].TotalCount)
	assert.Equal(t, 10, clean[2].CorrectCount)
	assert.Equal(t, 100, clean[3].AccuracyScore)

	assert.Nil(t, Sanitize(nil))
}

func TestSplitByKind(t *testing.T) {
	q1, _ := NewQuizCompletion("q1", "learner-1", when, 1, 2)
	v1, _ := NewVoiceCompletion("v1", "learner-1", when, 50)
	q2, _ := NewQuizCompletion("q2", "learner-1", when.Add(time.Hour), 2, 2)

	quiz, voice := SplitByKind([]Event{q1, v1, q2})
	require.Len(t, quiz, 2)
	require.Len(t, voice, 1)
	assert.Equal(t, "q1", quiz[0].ID)
	assert.Equal(t, "q2", quiz[1].ID)
	assert.Equal(t, "v1", voice[0].ID)

	assert.Equal(t, 2, CountByKind([]Event{q1, v1, q2}, KindQuiz))
	assert.Equal(t, 1, CountByKind([]Event{q1, v1, q2}, KindVoice))
}
