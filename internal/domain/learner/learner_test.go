package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalschool/practice-hub/internal/domain/progress"
	"github.com/signalschool/practice-hub/internal/domain/shared"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	l, err := New("learner-1", "Ada", now)
	require.NoError(t, err)
	assert.Equal(t, "learner-1", l.ID)
	assert.Equal(t, "Ada", l.DisplayName)
	assert.Equal(t, 1, l.Version)
	assert.Equal(t, progress.NewStatistics(), l.Stats)
	assert.Equal(t, 0, l.Stats.Streak)
	assert.Equal(t, 1, l.Stats.Level)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "Ada", now)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = New("learner-1", "   ", now)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestApplyRecompute(t *testing.T) {
	l, err := New("learner-1", "Ada", now)
	require.NoError(t, err)

	stats := progress.Statistics{Streak: 3, Points: 150, Level: 2, TotalSessions: 4}
	later := now.Add(time.Hour)
	l.ApplyRecompute(stats, later)

	assert.Equal(t, stats, l.Stats)
	assert.Equal(t, later, l.UpdatedAt)
	assert.Equal(t, now, l.CreatedAt)
}
