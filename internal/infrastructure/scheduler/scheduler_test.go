package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int64
	err   error
	panic bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(_ context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func waitForRuns(t *testing.T, job *countingJob, want int64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if job.runs.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s ran %d times, want at least %d", job.name, job.runs.Load(), want)
}

func TestScheduleDaily_ValidatesTime(t *testing.T) {
	s := New(DefaultConfig())
	job := &countingJob{name: "nightly"}

	assert.Error(t, s.ScheduleDaily(24, 0, job))
	assert.Error(t, s.ScheduleDaily(-1, 0, job))
	assert.Error(t, s.ScheduleDaily(0, 60, job))
	assert.NoError(t, s.ScheduleDaily(0, 10, job))
}

func TestScheduleEvery_RunsJob(t *testing.T) {
	s := New(DefaultConfig())
	job := &countingJob{name: "tick"}

	require.NoError(t, s.ScheduleEvery(20*time.Millisecond, job))

	s.Start()
	defer s.Stop()

	waitForRuns(t, job, 1)
}

func TestScheduleEvery_RejectsNonPositiveInterval(t *testing.T) {
	s := New(DefaultConfig())
	assert.Error(t, s.ScheduleEvery(0, &countingJob{name: "never"}))
}

func TestScheduler_SurvivesPanicAndError(t *testing.T) {
	s := New(DefaultConfig())
	panicking := &countingJob{name: "panics", panic: true}
	failing := &countingJob{name: "fails", err: errors.New("broken")}

	require.NoError(t, s.ScheduleEvery(20*time.Millisecond, panicking))
	require.NoError(t, s.ScheduleEvery(20*time.Millisecond, failing))

	s.Start()
	defer s.Stop()

	// Both keep running after a panic or returned error.
	waitForRuns(t, panicking, 2)
	waitForRuns(t, failing, 2)
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s := New(DefaultConfig())

	assert.False(t, s.IsRunning())
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())
	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}
