package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalschool/practice-hub/internal/domain/shared"
)

func newTestClient(serverURL string) *Client {
	cfg := DefaultClientConfig(serverURL)
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg)
}

func TestScore_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/pronunciation/score", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score": 87, "transcript": "alfa bravo charlie"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Score(context.Background(), ScoreRequest{
		LearnerID:    "learner-1",
		Phrase:       "alfa bravo charlie",
		RecordingURL: "https://uploads.example/rec-1.ogg",
	})
	require.NoError(t, err)
	assert.Equal(t, 87, result.Score)
	assert.Equal(t, "alfa bravo charlie", result.Transcript)
}

func TestScore_MissingRecording(t *testing.T) {
	client := newTestClient("http://unused.invalid")
	_, err := client.Score(context.Background(), ScoreRequest{LearnerID: "learner-1"})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestScore_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"score": 70}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Score(context.Background(), ScoreRequest{
		LearnerID:    "learner-1",
		RecordingURL: "https://uploads.example/rec-1.ogg",
	})
	require.NoError(t, err)
	assert.Equal(t, 70, result.Score)
	assert.Equal(t, int32(3), calls.Load())
}

func TestScore_RateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Score(context.Background(), ScoreRequest{
		LearnerID:    "learner-1",
		RecordingURL: "https://uploads.example/rec-1.ogg",
	})
	assert.ErrorIs(t, err, shared.ErrScoringRateLimited)
	assert.Equal(t, int32(1), calls.Load(), "rate limit responses are not retried")
}

func TestScore_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "unsupported audio codec"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Score(context.Background(), ScoreRequest{
		LearnerID:    "learner-1",
		RecordingURL: "https://uploads.example/rec-1.ogg",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio codec")
	assert.Equal(t, int32(1), calls.Load())
}

func TestScore_OutOfRangeScoreRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"score": 140}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Score(context.Background(), ScoreRequest{
		LearnerID:    "learner-1",
		RecordingURL: "https://uploads.example/rec-1.ogg",
	})
	assert.ErrorIs(t, err, shared.ErrScoreOutOfRange)
}

func TestIsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.True(t, client.IsHealthy(context.Background()))
}
