// Package speech implements the pronunciation scoring API client.
// A voice drill uploads a recording reference and gets back a 0-100
// accuracy score; everything downstream (points, achievements) treats
// the score as an opaque input, so this client is the only place that
// knows the scoring provider's wire format.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/shared"
	"github.com/signalschool/practice-hub/pkg/circuitbreaker"
	"github.com/signalschool/practice-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the scoring API client.
type ClientConfig struct {
	// BaseURL is the scoring API base URL.
	BaseURL string

	// APIKey is the API key for authentication.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger

	// Debug enables debug logging.
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the pronunciation scoring API client.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new scoring API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	logger := config.Logger
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		retrier: retry.SpeechAPIRetrier(),
		breaker: circuitbreaker.SpeechAPIBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORING OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ScoreRequest describes one recording to score.
type ScoreRequest struct {
	// LearnerID identifies the learner, for provider-side analytics.
	LearnerID string `json:"learner_id"`

	// Phrase is the expected text of the recording.
	Phrase string `json:"phrase"`

	// RecordingURL points at the uploaded audio.
	RecordingURL string `json:"recording_url"`

	// Locale selects the pronunciation model, e.g. "en-US".
	Locale string `json:"locale,omitempty"`
}

// ScoreResult is the provider's verdict on a recording.
type ScoreResult struct {
	// Score is the pronunciation accuracy, 0-100.
	Score int `json:"score"`

	// Transcript is what the provider heard.
	Transcript string `json:"transcript,omitempty"`

	// ScoredAt is when the provider produced the score.
	ScoredAt time.Time `json:"scored_at"`
}

// Score submits a recording for scoring. Transient provider failures
// are retried with backoff; a persistently failing provider opens the
// circuit and calls fail fast with shared.ErrScoringUnavailable.
func (c *Client) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	if req.RecordingURL == "" {
		return nil, shared.NewDomainError("speech", "Score", shared.ErrEmptyValue, "recording URL is required")
	}

	var result ScoreResult
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doScore(ctx, req, &result)
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, shared.ErrScoringUnavailable
		}
		return nil, err
	}

	if result.Score < 0 || result.Score > 100 {
		return nil, shared.ErrScoreOutOfRange
	}

	if c.config.Debug {
		c.logger.Debug("recording scored",
			"learner_id", req.LearnerID, "score", result.Score)
	}

	return &result, nil
}

// doScore performs a single scoring request.
func (c *Client) doScore(ctx context.Context, scoreReq ScoreRequest, result *ScoreResult) error {
	body, err := json.Marshal(scoreReq)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/pronunciation/score", bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are transient as far as we can tell.
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.Unmarshal(respBody, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
		return nil

	case resp.StatusCode == http.StatusTooManyRequests:
		delay := retryAfter(resp)
		c.logger.Warn("scoring API rate limited", "retry_after", delay)
		return retry.Permanent(shared.ErrScoringRateLimited)

	case resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("scoring API error: status %d", resp.StatusCode))

	default:
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return retry.Permanent(fmt.Errorf("scoring API rejected request: %s", apiErr.Message))
		}
		return retry.Permanent(fmt.Errorf("scoring API rejected request: status %d", resp.StatusCode))
	}
}

// retryAfter parses the Retry-After header, defaulting to one minute.
func retryAfter(resp *http.Response) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return time.Minute
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the scoring API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// Reset resets the circuit breaker.
func (c *Client) Reset() {
	c.breaker.Reset()
}
