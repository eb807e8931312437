// Package http implements the REST API for the practice hub.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/signalschool/practice-hub/internal/application/command"
	"github.com/signalschool/practice-hub/internal/application/query"
	"github.com/signalschool/practice-hub/internal/domain/practice"
	"github.com/signalschool/practice-hub/internal/domain/shared"
	"github.com/signalschool/practice-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot answers GET / with a short description of the API.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "Practice Hub API",
		"version":     "v1",
		"description": "REST API for radio-code quiz and voice drill progress tracking",
		"endpoints": map[string]string{
			"health":       "/health",
			"register":     "/api/v1/learners",
			"practice":     "/api/v1/practice",
			"progress":     "/api/v1/learners/{id}/progress",
			"achievements": "/api/v1/learners/{id}/achievements",
		},
	})
}

// handleHealth answers GET /health. With a checker wired in it runs the
// dependency probes; without one it reports basic liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checker := s.deps.HealthChecker
	if checker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"uptime":  s.Uptime().String(),
			"version": "v1",
		})
		return
	}

	status := checker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady is the Kubernetes readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if checker := s.deps.HealthChecker; checker != nil {
		if status := checker.Check(r.Context()); !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is the Kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics reports process-level counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// registerLearnerRequest is the body of POST /api/v1/learners.
type registerLearnerRequest struct {
	LearnerID   string `json:"learner_id"`
	DisplayName string `json:"display_name"`
	Callsign    string `json:"callsign,omitempty"`
}

// handleRegisterLearner handles POST /api/v1/learners
func (s *Server) handleRegisterLearner(w http.ResponseWriter, r *http.Request) {
	if s.deps.RegisterLearnerHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Learner registration not configured")
		return
	}

	var req registerLearnerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.LearnerID) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "learner_id is required")
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "display_name is required")
		return
	}

	result, err := s.deps.RegisterLearnerHandler.Handle(r.Context(), command.RegisterLearnerCommand{
		LearnerID:   req.LearnerID,
		DisplayName: req.DisplayName,
		Callsign:    req.Callsign,
	})
	if err != nil {
		s.writeDomainError(w, err, "Failed to register learner")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"learner_id":    result.Learner.ID,
		"display_name":  result.Learner.DisplayName,
		"callsign":      result.Learner.Callsign,
		"level":         result.Learner.Stats.Level,
		"registered_at": result.RegisteredAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recordPracticeRequest is the body of POST /api/v1/practice.
type recordPracticeRequest struct {
	LearnerID     string     `json:"learner_id"`
	Kind          string     `json:"kind"`
	CorrectCount  int        `json:"correct_count,omitempty"`
	TotalCount    int        `json:"total_count,omitempty"`
	AccuracyScore int        `json:"accuracy_score,omitempty"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
}

// handleRecordPractice handles POST /api/v1/practice
func (s *Server) handleRecordPractice(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordPracticeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Practice recording not configured")
		return
	}

	var req recordPracticeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.LearnerID) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "learner_id is required")
		return
	}

	kind := practice.Kind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if !kind.IsValid() {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "kind must be \"quiz\" or \"voice\"")
		return
	}

	cmd := command.RecordPracticeCommand{
		LearnerID:     req.LearnerID,
		Kind:          kind,
		CorrectCount:  req.CorrectCount,
		TotalCount:    req.TotalCount,
		AccuracyScore: req.AccuracyScore,
		CorrelationID: getRequestID(r.Context()),
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}

	result, err := s.deps.RecordPracticeHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err, "Failed to record practice session")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/v1/learners/{id}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if learnerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Learner ID is required")
		return
	}

	if s.deps.GetProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	q := query.GetProgressQuery{
		LearnerID:    learnerID,
		IncludeDaily: getQueryParamBool(r, "daily"),
	}

	result, err := s.deps.GetProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to get progress", logger.Err(err), logger.LearnerID(learnerID))
		s.writeDomainError(w, err, "Failed to get progress")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAchievements handles GET /api/v1/learners/{id}/achievements
func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if learnerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Learner ID is required")
		return
	}

	if s.deps.GetAchievementsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Achievements handler not configured")
		return
	}

	q := query.GetAchievementsQuery{
		LearnerID:    learnerID,
		UnlockedOnly: getQueryParamBool(r, "unlocked"),
	}

	result, err := s.deps.GetAchievementsHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to get achievements", logger.Err(err), logger.LearnerID(learnerID))
		s.writeDomainError(w, err, "Failed to get achievements")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST & ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing an error response and
// returning false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := r.Body
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON", err.Error())
		return false
	}
	return true
}

// writeDomainError maps a domain error to an HTTP status.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "Learner not found")
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "already_exists", "Learner already exists")
	case errors.Is(err, shared.ErrOptimisticLock):
		// The snapshot changed mid-write; the client can safely retry.
		writeJSONError(w, http.StatusConflict, "conflict", "Progress was updated concurrently, please retry")
	case errors.Is(err, shared.ErrValueOutOfRange),
		errors.Is(err, shared.ErrNegativeValue),
		errors.Is(err, shared.ErrEmptyValue),
		errors.Is(err, shared.ErrInvalidID),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrValidation):
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", fallback, err.Error())
	case errors.Is(err, shared.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Upstream service rate limit exceeded")
	case errors.Is(err, shared.ErrServiceUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "A required service is unavailable")
	default:
		s.logger.Error("request failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
