// Package http implements the REST API for the practice hub: session
// recording, learner registration, and the derived progress read models.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/signalschool/practice-hub/internal/application/command"
	"github.com/signalschool/practice-hub/internal/application/query"
	"github.com/signalschool/practice-hub/internal/interface/http/handlers"
	"github.com/signalschool/practice-hub/pkg/logger"
)

// Config holds the HTTP server settings.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// MaxBodyBytes caps request bodies on the write endpoints.
	MaxBodyBytes int64

	EnableCORS     bool
	AllowedOrigins []string

	// EnableMetrics exposes GET /metrics.
	EnableMetrics bool

	// RateLimitPerMinute is the per-IP request budget. Zero disables
	// rate limiting.
	RateLimitPerMinute int

	// APIKeyHeader and APIKeys guard the write endpoints. An empty key
	// list leaves them open.
	APIKeyHeader string
	APIKeys      []string
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       64 << 10,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		EnableMetrics:      true,
		RateLimitPerMinute: 100,
		APIKeyHeader:       "X-API-Key",
		APIKeys:            []string{},
	}
}

// Address renders the host:port pair the server binds to.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Dependencies carries everything the handlers need. Nil command or
// query handlers make the matching endpoints answer 501.
type Dependencies struct {
	RecordPracticeHandler  *command.RecordPracticeHandler
	RegisterLearnerHandler *command.RegisterLearnerHandler

	GetProgressHandler     *query.GetProgressHandler
	GetAchievementsHandler *query.GetAchievementsHandler

	Logger *logger.Logger

	HealthChecker handlers.HealthChecker
}

// Server is the practice hub HTTP front end.
type Server struct {
	config Config
	deps   Dependencies
	logger *logger.Logger

	httpServer  *http.Server
	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer wires routes and middleware and returns a server ready to
// Start.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.wrap(s.routes()),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// routes builds the request mux. Path parameters use the Go 1.22
// method-and-pattern syntax.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)

	// Write side.
	mux.HandleFunc("POST /api/v1/learners", s.requireAPIKey(s.handleRegisterLearner))
	mux.HandleFunc("POST /api/v1/practice", s.requireAPIKey(s.handleRecordPractice))

	// Read side.
	mux.HandleFunc("GET /api/v1/learners/{id}/progress", s.handleGetProgress)
	mux.HandleFunc("GET /api/v1/learners/{id}/achievements", s.handleGetAchievements)

	if s.config.EnableMetrics {
		mux.HandleFunc("GET /metrics", s.handleMetrics)
	}
	return mux
}

// Handler returns the fully wrapped HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Shutdown. It returns nil on a clean
// shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync runs Start on its own goroutine. The returned channel
// yields at most one error, then closes.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.Start(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	if s.rateLimiter != nil {
		s.rateLimiter.stop()
	}
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether Start has been called and Shutdown has not.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been running, zero when
// stopped.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the configured bind address.
func (s *Server) Address() string {
	return s.config.Address()
}
