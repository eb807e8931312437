// Package handlers holds the HTTP-facing health probe machinery.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// HealthChecker is what the HTTP layer consults for /health and /ready.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc probes one dependency; nil means it is usable.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the aggregated probe result rendered by the health
// endpoints.
type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of a single dependency probe.
type CheckResult struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// checkTimeout bounds each individual probe so one hung dependency
// cannot stall the whole health response.
const checkTimeout = 5 * time.Second

// CompositeHealthChecker fans a health request out to every registered
// probe concurrently and merges the results. A single failing probe
// marks the service unhealthy and not ready.
type CompositeHealthChecker struct {
	mu      sync.RWMutex
	probes  map[string]HealthCheckFunc
	started time.Time
	version string
}

// NewCompositeHealthChecker creates an empty checker; with no probes
// registered it reports healthy.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		probes:  make(map[string]HealthCheckFunc),
		started: time.Now(),
		version: version,
	}
}

// AddCheck registers a probe under a name, replacing any previous one.
func (c *CompositeHealthChecker) AddCheck(name string, probe HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// Check runs every probe and aggregates the outcome.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	probes := make(map[string]HealthCheckFunc, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}
	if len(probes) == 0 {
		status.Message = "no probes registered"
		return status
	}

	status.Checks = make(map[string]CheckResult, len(probes))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		failing []string
	)
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe HealthCheckFunc) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			started := time.Now()
			err := probe(probeCtx)

			result := CheckResult{
				Healthy: err == nil,
				Latency: time.Since(started).Round(time.Millisecond).String(),
			}
			if err != nil {
				result.Message = err.Error()
			}

			mu.Lock()
			status.Checks[name] = result
			if err != nil {
				failing = append(failing, name)
			}
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	if len(failing) > 0 {
		sort.Strings(failing)
		status.Healthy = false
		status.Ready = false
		status.Message = fmt.Sprintf("failing: %s", strings.Join(failing, ", "))
	}
	return status
}

// DatabaseChecker is the slice of the Postgres connection the health
// probe needs.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck probes database connectivity.
func NewDatabaseCheck(db DatabaseChecker) HealthCheckFunc {
	return db.Ping
}

// CacheChecker is the slice of the Redis cache the health probe needs.
type CacheChecker interface {
	Ping(ctx context.Context) error
}

// NewCacheCheck probes cache connectivity.
func NewCacheCheck(cache CacheChecker) HealthCheckFunc {
	return cache.Ping
}

// ScoringChecker reports reachability of the pronunciation scoring
// service.
type ScoringChecker interface {
	IsHealthy(ctx context.Context) bool
}

// NewScoringCheck probes the scoring service.
func NewScoringCheck(api ScoringChecker) HealthCheckFunc {
	return func(ctx context.Context) error {
		if !api.IsHealthy(ctx) {
			return errors.New("scoring service unreachable")
		}
		return nil
	}
}
