package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with gradual per-learner
// rollout. Rollout assignment hashes the learner ID, so a learner
// stays in or out of a rollout consistently across requests.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Learners are assigned based on a hash of their ID
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// === Progress Features ===
	FeatureProgressDailyBreakdown = "progress.daily_breakdown" // per-day activity in the progress view
	FeatureProgressCache          = "progress.cache"           // Redis read-through cache

	// === Event Features ===
	FeatureEventsRedisFanout = "events.redis_fanout" // publish domain events over Redis Pub/Sub

	// === Scoring Features ===
	FeatureScoringHealthCheck = "scoring.health_check" // include the scoring API in /health

	// === Worker Features ===
	FeatureWorkerNightlyRecompute = "worker.nightly_recompute" // scheduled full recompute sweep
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []*Feature{
		{
			Name:           FeatureProgressDailyBreakdown,
			Description:    "Per-day activity breakdown in the progress view",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureProgressCache,
			Description:    "Redis read-through cache for progress views",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureEventsRedisFanout,
			Description:    "Publish domain events over Redis Pub/Sub",
			Enabled:        false,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureScoringHealthCheck,
			Description:    "Include the scoring API in the health check",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureWorkerNightlyRecompute,
			Description:    "Nightly full recompute sweep over all learners",
			Enabled:        true,
			RolloutPercent: 100,
		},
	}

	for _, f := range defaults {
		ff.features[f.Name] = f
	}
}

// loadFromEnvironment applies FEATURE_* overrides.
// FEATURE_PROGRESS_CACHE=false disables, FEATURE_PROGRESS_CACHE=50
// enables for 50% of learners.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			continue
		}

		if pct, err := strconv.Atoi(val); err == nil && pct >= 0 && pct <= 100 {
			feature.Enabled = pct > 0
			feature.RolloutPercent = pct
		}
	}
}

// featureNameToEnvKey converts "progress.cache" to "FEATURE_PROGRESS_CACHE".
func featureNameToEnvKey(name string) string {
	key := strings.ReplaceAll(name, ".", "_")
	return "FEATURE_" + strings.ToUpper(key)
}

// IsEnabled checks whether a feature is enabled globally.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[featureName]
	return ok && f.Enabled
}

// IsEnabledFor checks whether a feature is enabled for a specific
// learner, honoring the rollout percentage.
func (ff *FeatureFlags) IsEnabledFor(featureName, learnerID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[featureName]
	if !ok || !f.Enabled {
		return false
	}
	if f.RolloutPercent >= 100 {
		return true
	}
	return inRollout(learnerID, featureName, f.RolloutPercent)
}

// inRollout assigns a learner to a rollout bucket. The feature name is
// part of the hash so different features roll out to different subsets.
func inRollout(learnerID, featureName string, percent int) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(learnerID))
	_, _ = h.Write([]byte(featureName))
	return int(h.Sum32()%100) < percent
}

// SetRolloutPercent updates the rollout percentage of a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	if percent < 0 || percent > 100 {
		return &FeatureFlagError{Message: "rollout percent must be 0-100"}
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Message: "unknown feature: " + featureName}
	}
	f.RolloutPercent = percent
	return nil
}

// EnableFeature turns a feature on.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.setEnabled(featureName, true)
}

// DisableFeature turns a feature off.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.setEnabled(featureName, false)
}

func (ff *FeatureFlags) setEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Message: "unknown feature: " + featureName}
	}
	f.Enabled = enabled
	return nil
}

// GetAllFeatures returns a snapshot of all features.
func (ff *FeatureFlags) GetAllFeatures() map[string]Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make(map[string]Feature, len(ff.features))
	for name, f := range ff.features {
		out[name] = *f
	}
	return out
}

// FeatureFlagError is returned for invalid feature flag operations.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return "feature flags: " + e.Message
}
