// Package circuitbreaker stops calling a failing dependency for a
// cooling-off period instead of hammering it. After enough consecutive
// failures the breaker trips open and rejects calls instantly; once the
// cooling period passes it lets a single probe through, and the probe's
// outcome decides whether the circuit closes again or reopens.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of the breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects every call until the cooling period ends.
	StateOpen
	// StateHalfOpen lets probe calls through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned without invoking the call while the
// breaker is open (or while a half-open probe is already in flight).
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a breaker.
type Settings struct {
	// Name identifies the breaker in state-change notifications.
	Name string

	// TripThreshold is the number of consecutive failures that opens
	// the circuit.
	TripThreshold int

	// RecoverThreshold is the number of consecutive probe successes
	// that closes it again.
	RecoverThreshold int

	// CoolDown is how long the breaker stays open before probing.
	CoolDown time.Duration

	// MaxProbes caps concurrent calls admitted while half-open.
	MaxProbes int

	// OnStateChange, when set, observes every transition.
	OnStateChange func(name string, from, to State)

	// ShouldTrip classifies errors; nil means every non-nil error
	// counts against the threshold.
	ShouldTrip func(error) bool
}

func (s *Settings) normalize() {
	if s.TripThreshold < 1 {
		s.TripThreshold = 5
	}
	if s.RecoverThreshold < 1 {
		s.RecoverThreshold = 2
	}
	if s.CoolDown <= 0 {
		s.CoolDown = 30 * time.Second
	}
	if s.MaxProbes < 1 {
		s.MaxProbes = 1
	}
}

// CircuitBreaker guards calls to one dependency. Safe for concurrent use.
type CircuitBreaker struct {
	settings Settings

	// now is swappable in tests.
	now func() time.Time

	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	openedAt     time.Time
	activeProbes int
}

// New creates a breaker in the closed state.
func New(settings Settings) *CircuitBreaker {
	settings.normalize()
	return &CircuitBreaker{
		settings: settings,
		now:      time.Now,
		state:    StateClosed,
	}
}

// SpeechAPIBreaker guards the pronunciation scoring API: trips fast,
// cools down a full minute, probes one call at a time. A drill can
// finish without a score, so failing fast beats queueing.
func SpeechAPIBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Settings{
		Name:             "speech-api",
		TripThreshold:    3,
		RecoverThreshold: 2,
		CoolDown:         60 * time.Second,
		MaxProbes:        1,
		OnStateChange:    onStateChange,
	})
}

// Execute runs fn when the breaker admits the call, recording the
// outcome. When the breaker is open it returns ErrCircuitOpen without
// calling fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.settings.CoolDown {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.activeProbes = 1
		return nil
	case StateHalfOpen:
		if cb.activeProbes >= cb.settings.MaxProbes {
			return ErrCircuitOpen
		}
		cb.activeProbes++
		return nil
	}
	return ErrCircuitOpen
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil
	if failed && cb.settings.ShouldTrip != nil {
		failed = cb.settings.ShouldTrip(err)
	}

	if cb.state == StateHalfOpen && cb.activeProbes > 0 {
		cb.activeProbes--
	}

	if failed {
		cb.failures++
		cb.successes = 0
		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.settings.TripThreshold {
				cb.trip()
			}
		case StateHalfOpen:
			// A failed probe reopens immediately.
			cb.trip()
		}
		return
	}

	cb.successes++
	cb.failures = 0
	if cb.state == StateHalfOpen && cb.successes >= cb.settings.RecoverThreshold {
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.now()
	cb.transition(StateOpen)
}

// transition switches state and resets the rolling counters.
// Callers must hold cb.mu.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.activeProbes = 0

	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string {
	return cb.settings.Name
}
