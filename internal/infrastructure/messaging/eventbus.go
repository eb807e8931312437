// Package messaging implements the event bus that carries progress
// domain events (level ups, unlocked achievements, broken streaks) to
// in-process subscribers, and optionally fans them out over Redis
// Pub/Sub for multi-instance deployments.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/shared"
)

// ErrEventBusClosed is returned by Publish and Subscribe after Close.
var ErrEventBusClosed = errors.New("event bus is closed")

const defaultWorkers = 10

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTION REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// registry holds handler subscriptions. All access goes through its
// own lock so the bus never holds a lock while running handlers.
type registry struct {
	mu       sync.RWMutex
	byType   map[shared.EventType][]shared.EventHandler
	wildcard []shared.EventHandler
}

func newRegistry() *registry {
	return &registry{byType: make(map[shared.EventType][]shared.EventHandler)}
}

func (r *registry) add(eventType shared.EventType, h shared.EventHandler) {
	r.mu.Lock()
	r.byType[eventType] = append(r.byType[eventType], h)
	r.mu.Unlock()
}

func (r *registry) addWildcard(h shared.EventHandler) {
	r.mu.Lock()
	r.wildcard = append(r.wildcard, h)
	r.mu.Unlock()
}

// matching returns every handler interested in eventType, typed
// subscriptions first.
func (r *registry) matching(eventType shared.EventType) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.byType[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(r.wildcard))
	out = append(out, typed...)
	out = append(out, r.wildcard...)
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBusConfig configures an InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on a bounded worker pool instead of
	// inline on the publishing goroutine.
	AsyncMode bool

	// WorkerPoolSize caps concurrent handler executions in async mode.
	WorkerPoolSize int

	// Logger for dispatch diagnostics.
	Logger *slog.Logger

	// EnableMetrics turns on per-bus counters.
	EnableMetrics bool
}

// DefaultInMemoryEventBusConfig returns the production defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: defaultWorkers,
		EnableMetrics:  true,
	}
}

// InMemoryEventBus dispatches events to subscribers within a single
// process. It implements shared.EventBus and is the default bus for
// single-instance deployments and tests.
type InMemoryEventBus struct {
	subs    *registry
	async   bool
	slots   chan struct{}
	logger  *slog.Logger
	metrics *EventBusMetrics

	lifecycle sync.Mutex
	closed    bool
	inflight  sync.WaitGroup
}

// NewInMemoryEventBus creates a bus from config, filling in defaults
// for anything left zero.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := config.WorkerPoolSize
	if workers <= 0 {
		workers = defaultWorkers
	}

	bus := &InMemoryEventBus{
		subs:   newRegistry(),
		async:  config.AsyncMode,
		slots:  make(chan struct{}, workers),
		logger: logger,
	}
	if config.EnableMetrics {
		bus.metrics = NewEventBusMetrics()
	}
	return bus
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	if b.isClosed() {
		return ErrEventBusClosed
	}
	b.subs.add(eventType, handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler that receives every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	if b.isClosed() {
		return ErrEventBusClosed
	}
	b.subs.addWildcard(handler)
	b.logger.Debug("subscribed global handler")
	return nil
}

// Publish delivers event to every matching handler. In async mode it
// returns once the deliveries are queued; handler errors are logged,
// never returned.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if b.isClosed() {
		return ErrEventBusClosed
	}

	handlers := b.subs.matching(event.EventType())
	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	if b.metrics != nil {
		b.metrics.RecordPublish(event.EventType())
	}

	for _, handler := range handlers {
		if b.async {
			b.inflight.Add(1)
			go b.deliver(event, handler)
		} else if err := b.invoke(event, handler); err != nil {
			b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
		}
	}
	return nil
}

// deliver runs one async handler execution, gated by the worker pool.
// Deliveries queued before Close always run; Close waits for them.
func (b *InMemoryEventBus) deliver(event shared.Event, handler shared.EventHandler) {
	defer b.inflight.Done()

	b.slots <- struct{}{}
	defer func() { <-b.slots }()

	if err := b.invoke(event, handler); err != nil {
		b.logger.Error("async handler error", "event_type", event.EventType(), "error", err)
	}
}

// invoke runs a handler and records its outcome.
func (b *InMemoryEventBus) invoke(event shared.Event, handler shared.EventHandler) error {
	start := time.Now()
	err := handler(event)
	if b.metrics != nil {
		b.metrics.RecordHandlerExecution(event.EventType(), time.Since(start), err == nil)
	}
	return err
}

// Close stops accepting events and waits for queued async deliveries
// to drain. Safe to call more than once.
func (b *InMemoryEventBus) Close() error {
	b.lifecycle.Lock()
	if b.closed {
		b.lifecycle.Unlock()
		return nil
	}
	b.closed = true
	b.lifecycle.Unlock()

	b.inflight.Wait()
	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns the bus counters, or nil when metrics are disabled.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

func (b *InMemoryEventBus) isClosed() bool {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	return b.closed
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS FAN-OUT
// ══════════════════════════════════════════════════════════════════════════════

// RedisClient is the Pub/Sub surface RedisEventBus needs. GoRedisClient
// adapts go-redis to it; tests supply stubs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is one message received from a Redis subscription.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBusConfig configures a RedisEventBus.
type RedisEventBusConfig struct {
	// Client carries the Pub/Sub traffic. Required.
	Client RedisClient

	// ChannelName is the Redis channel events travel on.
	ChannelName string

	// InstanceID distinguishes this process so it can drop its own
	// echoed messages. Generated when empty.
	InstanceID string

	// LocalBusConfig configures the embedded in-memory bus that does
	// the actual handler dispatch.
	LocalBusConfig InMemoryEventBusConfig

	// Logger for subscription diagnostics.
	Logger *slog.Logger
}

// RedisEventBus mirrors every published event onto a Redis channel and
// replays events published by other instances into the local bus, so a
// handler subscribed on any instance sees the whole cluster's events.
type RedisEventBus struct {
	remote     RedisClient
	local      *InMemoryEventBus
	channel    string
	instanceID string
	logger     *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	listener sync.WaitGroup

	lifecycle sync.Mutex
	closed    bool
}

// NewRedisEventBus builds the bus and starts its subscription loop.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "practice-hub:events"
	}
	if config.InstanceID == "" {
		config.InstanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		remote:     config.Client,
		local:      NewInMemoryEventBus(config.LocalBusConfig),
		channel:    config.ChannelName,
		instanceID: config.InstanceID,
		logger:     config.Logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	messages, err := bus.remote.Subscribe(ctx, bus.channel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start subscriber: %w", err)
	}

	bus.listener.Add(1)
	go func() {
		defer bus.listener.Done()
		bus.listen(messages)
	}()

	return bus, nil
}

// Subscribe registers a handler for one event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler that receives every event.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Publish dispatches locally and mirrors the event to Redis. A failed
// mirror is logged; local delivery still happens.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.lifecycle.Lock()
	closed := b.closed
	b.lifecycle.Unlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := json.Marshal(wireEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.remote.Publish(b.ctx, b.channel, string(data)); err != nil {
		b.logger.Error("failed to publish to redis", "error", err)
	}
	return b.local.Publish(event)
}

// listen replays remote events into the local bus until the message
// channel closes or the bus shuts down.
func (b *RedisEventBus) listen(messages <-chan RedisMessage) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", "error", msg.Err)
				continue
			}

			var envelope wireEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Error("failed to unmarshal event", "error", err)
				continue
			}
			if envelope.InstanceID == b.instanceID {
				// Our own publish, already dispatched locally.
				continue
			}
			if err := b.local.Publish(envelope.event()); err != nil {
				b.logger.Error("failed to process remote event", "error", err)
			}
		}
	}
}

// Close stops the subscription loop and drains the local bus.
func (b *RedisEventBus) Close() error {
	b.lifecycle.Lock()
	if b.closed {
		b.lifecycle.Unlock()
		return nil
	}
	b.closed = true
	b.lifecycle.Unlock()

	b.cancel()
	b.listener.Wait()

	if err := b.local.Close(); err != nil {
		b.logger.Error("failed to close local bus", "error", err)
	}
	b.logger.Info("redis event bus closed")
	return nil
}

// Metrics returns the embedded local bus counters.
func (b *RedisEventBus) Metrics() *EventBusMetrics {
	return b.local.Metrics()
}

// wireEnvelope is the JSON shape events take on the Redis channel.
type wireEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// event rehydrates the envelope as a shared.Event for local dispatch.
func (e wireEnvelope) event() shared.Event {
	return remoteEvent{envelope: e}
}

type remoteEvent struct {
	envelope wireEnvelope
}

func (e remoteEvent) EventType() shared.EventType     { return e.envelope.EventType }
func (e remoteEvent) AggregateID() string             { return e.envelope.AggregateID }
func (e remoteEvent) OccurredAt() time.Time           { return e.envelope.OccurredAt }
func (e remoteEvent) Payload() map[string]interface{} { return e.envelope.Payload }

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics counts publishes and handler executions.
type EventBusMetrics struct {
	mu sync.Mutex

	published map[shared.EventType]int64

	execs     int64
	failures  int64
	execTotal time.Duration
}

// NewEventBusMetrics returns an empty counter set.
func NewEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{published: make(map[shared.EventType]int64)}
}

// RecordPublish counts one published event.
func (m *EventBusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	m.published[eventType]++
	m.mu.Unlock()
}

// RecordHandlerExecution counts one handler run and its outcome.
func (m *EventBusMetrics) RecordHandlerExecution(eventType shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.execs++
	m.execTotal += duration
	if !success {
		m.failures++
	}
}

// Snapshot returns a consistent view of the counters.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var published int64
	for _, n := range m.published {
		published += n
	}

	snap := EventBusMetricsSnapshot{
		TotalPublished:     published,
		TotalHandlerExecs:  m.execs,
		HandlerSuccessRate: 1.0,
	}
	if m.execs > 0 {
		snap.HandlerSuccessRate = float64(m.execs-m.failures) / float64(m.execs)
		snap.AverageHandlerDuration = m.execTotal / time.Duration(m.execs)
	}
	return snap
}

// EventBusMetricsSnapshot is a point-in-time copy of the counters.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64
	TotalHandlerExecs      int64
	HandlerSuccessRate     float64
	AverageHandlerDuration time.Duration
}
