package shared

import "time"

// EventType names a domain event kind.
type EventType string

// Event types. These drive the notification layer; each one marks
// something significant that happened during progress derivation.
const (
	EventLearnerRegistered EventType = "learner.registered"

	EventPracticeRecorded EventType = "practice.recorded"

	EventPointsGained  EventType = "progress.points_gained"
	EventLevelUp       EventType = "progress.level_up"
	EventStreakUpdated EventType = "progress.streak_updated"
	EventStreakBroken  EventType = "progress.streak_broken"

	EventAchievementUnlocked EventType = "achievement.unlocked"

	EventRecomputeCompleted EventType = "system.recompute_completed"
)

// Event is implemented by every domain event. Payload flattens the
// event data into a map for transport and logging.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
	Payload() map[string]interface{}
}

// BaseEvent supplies the Event plumbing shared by all concrete events.
// Concrete events embed it and add Payload.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent stamps a fresh event with the current time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID returns a copy tied to the originating request.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher is the write half of the bus.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber is the read half of the bus.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// RecomputeCompletedEvent is emitted after a batch recompute sweep.
type RecomputeCompletedEvent struct {
	BaseEvent
	Total   int `json:"total"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

func (e RecomputeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"total":   e.Total,
		"changed": e.Changed,
		"failed":  e.Failed,
	}
}

// NewRecomputeCompletedEvent creates a new RecomputeCompletedEvent.
// The sweep spans all learners, so the aggregate ID is fixed.
func NewRecomputeCompletedEvent(total, changed, failed int) RecomputeCompletedEvent {
	return RecomputeCompletedEvent{
		BaseEvent: NewBaseEvent(EventRecomputeCompleted, "batch"),
		Total:     total,
		Changed:   changed,
		Failed:    failed,
	}
}
