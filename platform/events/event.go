// Package events is the in-process publish/subscribe bus that carries
// lifecycle changes from the owning module to its observers (derived order
// state, notifications, realtime fan-out).
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus. Names are dotted
// "<module>.<entity>.<change>" strings, unique per payload type.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by every payload to carry its timestamp.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// Handler reacts to one published event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events by name. Publish is fire-and-forget; PublishSync
// returns once every handler has run.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

// SubscribeAll registers handler under each of names.
func SubscribeAll(bus Bus, handler Handler, names ...string) {
	for _, name := range names {
		bus.Subscribe(name, handler)
	}
}
