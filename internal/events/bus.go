package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(StatusEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic over the concrete event type, so dispatch
	// goes through a type switch.
	switch e := ev.(type) {
	case StatusEvent:
		event.Publish(b.dispatcher, e)
	case ConnectionStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ModeChangedEvent:
		event.Publish(b.dispatcher, e)
	case BeatEvent:
		event.Publish(b.dispatcher, e)
	case AudioFrameDroppedEvent:
		event.Publish(b.dispatcher, e)
	case SessionEvent:
		event.Publish(b.dispatcher, e)
	case CredentialsSavedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e StatusEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StatusEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConnectionStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ModeChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BeatEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AudioFrameDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CredentialsSavedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
