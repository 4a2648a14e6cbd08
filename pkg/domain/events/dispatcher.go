package events

import (
	"context"
	"fmt"
	"sync"
)

// EventHandlerFunc handles a domain event.
type EventHandlerFunc func(ctx context.Context, event DomainEvent) error

// HandlerRegistration binds a named handler to event types. "*" matches every event.
type HandlerRegistration struct {
	EventTypes []string
	Handler    EventHandlerFunc
	Name       string
}

type namedHandler struct {
	name    string
	handler EventHandlerFunc
}

// EventDispatcher fans events out to registered handlers in registration order.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	// ContinueOnError runs every handler and collects failures instead of stopping at the first.
	ContinueOnError bool
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{handlers: make(map[string][]namedHandler)}
}

// Register adds a handler for its event types.
func (d *EventDispatcher) Register(reg HandlerRegistration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, eventType := range reg.EventTypes {
		d.handlers[eventType] = append(d.handlers[eventType], namedHandler{name: reg.Name, handler: reg.Handler})
	}
}

// RegisterHandler is shorthand for Register.
func (d *EventDispatcher) RegisterHandler(name string, handler EventHandlerFunc, eventTypes ...string) {
	d.Register(HandlerRegistration{Name: name, Handler: handler, EventTypes: eventTypes})
}

// Dispatch runs the handlers for the event's type followed by wildcard handlers.
func (d *EventDispatcher) Dispatch(ctx context.Context, event DomainEvent) error {
	d.mu.RLock()
	eventType := event.EventType()
	handlers := append(append([]namedHandler(nil), d.handlers[eventType]...), d.handlers["*"]...)
	d.mu.RUnlock()

	var errs []error
	for _, nh := range handlers {
		if err := nh.handler(ctx, event); err != nil {
			handlerErr := fmt.Errorf("handler %s failed for event %s: %w", nh.name, eventType, err)
			if !d.ContinueOnError {
				return handlerErr
			}
			errs = append(errs, handlerErr)
		}
	}
	if len(errs) > 0 {
		return &DispatchError{Errors: errs}
	}
	return nil
}

// HasHandlers reports whether any handler would receive the event type.
func (d *EventDispatcher) HasHandlers(eventType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventType]) > 0 || len(d.handlers["*"]) > 0
}

// DispatchError collects handler failures when ContinueOnError is set.
type DispatchError struct {
	Errors []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple dispatch errors (%d)", len(e.Errors))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *DispatchError) Unwrap() []error {
	return e.Errors
}
