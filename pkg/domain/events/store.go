package events

// EventStore persists the audit trail of domain events.
type EventStore interface {
	// Append adds an event, chaining it to the previous one.
	Append(event *BaseEvent) error

	// LoadAll returns all events in chronological order.
	LoadAll() ([]*BaseEvent, error)

	// LoadByAggregate returns the events of one aggregate.
	LoadByAggregate(aggregateType, aggregateID string) ([]*BaseEvent, error)

	// LoadByUser returns the events recorded for one user.
	LoadByUser(userID string) ([]*BaseEvent, error)

	// GetLastEvent returns the most recent event, or nil when empty.
	GetLastEvent() (*BaseEvent, error)

	// Count returns the total number of events.
	Count() (int, error)
}

// Projection rebuilds read models from stored events.
type Projection interface {
	Name() string
	Apply(event *BaseEvent) error
	Rebuild(events []*BaseEvent) error
	Reset() error
}
