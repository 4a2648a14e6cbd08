package journey

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Status is the lifecycle state of a journey.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Events that move a journey between statuses.
const (
	EventComplete = "complete"
	EventFail     = "fail"
	EventReset    = "reset"
)

// validTransitions maps currentStatus -> event -> targetStatus.
var validTransitions = map[Status]map[string]Status{
	StatusActive: {
		EventReset:    StatusActive,
		EventComplete: StatusCompleted,
		EventFail:     StatusFailed,
	},
	StatusCompleted: {
		EventReset: StatusActive,
	},
	StatusFailed: {
		EventReset: StatusActive,
	},
}

// AllStatuses returns all valid journey statuses.
func AllStatuses() []Status {
	return []Status{StatusActive, StatusCompleted, StatusFailed}
}

// IsValid returns true if the status is a valid journey status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionWith returns true if the event can fire from this status.
func (s Status) CanTransitionWith(event string) bool {
	_, ok := validTransitions[s][event]
	return ok
}

// TransitionWith returns the target status for an event, or an error if not allowed.
func (s Status) TransitionWith(event string) (Status, error) {
	transitions, ok := validTransitions[s]
	if !ok {
		return s, fmt.Errorf("no transitions defined for status: %s", s)
	}
	target, ok := transitions[event]
	if !ok {
		return s, fmt.Errorf("event '%s' not allowed from status '%s'", event, s)
	}
	return target, nil
}

// ValidEvents returns the events that can fire from this status, sorted.
func (s Status) ValidEvents() []string {
	var events []string
	for event := range validTransitions[s] {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// AcceptsProof reports whether proofs may still change the journey.
func (s Status) AcceptsProof() bool {
	return s == StatusActive
}

// DisplayName returns a human-readable name for the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// ParseStatus parses a string into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid journey status: %s", s)
	}
	return status, nil
}

// UnmarshalJSON rejects unknown statuses and treats an empty one as active.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*s = StatusActive
		return nil
	}
	status, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}
