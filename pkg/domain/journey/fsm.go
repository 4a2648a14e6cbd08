package journey

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit. They mirror the Status values.
const (
	StateActive    = "active"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

func init() {
	stateMap := map[string]Status{
		StateActive:    StatusActive,
		StateCompleted: StatusCompleted,
		StateFailed:    StatusFailed,
	}
	for fsmState, status := range stateMap {
		if fsmState != string(status) {
			panic(fmt.Sprintf("FSM state %q does not match Status %q", fsmState, status))
		}
	}
}

// MachineContext carries the journey identity and the guard consulted on guarded events.
type MachineContext struct {
	JourneyID string
	Guard     func(journeyID, event string) bool
}

// JourneyStateMachine drives status changes of a single journey.
type JourneyStateMachine struct {
	journeyID   string
	interpreter *statekit.Interpreter[MachineContext]
}

// NewJourneyStateMachine builds a machine positioned at the given status.
// The guard is consulted before "complete"; nil allows everything.
func NewJourneyStateMachine(initial Status, journeyID string, guard func(string, string) bool) (*JourneyStateMachine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("invalid journey status: %s", initial)
	}
	if guard == nil {
		guard = func(string, string) bool { return true }
	}

	builder := statekit.NewMachine[MachineContext]("journey-machine").
		WithInitial(statekit.StateID(initial)).
		WithContext(MachineContext{
			JourneyID: journeyID,
			Guard:     guard,
		}).
		WithGuard("workflowGuard", func(ctx MachineContext, e statekit.Event) bool {
			return ctx.Guard(ctx.JourneyID, string(e.Type))
		})

	builder.State(StateActive).
		On(EventComplete).Target(StateCompleted).Guard("workflowGuard").
		On(EventFail).Target(StateFailed).
		On(EventReset).Target(StateActive).
		Done()

	builder.State(StateCompleted).
		On(EventReset).Target(StateActive).
		Done()

	builder.State(StateFailed).
		On(EventReset).Target(StateActive).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build journey state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &JourneyStateMachine{journeyID: journeyID, interpreter: interpreter}, nil
}

// Transition fires an event. Events the current status does not accept, or
// that the guard vetoes, return a TransitionError.
func (sm *JourneyStateMachine) Transition(event string) error {
	before := sm.CurrentStatus()
	if !before.CanTransitionWith(event) {
		return &TransitionError{JourneyID: sm.journeyID, From: before, Event: event}
	}

	target, _ := before.TransitionWith(event)
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})

	if after := sm.CurrentStatus(); after != target {
		return &TransitionError{JourneyID: sm.journeyID, From: before, To: target, Event: event}
	}
	return nil
}

// CurrentStatus returns the machine's status.
func (sm *JourneyStateMachine) CurrentStatus() Status {
	return Status(sm.interpreter.State().Value)
}

// ValidEvents returns the events accepted from the current status.
func (sm *JourneyStateMachine) ValidEvents() []string {
	return sm.CurrentStatus().ValidEvents()
}

// fire moves j through the machine, guarding completion on the last step being verified.
func fire(j *Journey, event string) error {
	guard := func(_ string, ev string) bool {
		if ev == EventComplete {
			return len(j.Steps) > 0 && j.Steps[len(j.Steps)-1].Verified
		}
		return true
	}
	fsm, err := NewJourneyStateMachine(j.Status, j.ID, guard)
	if err != nil {
		return err
	}
	if err := fsm.Transition(event); err != nil {
		return err
	}
	j.Status = fsm.CurrentStatus()
	return nil
}
