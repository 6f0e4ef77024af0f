package voice

import (
	"sync"
	"time"
)

// State is a pipeline run's position in the produce/validate/consume cycle.
type State int

const (
	StateIdle State = iota
	StateProducing
	StateValidating
	StateFallbackProducing
	StateConsuming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateProducing:
		return "PRODUCING"
	case StateValidating:
		return "VALIDATING"
	case StateFallbackProducing:
		return "FALLBACK_PRODUCING"
	case StateConsuming:
		return "CONSUMING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes pipeline state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// StateListenerFunc adapts a function to StateListener.
type StateListenerFunc func(StateChange)

func (f StateListenerFunc) OnStateChange(event StateChange) { f(event) }

var validTransitions = map[State][]State{
	StateIdle:              {StateProducing, StateValidating, StateFailed},
	StateProducing:         {StateValidating, StateFallbackProducing, StateFailed},
	StateValidating:        {StateConsuming, StateFallbackProducing, StateDone, StateFailed},
	StateFallbackProducing: {StateValidating, StateFallbackProducing, StateFailed},
	StateConsuming:         {StateDone, StateFailed},
}

// stateMachine tracks one pipeline run. A fresh machine is used per call so
// runs never share state.
type stateMachine struct {
	mu        sync.Mutex
	current   State
	trace     []StateChange
	listeners []StateListener
}

func newStateMachine(listeners ...StateListener) *stateMachine {
	return &stateMachine{current: StateIdle, listeners: listeners}
}

func (sm *stateMachine) State() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

func transitionValid(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation.
func (sm *stateMachine) Transition(to State, reason string) error {
	sm.mu.Lock()
	if !transitionValid(sm.current, to) {
		from := sm.current
		sm.mu.Unlock()
		return &InvalidTransitionError{From: from, To: to}
	}
	event := StateChange{
		FromState: sm.current,
		ToState:   to,
		Timestamp: time.Now(),
		Reason:    reason,
	}
	sm.current = to
	sm.trace = append(sm.trace, event)
	listeners := append([]StateListener(nil), sm.listeners...)
	sm.mu.Unlock()

	for _, l := range listeners {
		l.OnStateChange(event)
	}
	return nil
}

// Trace returns every transition taken so far.
func (sm *stateMachine) Trace() []StateChange {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return append([]StateChange(nil), sm.trace...)
}

// InvalidTransitionError represents an invalid state transition attempt.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}
