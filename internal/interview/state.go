package interview

import (
	"errors"
	"fmt"
	"slices"
)

// State is the lifecycle position of a profile's interview.
type State string

const (
	StateIdle      State = "IDLE"
	StateLoading   State = "LOADING"
	StateActive    State = "ACTIVE"
	StateFeedback  State = "FEEDBACK"
	StateReviewing State = "REVIEWING"
)

// ErrInvalidTransition is returned when an operation is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid interview state transition")

// transitions lists, for each state, the states it may move to.
//
//	Idle      -> Loading (start), Reviewing (open history)
//	Loading   -> Active (greeting streamed), Feedback (graded), Idle (failed or reset)
//	Active    -> Loading (end), Idle (reset)
//	Feedback  -> Idle (reset), Reviewing (open history)
//	Reviewing -> Idle (reset), Reviewing (open another)
var transitions = map[State][]State{
	StateIdle:      {StateLoading, StateReviewing},
	StateLoading:   {StateActive, StateFeedback, StateIdle},
	StateActive:    {StateLoading, StateIdle},
	StateFeedback:  {StateIdle, StateReviewing},
	StateReviewing: {StateIdle, StateReviewing},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// Machine holds the current state and enforces the transition table.
type Machine struct {
	state State
}

// NewMachine returns a machine in StateIdle.
func NewMachine() Machine {
	return Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	if m.state == "" {
		return StateIdle
	}
	return m.state
}

// Transition moves to the given state or returns ErrInvalidTransition.
func (m *Machine) Transition(to State) error {
	from := m.State()
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.state = to
	return nil
}
