// Package selection implements the room unit selection dialog.
package selection

// State is the current step of the selection dialog.
type State string

const (
	StateNoSelection      State = "no_selection"
	StateUnitChosen       State = "unit_chosen"
	StateBookingRequested State = "booking_requested"
)

// FSM holds the allowed state transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates an FSM with the selection transitions.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateNoSelection:      {StateUnitChosen},
			StateUnitChosen:       {StateUnitChosen, StateNoSelection, StateBookingRequested},
			StateBookingRequested: {StateNoSelection},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
