package workflow

import "github.com/lattice-cms/lattice/internal/authz"

// State is the review-workflow status of a content item.
type State string

const (
	// StateDraft marks newly created or edited content awaiting submission.
	StateDraft State = "draft"
	// StatePending marks content submitted for review.
	StatePending State = "pending"
	// StateChecked marks approved, publicly visible content.
	StateChecked State = "checked"
	// StateRejected marks content a reviewer declined; the author may edit
	// and resubmit it.
	StateRejected State = "rejected"
)

// Valid reports whether the state is one of the defined values.
func (s State) Valid() bool {
	switch s {
	case StateDraft, StatePending, StateChecked, StateRejected:
		return true
	}
	return false
}

// Checked reports the visibility flag implied by the state. The stored
// checked flag must always agree with this.
func (s State) Checked() bool {
	return s == StateChecked
}

// Transition is one legal edge of the check-state machine. AnyOf lists the
// capabilities that may trigger it; any one suffices.
type Transition struct {
	From   State
	To     State
	AnyOf  []authz.Capability
	Action string
}

// Transitions returns the full transition table.
func Transitions() []Transition {
	return []Transition{
		{From: StateDraft, To: StatePending, AnyOf: []authz.Capability{authz.ContentAdd, authz.ContentEdit}, Action: ActionSubmit},
		{From: StatePending, To: StateChecked, AnyOf: []authz.Capability{authz.ContentCheck}, Action: ActionApprove},
		{From: StatePending, To: StateRejected, AnyOf: []authz.Capability{authz.ContentCheck}, Action: ActionReject},
		{From: StateRejected, To: StatePending, AnyOf: []authz.Capability{authz.ContentEdit}, Action: ActionResubmit},
		{From: StateChecked, To: StateDraft, AnyOf: []authz.Capability{authz.ContentCheck}, Action: ActionRevoke},
	}
}

// Machine answers legality questions about the transition table.
type Machine struct {
	edges    map[[2]State]Transition
	outbound map[State][]Transition
}

// NewMachine builds the machine from the static transition table.
func NewMachine() *Machine {
	m := &Machine{
		edges:    make(map[[2]State]Transition),
		outbound: make(map[State][]Transition),
	}
	for _, tr := range Transitions() {
		m.edges[[2]State{tr.From, tr.To}] = tr
		m.outbound[tr.From] = append(m.outbound[tr.From], tr)
	}
	return m
}

// Lookup returns the transition for the edge, if it exists.
func (m *Machine) Lookup(from, to State) (Transition, bool) {
	tr, ok := m.edges[[2]State{from, to}]
	return tr, ok
}

// Outbound returns the transitions leaving a state.
func (m *Machine) Outbound(from State) []Transition {
	return m.outbound[from]
}
