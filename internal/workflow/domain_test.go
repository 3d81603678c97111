package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachineLegalEdges(t *testing.T) {
	m := NewMachine()

	legal := [][2]State{
		{StateDraft, StatePending},
		{StatePending, StateChecked},
		{StatePending, StateRejected},
		{StateRejected, StatePending},
		{StateChecked, StateDraft},
	}
	for _, edge := range legal {
		_, ok := m.Lookup(edge[0], edge[1])
		assert.True(t, ok, "%s -> %s must be legal", edge[0], edge[1])
	}
}

func TestMachineIllegalEdges(t *testing.T) {
	m := NewMachine()

	illegal := [][2]State{
		{StateDraft, StateChecked},
		{StateDraft, StateRejected},
		{StateChecked, StateChecked},
		{StateChecked, StatePending},
		{StateChecked, StateRejected},
		{StateRejected, StateChecked},
		{StateRejected, StateDraft},
		{StatePending, StateDraft},
	}
	for _, edge := range illegal {
		_, ok := m.Lookup(edge[0], edge[1])
		assert.False(t, ok, "%s -> %s must not be legal", edge[0], edge[1])
	}
}

func TestStateCheckedFlagConsistency(t *testing.T) {
	assert.True(t, StateChecked.Checked())
	for _, s := range []State{StateDraft, StatePending, StateRejected} {
		assert.False(t, s.Checked(), "%s is a pre-publish state", s)
	}

	// Every transition lands on a state whose flag matches the state.
	for _, tr := range Transitions() {
		assert.Equal(t, tr.To == StateChecked, tr.To.Checked())
	}
}

func TestMachineOutbound(t *testing.T) {
	m := NewMachine()
	assert.Len(t, m.Outbound(StatePending), 2)
	assert.Len(t, m.Outbound(StateDraft), 1)
	assert.Len(t, m.Outbound(StateChecked), 1)
	assert.Len(t, m.Outbound(StateRejected), 1)
}

func TestStateValid(t *testing.T) {
	assert.True(t, StateDraft.Valid())
	assert.False(t, State("published").Valid())
	assert.False(t, State("").Valid())
}
