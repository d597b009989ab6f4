package charger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readings(states ...SlotState) []SlotReading {
	res := make([]SlotReading, len(states))
	for i, s := range states {
		res[i] = SlotReading{Slot: i + 1, State: s}
	}
	return res
}

func allSlots(s SlotState) []SlotReading {
	return readings(s, s, s, s, s, s)
}

func TestTransitionNotifier_FirstCallIsBaseline(t *testing.T) {
	for _, s := range []SlotState{StateEmpty, StateCharging, StateFull, StateError} {
		n := NewTransitionNotifier()
		assert.False(t, n.Baselined())
		assert.Empty(t, n.Check(allSlots(s)))
		assert.True(t, n.Baselined())
		prev, ok := n.Previous(3)
		assert.True(t, ok)
		assert.Equal(t, s, prev)
	}
}

func TestTransitionNotifier_FiresOnEntryToFull(t *testing.T) {
	n := NewTransitionNotifier()
	n.Check(readings(StateCharging, StateEmpty, StateFull, StateError, StateCharging, StateCharging))
	current := readings(StateFull, StateCharging, StateFull, StateFull, StateEmpty, StateCharging)
	events := n.Check(current)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Slot)
	assert.Equal(t, 4, events[1].Slot)
	for _, e := range events {
		assert.Equal(t, StateFull, e.State)
		assert.Equal(t, current, e.Readings)
	}
}

func TestTransitionNotifier_NoRepeatWhileFull(t *testing.T) {
	n := NewTransitionNotifier()
	n.Check(allSlots(StateCharging))
	assert.Len(t, n.Check(allSlots(StateFull)), 6)
	assert.Empty(t, n.Check(allSlots(StateFull)))
	assert.Empty(t, n.Check(allSlots(StateFull)))
}

func TestTransitionNotifier_NonFullMovesAreSilent(t *testing.T) {
	n := NewTransitionNotifier()
	n.Check(allSlots(StateEmpty))
	assert.Empty(t, n.Check(allSlots(StateCharging)))
	assert.Empty(t, n.Check(allSlots(StateError)))
	assert.Empty(t, n.Check(allSlots(StateEmpty)))
}

func TestTransitionNotifier_Oscillation(t *testing.T) {
	n := NewTransitionNotifier()
	n.Check(allSlots(StateEmpty))
	fired := 0
	for _, s := range []SlotState{StateFull, StateCharging, StateFull} {
		for _, e := range n.Check(readings(s, StateEmpty, StateEmpty, StateEmpty, StateEmpty, StateEmpty)) {
			assert.Equal(t, 1, e.Slot)
			fired++
		}
	}
	assert.Equal(t, 2, fired)
}

func TestTransitionNotifier_EventReadingsAreCopied(t *testing.T) {
	n := NewTransitionNotifier()
	n.Check(allSlots(StateEmpty))
	current := allSlots(StateFull)
	events := n.Check(current)
	require.NotEmpty(t, events)
	current[0].State = StateError
	assert.Equal(t, StateFull, events[0].Readings[0].State)
}
