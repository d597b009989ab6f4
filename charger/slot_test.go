package charger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		red, green uint8
		expected   SlotState
	}{
		{1, 1, StateEmpty},
		{0, 1, StateCharging},
		{1, 0, StateFull},
		{0, 0, StateError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("R%dG%d", tt.red, tt.green), func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.red, tt.green))
		})
	}
}

func TestWiringIsBijective(t *testing.T) {
	seen := map[uint]int{}
	for i, w := range Wiring {
		assert.Equal(t, i+1, w.Slot, "wiring must be in slot order")
		seen[w.RedBit]++
		seen[w.GreenBit]++
	}
	require.Len(t, seen, 12)
	for bit := uint(0); bit < 12; bit++ {
		assert.Equal(t, 1, seen[bit], "bit %d", bit)
	}
}

func TestDecode_PortAOnly(t *testing.T) {
	readings := Decode(0b000000_111111)
	require.Len(t, readings, SlotCount)
	for _, r := range readings[:3] {
		assert.Equal(t, StateError, r.State, "slot %d", r.Slot)
		assert.Equal(t, uint8(0), r.Red)
		assert.Equal(t, uint8(0), r.Green)
	}
	for _, r := range readings[3:] {
		assert.Equal(t, StateEmpty, r.State, "slot %d", r.Slot)
		assert.Equal(t, uint8(1), r.Red)
		assert.Equal(t, uint8(1), r.Green)
	}
}

func TestDecode_SingleSlots(t *testing.T) {
	// all LEDs off except the ones listed
	tests := []struct {
		name     string
		lit      []uint
		slot     int
		expected SlotState
	}{
		{"slot 1 charging", []uint{6}, 1, StateCharging},
		{"slot 1 full", []uint{7}, 1, StateFull},
		{"slot 3 full", []uint{11}, 3, StateFull},
		{"slot 4 charging", []uint{0}, 4, StateCharging},
		{"slot 6 full", []uint{5}, 6, StateFull},
		{"slot 5 error", []uint{2, 3}, 5, StateError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot(0xFFF)
			for _, b := range tt.lit {
				snap &^= 1 << b
			}
			for _, r := range Decode(snap) {
				if r.Slot == tt.slot {
					assert.Equal(t, tt.expected, r.State)
					continue
				}
				assert.Equal(t, StateEmpty, r.State, "slot %d", r.Slot)
			}
		})
	}
}

func TestDecode_Deterministic(t *testing.T) {
	for s := Snapshot(0); s <= 0xFFF; s += 37 {
		first := Decode(s)
		_ = Decode(0xFFF ^ s)
		assert.Equal(t, first, Decode(s))
	}
}

func TestSnapshot_String(t *testing.T) {
	assert.Equal(t, "000000111111", Snapshot(0x3F).String())
}
