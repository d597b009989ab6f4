// Package charger decodes the LED pins of the six slot charger and detects
// slots that finished charging.
package charger

import "fmt"

// SlotState is the classification of one slot derived from its red/green LED pair.
type SlotState string

const (
	StateEmpty    SlotState = "EMPTY"
	StateCharging SlotState = "CHARGING"
	StateFull     SlotState = "FULL"
	// StateError means both LEDs are lit, which the charger never does on purpose.
	StateError SlotState = "ERROR"
)

// SlotCount is the number of charging bays, indexed 1..SlotCount.
const SlotCount = 6

// Snapshot holds the 12 LED pins. A set bit means the LED is off (active low, pulled up).
type Snapshot uint16

func (s Snapshot) String() string {
	return fmt.Sprintf("%012b", uint16(s)&0xFFF)
}

func (s Snapshot) bit(pos uint) uint8 {
	return uint8(s>>pos) & 1
}

// SlotReading is the decoded state of one slot together with its raw LED bits.
type SlotReading struct {
	Slot  int       `json:"slot"`
	State SlotState `json:"state"`
	Red   uint8     `json:"R"`
	Green uint8     `json:"G"`
}

// SlotWiring names the snapshot bits carrying the red and green LED of a slot.
type SlotWiring struct {
	Slot     int
	RedBit   uint
	GreenBit uint
}

// Wiring is how the charger LEDs are soldered to the expander:
// port B (bits 6..11) carries slots 1..3, port A (bits 0..5) carries slots 4..6.
var Wiring = [SlotCount]SlotWiring{
	{Slot: 1, RedBit: 6, GreenBit: 7},
	{Slot: 2, RedBit: 8, GreenBit: 9},
	{Slot: 3, RedBit: 10, GreenBit: 11},
	{Slot: 4, RedBit: 0, GreenBit: 1},
	{Slot: 5, RedBit: 2, GreenBit: 3},
	{Slot: 6, RedBit: 4, GreenBit: 5},
}

// Classify maps a red/green pair (1 = off, 0 = lit) to a slot state.
func Classify(red, green uint8) SlotState {
	switch {
	case red == 1 && green == 1:
		return StateEmpty
	case red == 0 && green == 1:
		return StateCharging
	case red == 1 && green == 0:
		return StateFull
	default:
		return StateError
	}
}

// Decode returns the six slot readings in slot order.
func Decode(s Snapshot) []SlotReading {
	readings := make([]SlotReading, 0, SlotCount)
	for _, w := range Wiring {
		r, g := s.bit(w.RedBit), s.bit(w.GreenBit)
		readings = append(readings, SlotReading{
			Slot:  w.Slot,
			State: Classify(r, g),
			Red:   r,
			Green: g,
		})
	}
	return readings
}
