package charger

// Event is raised when a slot enters the FULL state.
type Event struct {
	Slot     int
	State    SlotState
	Readings []SlotReading
}

// TransitionNotifier remembers the last decoded state of every slot and reports
// slots that became FULL since the previous check. It is not safe for concurrent use.
type TransitionNotifier struct {
	previous map[int]SlotState
}

func NewTransitionNotifier() *TransitionNotifier {
	return &TransitionNotifier{}
}

// Check compares readings with the previous ones and replaces the baseline.
// The first call only records the baseline and never returns events.
func (n *TransitionNotifier) Check(readings []SlotReading) []Event {
	current := make(map[int]SlotState, len(readings))
	for _, r := range readings {
		current[r.Slot] = r.State
	}
	previous := n.previous
	n.previous = current
	if previous == nil {
		return nil
	}
	var events []Event
	for _, r := range readings {
		if r.State == StateFull && previous[r.Slot] != StateFull {
			events = append(events, Event{
				Slot:     r.Slot,
				State:    r.State,
				Readings: append([]SlotReading(nil), readings...),
			})
		}
	}
	return events
}

// Baselined reports whether a first set of readings has been recorded.
func (n *TransitionNotifier) Baselined() bool {
	return n.previous != nil
}

// Previous returns the state recorded for slot and whether one exists.
func (n *TransitionNotifier) Previous(slot int) (SlotState, bool) {
	s, ok := n.previous[slot]
	return s, ok
}
