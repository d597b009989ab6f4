// Package notify delivers slot transition events to external alerting endpoints.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mklimuk/chargemon/charger"
)

// Sink delivers one event. Implementations must not retry forever; the caller only logs failures.
type Sink interface {
	Notify(ctx context.Context, event charger.Event) error
}

// Title is the short headline naming the slot.
func Title(e charger.Event) string {
	return fmt.Sprintf("BC-211 Slot %d %s", e.Slot, e.State)
}

// Body repeats the title followed by all current slot states.
func Body(e charger.Event) string {
	return fmt.Sprintf("%s\nCurrent states: %s", Title(e), FormatStates(e.Readings))
}

// FormatStates renders readings as "S1=EMPTY, S2=FULL, ...".
func FormatStates(readings []charger.SlotReading) string {
	parts := make([]string, len(readings))
	for i, r := range readings {
		parts[i] = fmt.Sprintf("S%d=%s", r.Slot, r.State)
	}
	return strings.Join(parts, ", ")
}

// Multi fans an event out to every sink. All sinks are tried; their errors are joined.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, event charger.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
