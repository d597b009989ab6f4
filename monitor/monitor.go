// Package monitor runs the read, decode and notify sequence for one status request.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/mklimuk/chargemon/charger"
	"github.com/mklimuk/chargemon/chgctx"
	"github.com/mklimuk/chargemon/notify"
)

// SnapshotReader is satisfied by link.Supervisor.
type SnapshotReader interface {
	Read(ctx context.Context) (charger.Snapshot, error)
}

// Status is the outcome of one poll. Slots is empty when Err is set.
type Status struct {
	Time     time.Time
	Snapshot charger.Snapshot
	Slots    []charger.SlotReading
	Err      error
}

// Monitor serializes polls so that bus I/O and the transition baseline are never
// touched by two requests at once.
type Monitor struct {
	mx            sync.Mutex
	reader        SnapshotReader
	notifier      *charger.TransitionNotifier
	sink          notify.Sink
	notifyTimeout time.Duration
	now           func() time.Time
	last          *Status
}

type Opt func(*Monitor)

// WithNotifyTimeout bounds the delivery of a single event to the sink.
func WithNotifyTimeout(d time.Duration) Opt {
	return func(m *Monitor) {
		m.notifyTimeout = d
	}
}

func WithClock(now func() time.Time) Opt {
	return func(m *Monitor) {
		m.now = now
	}
}

// New creates a monitor. A nil sink disables notifications.
func New(reader SnapshotReader, sink notify.Sink, opts ...Opt) *Monitor {
	m := &Monitor{
		reader:        reader,
		notifier:      charger.NewTransitionNotifier(),
		sink:          sink,
		notifyTimeout: 5 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Poll reads the charger, updates the transition baseline and delivers FULL events.
// Delivery failures are logged and never affect the returned status.
func (m *Monitor) Poll(ctx context.Context) (Status, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	logger := chgctx.Logger(ctx)
	snap, err := m.reader.Read(ctx)
	if err != nil {
		status := Status{Time: m.now(), Slots: []charger.SlotReading{}, Err: err}
		m.last = &status
		return status, err
	}
	status := Status{Time: m.now(), Snapshot: snap, Slots: charger.Decode(snap)}
	m.last = &status
	for _, event := range m.notifier.Check(status.Slots) {
		logger.Info("slot charged", "slot", event.Slot)
		m.dispatch(ctx, event)
	}
	return status, nil
}

func (m *Monitor) dispatch(ctx context.Context, event charger.Event) {
	if m.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.notifyTimeout)
	defer cancel()
	if err := m.sink.Notify(ctx, event); err != nil {
		chgctx.Logger(ctx).Warn("notification failed", "slot", event.Slot, "error", err)
		return
	}
	chgctx.Logger(ctx).Info("notification sent", "slot", event.Slot)
}

// Last returns the most recent poll result, if any.
func (m *Monitor) Last() (Status, bool) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.last == nil {
		return Status{}, false
	}
	return *m.last, true
}
