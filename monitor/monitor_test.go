package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/chargemon"
	"github.com/mklimuk/chargemon/charger"
)

// snapshot with every LED off except the green LED of slot 1 (bit 7)
const slot1Full charger.Snapshot = 0xFFF &^ (1 << 7)

// snapshot with every LED off except the red LED of slot 1 (bit 6)
const slot1Charging charger.Snapshot = 0xFFF &^ (1 << 6)

type result struct {
	snap charger.Snapshot
	err  error
}

type scriptedReader struct {
	results []result
	active  int32
	overlap int32
}

func (r *scriptedReader) Read(context.Context) (charger.Snapshot, error) {
	if atomic.AddInt32(&r.active, 1) > 1 {
		atomic.StoreInt32(&r.overlap, 1)
	}
	defer atomic.AddInt32(&r.active, -1)
	time.Sleep(time.Millisecond)
	res := r.results[0]
	if len(r.results) > 1 {
		r.results = r.results[1:]
	}
	return res.snap, res.err
}

type recordingSink struct {
	mx     sync.Mutex
	events []charger.Event
	err    error
}

func (s *recordingSink) Notify(_ context.Context, e charger.Event) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func TestMonitor_Poll(t *testing.T) {
	reader := &scriptedReader{results: []result{{snap: slot1Full}, {snap: slot1Charging}, {snap: slot1Full}, {snap: slot1Full}}}
	sink := &recordingSink{}
	m := New(reader, sink)
	ctx := context.Background()

	st, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, slot1Full, st.Snapshot)
	require.Len(t, st.Slots, 6)
	assert.Equal(t, charger.StateFull, st.Slots[0].State)
	assert.Empty(t, sink.events, "first poll is the baseline")

	_, err = m.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, sink.events)

	_, err = m.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, 1, sink.events[0].Slot)

	_, err = m.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, sink.events, 1, "staying FULL must not fire again")
}

func TestMonitor_SinkFailureIsNotFatal(t *testing.T) {
	reader := &scriptedReader{results: []result{{snap: 0xFFF}, {snap: 0}}}
	sink := &recordingSink{err: errors.New("ntfy down")}
	m := New(reader, sink)
	_, err := m.Poll(context.Background())
	require.NoError(t, err)
	// all six slots go from EMPTY to ERROR: no event
	st, err := m.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sink.events)
	assert.Equal(t, charger.StateError, st.Slots[5].State)

	reader.results = []result{{snap: 0b010101_010101}}
	st, err = m.Poll(context.Background())
	require.NoError(t, err, "delivery errors never reach the caller")
	assert.Len(t, sink.events, 6)
	assert.Equal(t, charger.StateFull, st.Slots[2].State)
}

func TestMonitor_ReadFailure(t *testing.T) {
	cause := errors.Join(chargemon.ErrLinkUnavailable, chargemon.ErrTransferTimeout)
	reader := &scriptedReader{results: []result{{snap: slot1Charging}, {err: cause}}}
	sink := &recordingSink{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := New(reader, sink, WithClock(func() time.Time { return now }))

	_, err := m.Poll(context.Background())
	require.NoError(t, err)
	st, err := m.Poll(context.Background())
	assert.ErrorIs(t, err, chargemon.ErrLinkUnavailable)
	assert.Equal(t, now, st.Time)
	assert.NotNil(t, st.Slots)
	assert.Empty(t, st.Slots)

	last, ok := m.Last()
	require.True(t, ok)
	assert.ErrorIs(t, last.Err, chargemon.ErrLinkUnavailable)

	// a failed poll keeps the previous baseline
	reader.results = []result{{snap: slot1Full}}
	_, err = m.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, sink.events, 1)
}

func TestMonitor_NilSink(t *testing.T) {
	m := New(&scriptedReader{results: []result{{snap: slot1Charging}, {snap: slot1Full}}}, nil)
	_, ok := m.Last()
	assert.False(t, ok)
	_, err := m.Poll(context.Background())
	require.NoError(t, err)
	_, err = m.Poll(context.Background())
	require.NoError(t, err)
}

func TestMonitor_SerializesPolls(t *testing.T) {
	reader := &scriptedReader{results: []result{{snap: 0xFFF}}}
	m := New(reader, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Poll(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(&reader.overlap))
}
