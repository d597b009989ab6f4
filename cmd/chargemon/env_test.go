package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/chargemon/charger"
	"github.com/mklimuk/chargemon/config"
	"github.com/mklimuk/chargemon/notify"
)

func TestNewSinks(t *testing.T) {
	sink, closeSinks := newSinks(config.Default())
	assert.Nil(t, sink)
	closeSinks()

	cfg := config.Default()
	cfg.NtfyURL = "https://ntfy.sh/chargemon-test"
	sink, closeSinks = newSinks(cfg)
	defer closeSinks()
	multi, ok := sink.(notify.Multi)
	require.True(t, ok)
	require.Len(t, multi, 1)
	assert.Equal(t, cfg.NtfyURL, multi[0].(*notify.Ntfy).URL())
}

func TestTestEvent(t *testing.T) {
	event := testEvent(3)
	assert.Equal(t, 3, event.Slot)
	assert.Equal(t, charger.StateFull, event.State)
	require.Len(t, event.Readings, charger.SlotCount)
	for _, r := range event.Readings {
		assert.Equal(t, charger.Classify(r.Red, r.Green), r.State)
		if r.Slot == 3 {
			assert.Equal(t, charger.StateFull, r.State)
		} else {
			assert.Equal(t, charger.StateEmpty, r.State)
		}
	}
}

func TestColorState(t *testing.T) {
	assert.Equal(t, "EMPTY", colorState(charger.StateEmpty))
	assert.Contains(t, colorState(charger.StateFull), "FULL")
}
