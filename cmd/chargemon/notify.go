package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/chargemon/charger"
	"github.com/mklimuk/chargemon/cmd/chargemon/console"
)

var notifyCmd = cli.Command{
	Name:  "notify",
	Usage: "exercise the notification sinks",
	Subcommands: cli.Commands{
		&notifyTestCmd,
	},
}

var notifyTestCmd = cli.Command{
	Name:      "test",
	Usage:     "send a FULL notification for a slot to every configured sink",
	ArgsUsage: "<slot>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		slot, err := strconv.Atoi(c.Args().Get(0))
		if err != nil || slot < 1 || slot > charger.SlotCount {
			return console.Exit(1, "slot must be 1..%d", charger.SlotCount)
		}
		sink, closeSinks := newSinks(loadConfig(c))
		defer closeSinks()
		if sink == nil {
			return console.Exit(1, "no notification sink configured")
		}
		err = sink.Notify(c.Context, testEvent(slot))
		if err != nil {
			return console.Exit(1, "notification failed: %v", err)
		}
		console.PInfof(console.PictoBell, "notification sent for slot %d", slot)
		return nil
	},
}

// testEvent pretends slot is full and every other slot is empty.
func testEvent(slot int) charger.Event {
	readings := make([]charger.SlotReading, 0, charger.SlotCount)
	for i := 1; i <= charger.SlotCount; i++ {
		r := charger.SlotReading{Slot: i, State: charger.StateEmpty, Red: 1, Green: 1}
		if i == slot {
			r = charger.SlotReading{Slot: i, State: charger.StateFull, Red: 1, Green: 0}
		}
		readings = append(readings, r)
	}
	return charger.Event{Slot: slot, State: charger.StateFull, Readings: readings}
}
