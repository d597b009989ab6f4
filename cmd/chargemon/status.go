package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/chargemon/charger"
	"github.com/mklimuk/chargemon/cmd/chargemon/console"
	"github.com/mklimuk/chargemon/monitor"
)

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "read the charger once and print the slot states",
	Action: func(c *cli.Context) error {
		cfg := loadConfig(c)
		sup := newSupervisor(cfg)
		defer func() { _ = sup.Close() }()
		st, err := monitor.New(sup, nil).Poll(c.Context)
		if err != nil {
			return console.Exit(2, "charger not connected or I2C error: %v", err)
		}
		console.PInfof(console.PictoBattery, "bits %s at %s", console.White(st.Snapshot), st.Time.Format("15:04:05"))
		w := tabwriter.NewWriter(console.Writer(), 8, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "SLOT\tSTATE\tR\tG\n")
		for _, slot := range st.Slots {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", slot.Slot, colorState(slot.State), slot.Red, slot.Green)
		}
		return w.Flush()
	},
}

func colorState(s charger.SlotState) string {
	switch s {
	case charger.StateFull:
		return console.Green(s)
	case charger.StateCharging:
		return console.Yellow(s)
	case charger.StateError:
		return console.Red(s)
	}
	return string(s)
}
