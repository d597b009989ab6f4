package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/chargemon/adapter"
	"github.com/mklimuk/chargemon/cmd/chargemon/console"
)

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "inspect USB HID devices",
	Subcommands: cli.Commands{
		&usbLsCmd,
		&usbDetectCmd,
	},
}

var usbLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list all HID devices",
	Action: func(c *cli.Context) error {
		devices, err := adapter.Enumerate(0, 0)
		if err != nil {
			return console.Exit(1, "could not enumerate devices: %v", err)
		}
		w := tabwriter.NewWriter(console.Writer(), 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT\n")
		for _, dev := range devices {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product)
		}
		return w.Flush()
	},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "list attached CP2112 bridges",
	Action: func(c *cli.Context) error {
		devices, err := adapter.Enumerate(adapter.VendorID, adapter.ProductID)
		if err != nil {
			return console.Exit(1, "could not enumerate devices: %v", err)
		}
		if len(devices) == 0 {
			return console.Exit(2, "%s no CP2112 bridge found", console.PictoStop)
		}
		w := tabwriter.NewWriter(console.Writer(), 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "VENDOR\tPRODUCT\tSERIAL\tDEVICE\n")
		for _, dev := range devices {
			_, _ = fmt.Fprintf(w, "%#x\t%#x\t%s\t%s\n", dev.VendorID, dev.ProductID, dev.Serial, "CP2112")
		}
		return w.Flush()
	},
}
