package main

import (
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/chargemon/adapter"
	"github.com/mklimuk/chargemon/cmd/chargemon/console"
)

var cp2112Cmd = cli.Command{
	Name:  "cp2112",
	Usage: "manage the USB-HID I2C bridge",
	Subcommands: cli.Commands{
		&cp2112InfoCmd,
		&cp2112ResetCmd,
	},
}

type bridgeInfo struct {
	Devices []adapter.DeviceInfo `yaml:"devices"`
	SMBus   adapter.SMBusConfig  `yaml:"smbus"`
}

var cp2112InfoCmd = cli.Command{
	Name:  "info",
	Usage: "print attached bridges and the SMBus configuration applied on open",
	Action: func(c *cli.Context) error {
		devices, err := adapter.Enumerate(adapter.VendorID, adapter.ProductID)
		if err != nil {
			return console.Exit(1, "could not enumerate devices: %v", err)
		}
		enc := yaml.NewEncoder(console.Writer())
		defer func() { _ = enc.Close() }()
		err = enc.Encode(bridgeInfo{Devices: devices, SMBus: adapter.DefaultSMBusConfig})
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}

var cp2112ResetCmd = cli.Command{
	Name:  "reset",
	Usage: "reset the bridge; it re-enumerates on the bus afterwards",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("reset the CP2112 bridge?")
			if err != nil {
				return console.Exit(1, "prompt error: %v", err)
			}
			if answer != console.Yes {
				return nil
			}
		}
		cfg := loadConfig(c)
		bridge, err := adapter.OpenCP2112(c.Context, adapter.WithSerial(cfg.Serial), adapter.WithRxTxLED(cfg.RxTxLED))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		defer func() { _ = bridge.Close() }()
		if err := bridge.Reset(c.Context); err != nil {
			return console.Exit(1, "reset failed: %s", console.Red(err))
		}
		console.PInfof(console.PictoPlug, "bridge reset")
		return nil
	},
}
