package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/chargemon/cmd/chargemon/console"
	"github.com/mklimuk/chargemon/gpio"
)

var gpioCmd = cli.Command{
	Name:  "gpio",
	Usage: "raw MCP23017 register access",
	Subcommands: cli.Commands{
		&gpioReadCmd,
		&gpioWriteCmd,
		&gpioDumpCmd,
	},
}

var gpioReadCmd = cli.Command{
	Name:      "read",
	Usage:     "read one expander register",
	ArgsUsage: "<register>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		reg, err := gpio.ParseRegister(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode register: %v", err)
		}
		sup := newSupervisor(loadConfig(c))
		defer func() { _ = sup.Close() }()
		err = sup.Do(c.Context, func(ctx context.Context, exp *gpio.MCP23017) error {
			val, err := exp.ReadRegister(ctx, reg)
			if err != nil {
				return err
			}
			console.Printf("%#02x: %#02x %08b\n", reg, val, val)
			return nil
		})
		if err != nil {
			return console.Exit(1, "could not read register: %v", err)
		}
		return nil
	},
}

var gpioWriteCmd = cli.Command{
	Name:      "write",
	Usage:     "write one expander register",
	ArgsUsage: "<register> <value>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		reg, err := gpio.ParseRegister(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode register: %v", err)
		}
		value, err := strconv.ParseInt(c.Args().Get(1), 0, 32)
		if err != nil {
			return console.Exit(1, "could not decode value: %v", err)
		}
		sup := newSupervisor(loadConfig(c))
		defer func() { _ = sup.Close() }()
		err = sup.Do(c.Context, func(ctx context.Context, exp *gpio.MCP23017) error {
			return exp.WriteRegister(ctx, reg, int(value))
		})
		if err != nil {
			return console.Exit(1, "could not write register: %v", err)
		}
		console.Infof("wrote %#02x to %#02x", value, reg)
		return nil
	},
}

var gpioDumpCmd = cli.Command{
	Name:  "dump",
	Usage: "read all expander registers",
	Action: func(c *cli.Context) error {
		sup := newSupervisor(loadConfig(c))
		defer func() { _ = sup.Close() }()
		err := sup.Do(c.Context, func(ctx context.Context, exp *gpio.MCP23017) error {
			for reg := gpio.IODIRA; reg <= gpio.OLATB; reg++ {
				val, err := exp.ReadRegister(ctx, reg)
				if err != nil {
					return fmt.Errorf("register %#02x: %w", reg, err)
				}
				console.Printf("%#02x: %#02x %08b\n", reg, val, val)
			}
			return nil
		})
		if err != nil {
			return console.Exit(1, "could not dump registers: %v", err)
		}
		return nil
	},
}
