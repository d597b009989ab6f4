package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/chargemon/chgctx"
	"github.com/mklimuk/chargemon/cmd/chargemon/console"
	"github.com/mklimuk/chargemon/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "chargemon"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", config.Version, config.Date, config.Commit)
	app.Usage = "BC-211 charger monitor"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and report dumps",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file path",
			Value:   config.DefaultPath(),
			EnvVars: []string{"CHARGEMON_CONFIG"},
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		logger := slog.New(charm)
		slog.SetDefault(logger)
		ctx.Context = chgctx.WithLogger(chgctx.SetVerbose(ctx.Context, ctx.Bool("verbose")), logger)
		return nil
	}
	app.Commands = cli.Commands{
		&serveCmd,
		&statusCmd,
		&usbCmd,
		&cp2112Cmd,
		&gpioCmd,
		&notifyCmd,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			return exerr.ExitCode()
		}
		console.Error(err.Error())
		return 1
	}
	return 0
}
