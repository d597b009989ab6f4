package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/chargemon/chgctx"
	"github.com/mklimuk/chargemon/cmd/chargemon/console"
	"github.com/mklimuk/chargemon/monitor"
	"github.com/mklimuk/chargemon/web"
)

var serveCmd = cli.Command{
	Name:  "serve",
	Usage: "serve the dashboard and the status API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen address, overrides host and port from the config",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := c.Context
		logger := chgctx.Logger(ctx)
		cfg := loadConfig(c)
		addr := cfg.Addr()
		if c.IsSet("addr") {
			addr = c.String("addr")
		}

		sup := newSupervisor(cfg)
		defer func() { _ = sup.Close() }()
		sink, closeSinks := newSinks(cfg)
		defer closeSinks()
		// the charger may be plugged in later, every request retries
		if err := sup.EnsureReady(ctx); err != nil {
			logger.Warn("charger not connected yet", "error", err)
		}

		srv := web.New(ctx, addr, monitor.New(sup, sink), cfg.NtfyURL)
		errs := make(chan error, 1)
		go func() {
			errs <- srv.ListenAndServe()
		}()
		logger.Info("serving dashboard", "addr", addr, "ntfy", cfg.NtfyURL != "", "mqtt", cfg.MQTTBroker != "")

		select {
		case err := <-errs:
			if !errors.Is(err, http.ErrServerClosed) {
				return console.Exit(1, "server error: %v", err)
			}
			return nil
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return console.Exit(1, "shutdown error: %v", err)
		}
		return nil
	},
}
