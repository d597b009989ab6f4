package main

import (
	"context"
	"errors"
	"io/fs"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/chargemon"
	"github.com/mklimuk/chargemon/adapter"
	"github.com/mklimuk/chargemon/chgctx"
	"github.com/mklimuk/chargemon/config"
	"github.com/mklimuk/chargemon/i2c"
	"github.com/mklimuk/chargemon/link"
	"github.com/mklimuk/chargemon/notify"
)

// loadConfig never fails; problems with the file are logged and the defaults are used.
func loadConfig(c *cli.Context) config.Config {
	path := c.String("config")
	logger := chgctx.Logger(c.Context)
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("config not found, notifications disabled", "path", path)
	case err != nil:
		logger.Warn("invalid config, notifications disabled", "path", path, "error", err)
	default:
		logger.Debug("config loaded", "path", path, "adapter", cfg.Adapter)
	}
	return cfg
}

func opener(cfg config.Config) link.Opener {
	if cfg.Adapter == config.AdapterI2CDev {
		return func(ctx context.Context) (chargemon.Link, error) {
			bus, err := i2c.OpenGenericBus(ctx, cfg.I2CDevice)
			if err != nil {
				return nil, err
			}
			return bus, nil
		}
	}
	return func(ctx context.Context) (chargemon.Link, error) {
		bridge, err := adapter.OpenCP2112(ctx, adapter.WithSerial(cfg.Serial), adapter.WithRxTxLED(cfg.RxTxLED))
		if err != nil {
			return nil, err
		}
		return bridge, nil
	}
}

func newSupervisor(cfg config.Config) *link.Supervisor {
	return link.NewSupervisor(opener(cfg), link.WithExpanderAddress(cfg.ExpanderAddress))
}

// newSinks returns every configured notification sink. The sink is nil when nothing is configured.
func newSinks(cfg config.Config) (notify.Sink, func()) {
	var sinks notify.Multi
	var mqtt *notify.MQTT
	if cfg.NtfyURL != "" {
		sinks = append(sinks, notify.NewNtfy(cfg.NtfyURL, nil))
	}
	if cfg.MQTTBroker != "" {
		mqtt = notify.DialMQTT(cfg.MQTTBroker, cfg.MQTTTopic)
		sinks = append(sinks, mqtt)
	}
	closeFn := func() {
		if mqtt != nil {
			_ = mqtt.Close()
		}
	}
	if len(sinks) == 0 {
		return nil, closeFn
	}
	return sinks, closeFn
}
