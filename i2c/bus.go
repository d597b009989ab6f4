// Package i2c links to the expander over a native Linux I2C bus.
package i2c

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/chargemon"
	"github.com/mklimuk/chargemon/chgctx"
)

var _ chargemon.Link = &GenericBus{}

type GenericBus struct {
	mx     sync.Mutex
	bus    i2c.BusCloser
	closed bool
}

// OpenGenericBus initializes the host drivers and opens the named bus (e.g. /dev/i2c-1 or "1").
func OpenGenericBus(ctx context.Context, dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("%w: could not init host: %w", chargemon.ErrTransportOpen, err)
	}
	logger := chgctx.Logger(ctx)
	for _, driver := range state.Loaded {
		logger.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open i2c bus %s: %w", chargemon.ErrTransportOpen, dev, err)
	}
	return NewGenericBus(bus), nil
}

func NewGenericBus(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{bus: bus}
}

func (b *GenericBus) WriteRegister8(ctx context.Context, address byte, register byte, value int) error {
	if value < 0 || value > 0xFF {
		return fmt.Errorf("%w: value %d out of range 0..255", chargemon.ErrInvalidArgument, value)
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed {
		return fmt.Errorf("%w: bus closed", chargemon.ErrTransferFailed)
	}
	err := b.bus.Tx(uint16(address), []byte{register, byte(value)}, nil)
	if err != nil {
		return fmt.Errorf("%w: could not write to %#x/%#x: %w", chargemon.ErrTransferFailed, address, register, err)
	}
	return nil
}

func (b *GenericBus) ReadRegister8(ctx context.Context, address byte, register byte) (byte, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed {
		return 0, fmt.Errorf("%w: bus closed", chargemon.ErrTransferFailed)
	}
	buf := make([]byte, 1)
	err := b.bus.Tx(uint16(address), []byte{register}, buf)
	if err != nil {
		return 0, fmt.Errorf("%w: could not read from %#x/%#x: %w", chargemon.ErrTransferFailed, address, register, err)
	}
	return buf[0], nil
}

func (b *GenericBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.bus.Close(); err != nil {
		chgctx.Logger(context.Background()).Warn("i2c bus close failed", "error", err)
	}
	return nil
}
