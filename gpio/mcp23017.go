package gpio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mklimuk/chargemon"
	"github.com/mklimuk/chargemon/charger"
)

const DefaultMCP23017Address = 0x20

// Register addresses with IOCON.BANK=0 (power-on default), A and B ports interleaved.
const (
	IODIRA   byte = 0x00
	IODIRB   byte = 0x01
	IPOLA    byte = 0x02
	IPOLB    byte = 0x03
	GPINTENA byte = 0x04
	GPINTENB byte = 0x05
	DEFVALA  byte = 0x06
	DEFVALB  byte = 0x07
	INTCONA  byte = 0x08
	INTCONB  byte = 0x09
	IOCONA   byte = 0x0A
	IOCONB   byte = 0x0B
	GPPUA    byte = 0x0C
	GPPUB    byte = 0x0D
	INTFA    byte = 0x0E
	INTFB    byte = 0x0F
	INTCAPA  byte = 0x10
	INTCAPB  byte = 0x11
	GPIOA    byte = 0x12
	GPIOB    byte = 0x13
	OLATA    byte = 0x14
	OLATB    byte = 0x15
)

var registerNames = map[string]byte{
	"IODIRA": IODIRA, "IODIRB": IODIRB,
	"IPOLA": IPOLA, "IPOLB": IPOLB,
	"GPINTENA": GPINTENA, "GPINTENB": GPINTENB,
	"DEFVALA": DEFVALA, "DEFVALB": DEFVALB,
	"INTCONA": INTCONA, "INTCONB": INTCONB,
	"IOCONA": IOCONA, "IOCONB": IOCONB,
	"GPPUA": GPPUA, "GPPUB": GPPUB,
	"INTFA": INTFA, "INTFB": INTFB,
	"INTCAPA": INTCAPA, "INTCAPB": INTCAPB,
	"GPIOA": GPIOA, "GPIOB": GPIOB,
	"OLATA": OLATA, "OLATB": OLATB,
}

// ParseRegister accepts a register name (GPIOA) or a hex index (0x12, 12).
func ParseRegister(s string) (byte, error) {
	if reg, ok := registerNames[strings.ToUpper(s)]; ok {
		return reg, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown register %q", chargemon.ErrInvalidArgument, s)
	}
	if byte(v) > OLATB {
		return 0, fmt.Errorf("%w: register %#x out of range", chargemon.ErrInvalidArgument, v)
	}
	return byte(v), nil
}

// LEDPins are the six low pins of each port; the charger LEDs are wired there.
const LEDPins = 0x3F

type MCP23017 struct {
	transport chargemon.RegisterBus
	address   byte
}

func NewMCP23017(bus chargemon.RegisterBus, address byte) *MCP23017 {
	return &MCP23017{transport: bus, address: address}
}

// ConfigureForActiveLowPullup makes the LED pins pulled-up, non-inverted inputs so that
// a lit (open collector, active low) LED reads 0. The first failing write aborts.
func (m *MCP23017) ConfigureForActiveLowPullup(ctx context.Context) error {
	steps := []struct {
		name  string
		reg   byte
		value int
	}{
		{"direction A", IODIRA, LEDPins},
		{"direction B", IODIRB, LEDPins},
		{"polarity A", IPOLA, 0x00},
		{"polarity B", IPOLB, 0x00},
		{"pull-up A", GPPUA, LEDPins},
		{"pull-up B", GPPUB, LEDPins},
	}
	for _, s := range steps {
		err := m.transport.WriteRegister8(ctx, m.address, s.reg, s.value)
		if err != nil {
			return fmt.Errorf("could not set %s: %w", s.name, err)
		}
	}
	return nil
}

// ReadSnapshot returns port A pins 0..5 as bits 0..5 and port B pins 0..5 as bits 6..11.
func (m *MCP23017) ReadSnapshot(ctx context.Context) (charger.Snapshot, error) {
	a, err := m.ReadRegister(ctx, GPIOA)
	if err != nil {
		return 0, fmt.Errorf("could not read gpio A set: %w", err)
	}
	b, err := m.ReadRegister(ctx, GPIOB)
	if err != nil {
		return 0, fmt.Errorf("could not read gpio B set: %w", err)
	}
	return charger.Snapshot(uint16(b&LEDPins)<<6 | uint16(a&LEDPins)), nil
}

func (m *MCP23017) ReadRegister(ctx context.Context, reg byte) (byte, error) {
	return m.transport.ReadRegister8(ctx, m.address, reg)
}

func (m *MCP23017) WriteRegister(ctx context.Context, reg byte, value int) error {
	return m.transport.WriteRegister8(ctx, m.address, reg, value)
}
