package chargemon

import (
	"context"
	"errors"
)

// Error kinds reported by the transport, the register map and the link supervisor.
// Callers classify failures with errors.Is.
var (
	ErrTransportOpen     = errors.New("transport open failed")
	ErrTransferTimeout   = errors.New("transfer timeout")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrLinkUnavailable   = errors.New("link unavailable")
)

// RegisterWriter writes a single byte into an 8-bit register of an I2C device.
// Value must be within 0..255.
type RegisterWriter interface {
	WriteRegister8(ctx context.Context, address byte, register byte, value int) error
}

// RegisterReader reads a single byte from an 8-bit register of an I2C device.
type RegisterReader interface {
	ReadRegister8(ctx context.Context, address byte, register byte) (byte, error)
}

type RegisterBus interface {
	RegisterReader
	RegisterWriter
}

// Link is an open connection to the I2C bus. Close must be safe to call more than once.
type Link interface {
	RegisterBus
	Close() error
}
