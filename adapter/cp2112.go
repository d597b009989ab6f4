package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/chargemon"
	"github.com/mklimuk/chargemon/chgctx"
)

var _ chargemon.Link = &CP2112{}

const VendorID = 0x10C4
const ProductID = 0xEA90

// HID report IDs (AN495)
const (
	reportReset                  byte = 0x01
	reportGPIOConfig             byte = 0x02
	reportSMBusConfig            byte = 0x06
	reportDataWriteRead          byte = 0x11
	reportDataReadForce          byte = 0x12
	reportDataReadResponse       byte = 0x13
	reportDataWrite              byte = 0x14
	reportTransferStatus         byte = 0x15
	reportTransferStatusResponse byte = 0x16
)

// Transfer status response fields
const (
	transferStatusCompleteWithError byte = 0x03 // status0
	transferStatusSucceeded         byte = 0x05 // status1
)

const smbusConfigTrailer = 0x0F

// HIDDevice is the part of an open hidapi device the bridge driver needs.
// Report slices always start with the report ID.
type HIDDevice interface {
	Write(p []byte) (int, error)
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)
	SendFeatureReport(p []byte) (int, error)
	Close() error
}

// SMBusConfig is the content of the Set SMBus Configuration feature report.
type SMBusConfig struct {
	Enabled      bool
	Clock        uint16
	SlaveAddress uint16
	ReadTimeout  uint16
	WriteTimeout uint16
	RetryCount   byte
}

// DefaultSMBusConfig selects roughly 100 kHz and timeouts suitable for single byte transfers.
var DefaultSMBusConfig = SMBusConfig{
	Enabled:      true,
	Clock:        0x86A0,
	SlaveAddress: 0x0200,
	ReadTimeout:  0xFF00,
	WriteTimeout: 0xFF01,
	RetryCount:   0x00,
}

func (c SMBusConfig) report() []byte {
	r := make([]byte, 14)
	r[0] = reportSMBusConfig
	if c.Enabled {
		r[2] = 0x01
	}
	binary.BigEndian.PutUint16(r[3:5], c.Clock)
	binary.BigEndian.PutUint16(r[5:7], c.SlaveAddress)
	binary.BigEndian.PutUint16(r[8:10], c.ReadTimeout)
	binary.BigEndian.PutUint16(r[10:12], c.WriteTimeout)
	r[12] = c.RetryCount
	r[13] = smbusConfigTrailer
	return r
}

type CP2112Opts struct {
	Serial       string
	RxTxLED      bool
	PollAttempts int
	PollDelay    time.Duration
	ReadTimeout  time.Duration
	ResetWait    time.Duration
	SMBus        SMBusConfig
}

type CP2112Opt func(*CP2112Opts)

// WithSerial selects the bridge by USB serial number.
func WithSerial(serial string) CP2112Opt {
	return func(o *CP2112Opts) {
		o.Serial = serial
	}
}

// WithRxTxLED routes GPIO0/GPIO1 to the transfer activity LEDs.
func WithRxTxLED(enabled bool) CP2112Opt {
	return func(o *CP2112Opts) {
		o.RxTxLED = enabled
	}
}

// WithPolling sets the transfer status poll budget.
func WithPolling(attempts int, delay time.Duration) CP2112Opt {
	return func(o *CP2112Opts) {
		o.PollAttempts = attempts
		o.PollDelay = delay
	}
}

func WithReadTimeout(timeout time.Duration) CP2112Opt {
	return func(o *CP2112Opts) {
		o.ReadTimeout = timeout
	}
}

func WithResetWait(wait time.Duration) CP2112Opt {
	return func(o *CP2112Opts) {
		o.ResetWait = wait
	}
}

func WithSMBusConfig(c SMBusConfig) CP2112Opt {
	return func(o *CP2112Opts) {
		o.SMBus = c
	}
}

func defaultOpts(opts []CP2112Opt) CP2112Opts {
	config := CP2112Opts{
		RxTxLED:      true,
		PollAttempts: 10,
		PollDelay:    10 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		ResetWait:    50 * time.Millisecond,
		SMBus:        DefaultSMBusConfig,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.PollAttempts < 1 {
		config.PollAttempts = 1
	}
	return config
}

// CP2112 drives a Silicon Labs CP2112 HID-to-SMBus bridge. All exchanges are
// serialized; the bridge runs one SMBus transaction at a time.
type CP2112 struct {
	mx       sync.Mutex
	dev      HIDDevice
	config   CP2112Opts
	closed   bool
	status   []byte
	response []byte
}

// NewCP2112 wraps an already open HID device. Configure must be called before register I/O.
func NewCP2112(dev HIDDevice, opts ...CP2112Opt) *CP2112 {
	return &CP2112{
		dev:      dev,
		config:   defaultOpts(opts),
		status:   make([]byte, 7),
		response: make([]byte, 64),
	}
}

// Configure sets up the GPIO pins and the SMBus engine. Failures are reported as ErrTransportOpen.
func (d *CP2112) Configure(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	var direction, pushPull, special byte
	if d.config.RxTxLED {
		direction, pushPull, special = 0x83, 0xFF, 0xFF
	}
	// 48MHz/(2*1) on the clock pin if it is used
	const clockDivider = 0x01
	err := d.sendFeature(ctx, []byte{reportGPIOConfig, direction, pushPull, special, clockDivider})
	if err != nil {
		return fmt.Errorf("%w: gpio configuration: %w", chargemon.ErrTransportOpen, err)
	}
	err = d.sendFeature(ctx, d.config.SMBus.report())
	if err != nil {
		return fmt.Errorf("%w: smbus configuration: %w", chargemon.ErrTransportOpen, err)
	}
	return nil
}

// Reset cancels all transfers and clears error state. The bridge re-enumerates
// afterwards so the link has to be reopened.
func (d *CP2112) Reset(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.sendFeature(ctx, []byte{reportReset, 0x01})
	if err != nil {
		return fmt.Errorf("%w: reset: %w", chargemon.ErrTransferFailed, err)
	}
	return sleep(ctx, d.config.ResetWait)
}

func (d *CP2112) WriteRegister8(ctx context.Context, address byte, register byte, value int) error {
	if value < 0 || value > 0xFF {
		return fmt.Errorf("%w: value %d out of range 0..255", chargemon.ErrInvalidArgument, value)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.write(ctx, []byte{reportDataWrite, (address << 1) & 0xFE, 0x02, register, byte(value)})
	if err != nil {
		return fmt.Errorf("write %#x to %#x/%#x: %w", value, address, register, err)
	}
	err = d.waitTransferComplete(ctx)
	if err != nil {
		return fmt.Errorf("write %#x to %#x/%#x: %w", value, address, register, err)
	}
	return nil
}

func (d *CP2112) ReadRegister8(ctx context.Context, address byte, register byte) (byte, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	// flags=0, read 1 byte, write 1 byte (the register address)
	err := d.write(ctx, []byte{reportDataWriteRead, (address << 1) & 0xFE, 0x00, 0x01, 0x01, register})
	if err != nil {
		return 0, fmt.Errorf("read %#x/%#x: %w", address, register, err)
	}
	err = d.waitTransferComplete(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %#x/%#x: %w", address, register, err)
	}
	// offset=0, length=1
	err = d.write(ctx, []byte{reportDataReadForce, 0x00, 0x01})
	if err != nil {
		return 0, fmt.Errorf("read %#x/%#x: %w", address, register, err)
	}
	n, err := d.read(ctx, d.response)
	if err != nil {
		return 0, fmt.Errorf("read %#x/%#x: %w", address, register, err)
	}
	if n < 4 {
		return 0, fmt.Errorf("read %#x/%#x: %w: got %d bytes, expected 4", address, register, chargemon.ErrMalformedResponse, n)
	}
	if d.response[0] != reportDataReadResponse {
		return 0, fmt.Errorf("read %#x/%#x: %w: unexpected report %#x", address, register, chargemon.ErrMalformedResponse, d.response[0])
	}
	return d.response[3], nil
}

// Close releases the HID device. Errors are logged and never returned.
func (d *CP2112) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.dev.Close(); err != nil {
		chgctx.Logger(context.Background()).Warn("cp2112 close failed", "error", err)
	}
	return nil
}

// waitTransferComplete polls the transfer status until the SMBus engine reports success.
// Missing or busy responses are retried until the attempt budget runs out.
func (d *CP2112) waitTransferComplete(ctx context.Context) error {
	for i := 0; i < d.config.PollAttempts; i++ {
		err := d.write(ctx, []byte{reportTransferStatus, 0x01})
		if err != nil {
			return err
		}
		n, err := d.read(ctx, d.status)
		if err != nil {
			return err
		}
		if n >= 3 && d.status[0] == reportTransferStatusResponse {
			if d.status[2] == transferStatusSucceeded {
				return nil
			}
			if d.status[1] == transferStatusCompleteWithError {
				return fmt.Errorf("%w: status %#x/%#x", chargemon.ErrTransferFailed, d.status[1], d.status[2])
			}
		}
		if err := sleep(ctx, d.config.PollDelay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: smbus transfer not complete after %d polls", chargemon.ErrTransferTimeout, d.config.PollAttempts)
}

func (d *CP2112) sendFeature(ctx context.Context, report []byte) error {
	if d.closed {
		return errLinkClosed
	}
	d.dump(ctx, "feature", report)
	n, err := d.dev.SendFeatureReport(report)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("feature report %#x not sent", report[0])
	}
	return nil
}

func (d *CP2112) write(ctx context.Context, report []byte) error {
	if d.closed {
		return errLinkClosed
	}
	d.dump(ctx, "output", report)
	n, err := d.dev.Write(report)
	if err != nil {
		return fmt.Errorf("%w: %w", chargemon.ErrTransferFailed, err)
	}
	if n <= 0 {
		return fmt.Errorf("%w: output report %#x not sent", chargemon.ErrTransferFailed, report[0])
	}
	return nil
}

// read returns 0 when the bridge had nothing to report within the read timeout.
func (d *CP2112) read(ctx context.Context, buf []byte) (int, error) {
	clear(buf)
	n, err := d.dev.ReadWithTimeout(buf, d.config.ReadTimeout)
	if err != nil {
		if isReadTimeout(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %w", chargemon.ErrTransferFailed, err)
	}
	if n > 0 {
		d.dump(ctx, "input", buf[:n])
	}
	return n, nil
}

func (d *CP2112) dump(ctx context.Context, kind string, report []byte) {
	if !chgctx.IsVerbose(ctx) {
		return
	}
	chgctx.Logger(ctx).Debug("cp2112 "+kind+" report", "report", hex.EncodeToString(report))
}

var errLinkClosed = fmt.Errorf("%w: link closed", chargemon.ErrTransferFailed)

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
