package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sstallion/go-hid"

	"github.com/mklimuk/chargemon"
	"github.com/mklimuk/chargemon/chgctx"
)

var initOnce sync.Once
var initErr error

func initHID() error {
	initOnce.Do(func() {
		initErr = hid.Init()
	})
	return initErr
}

// DeviceInfo describes an enumerated HID device.
type DeviceInfo struct {
	Path         string
	Serial       string
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
}

// Enumerate lists HID devices matching the vendor and product IDs; zero matches any.
func Enumerate(vendorID, productID uint16) ([]DeviceInfo, error) {
	if err := initHID(); err != nil {
		return nil, fmt.Errorf("could not init hidapi: %w", err)
	}
	var devices []DeviceInfo
	err := hid.Enumerate(vendorID, productID, func(info *hid.DeviceInfo) error {
		devices = append(devices, DeviceInfo{
			Path:         info.Path,
			Serial:       info.SerialNbr,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not enumerate hid devices: %w", err)
	}
	return devices, nil
}

// OpenCP2112 opens the first CP2112 bridge (or the one matching WithSerial) and configures it.
func OpenCP2112(ctx context.Context, opts ...CP2112Opt) (*CP2112, error) {
	config := defaultOpts(opts)
	if err := initHID(); err != nil {
		return nil, fmt.Errorf("%w: could not init hidapi: %w", chargemon.ErrTransportOpen, err)
	}
	var dev *hid.Device
	var err error
	if config.Serial == "" {
		dev, err = hid.OpenFirst(VendorID, ProductID)
	} else {
		dev, err = hid.Open(VendorID, ProductID, config.Serial)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cp2112 %04x:%04x: %w", chargemon.ErrTransportOpen, VendorID, ProductID, err)
	}
	logDeviceInfo(ctx, dev)
	bridge := NewCP2112(dev, opts...)
	if err := bridge.Configure(ctx); err != nil {
		_ = bridge.Close()
		return nil, err
	}
	return bridge, nil
}

// some hidapi backends fail on string descriptors; they are informational only
func logDeviceInfo(ctx context.Context, dev *hid.Device) {
	logger := chgctx.Logger(ctx)
	mfr, err := dev.GetMfrStr()
	if err != nil {
		return
	}
	product, _ := dev.GetProductStr()
	serial, _ := dev.GetSerialNbr()
	logger.Debug("cp2112 opened", "manufacturer", mfr, "product", product, "serial", serial)
}

func isReadTimeout(err error) bool {
	return errors.Is(err, hid.ErrTimeout)
}
