// Package config loads the monitor settings. The file is YAML; plain JSON files are accepted as well.
package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Build metadata injected by the dev tool.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	AdapterCP2112 = "cp2112"
	AdapterI2CDev = "i2c-dev"
)

const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 5000
	DefaultMQTTTopic       = "chargemon/slots"
	DefaultI2CDevice       = "/dev/i2c-1"
	DefaultExpanderAddress = 0x20
)

type Config struct {
	NtfyURL         string
	Host            string
	Port            int
	MQTTBroker      string
	MQTTTopic       string
	Adapter         string
	I2CDevice       string
	Serial          string
	ExpanderAddress byte
	RxTxLED         bool
}

func Default() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		MQTTTopic:       DefaultMQTTTopic,
		Adapter:         AdapterCP2112,
		I2CDevice:       DefaultI2CDevice,
		ExpanderAddress: DefaultExpanderAddress,
		RxTxLED:         true,
	}
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DefaultPath is config.json next to the executable.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(filepath.Dir(exe), "config.json")
}

type file struct {
	NtfyURL         string `yaml:"ntfy_url"`
	Host            any    `yaml:"host"`
	Port            any    `yaml:"port"`
	MQTTBroker      string `yaml:"mqtt_broker"`
	MQTTTopic       string `yaml:"mqtt_topic"`
	Adapter         string `yaml:"adapter"`
	I2CDevice       string `yaml:"i2c_device"`
	Serial          string `yaml:"serial"`
	ExpanderAddress any    `yaml:"expander_address"`
	RxTxLED         *bool  `yaml:"rx_tx_led"`
}

// Load reads the config file at path. It always returns a usable config: when the file is
// missing or malformed the defaults are returned (with notifications disabled) along with the error.
// Individual values that are blank or invalid fall back to their defaults silently.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("could not parse config: %w", err)
	}
	cfg.NtfyURL = strings.TrimSpace(f.NtfyURL)
	if host, ok := f.Host.(string); ok && strings.TrimSpace(host) != "" {
		cfg.Host = strings.TrimSpace(host)
	}
	if port, ok := toInt(f.Port); ok && port > 0 && port <= math.MaxUint16 {
		cfg.Port = port
	}
	cfg.MQTTBroker = strings.TrimSpace(f.MQTTBroker)
	if topic := strings.TrimSpace(f.MQTTTopic); topic != "" {
		cfg.MQTTTopic = topic
	}
	switch a := strings.ToLower(strings.TrimSpace(f.Adapter)); a {
	case AdapterCP2112, AdapterI2CDev:
		cfg.Adapter = a
	}
	if dev := strings.TrimSpace(f.I2CDevice); dev != "" {
		cfg.I2CDevice = dev
	}
	cfg.Serial = strings.TrimSpace(f.Serial)
	// valid 7-bit addresses outside the reserved ranges
	if addr, ok := toInt(f.ExpanderAddress); ok && addr >= 0x08 && addr <= 0x77 {
		cfg.ExpanderAddress = byte(addr)
	}
	if f.RxTxLED != nil {
		cfg.RxTxLED = *f.RxTxLED
	}
	return cfg, nil
}

// toInt accepts integers, integral floats and numeric strings (decimal or 0x hex).
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 0, 32)
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
