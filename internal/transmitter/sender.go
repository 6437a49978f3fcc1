package transmitter

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// Driver names accepted by Open
const (
	DriverI2C = "i2c"
	DriverLog = "log"
)

// Defaults matching the reference install: ATtiny transmitter on I2C bus 1
const (
	DefaultBus     = 1
	DefaultAddress = 0x0a
	DefaultRate    = 10.0
	DefaultBurst   = 2
)

// ErrClosed is returned by Send after Close
var ErrClosed = errors.New("transmitter closed")

// Sender delivers single command codes to the transmitter peripheral.
// No completion signal is expected from the device.
type Sender interface {
	Send(ctx context.Context, code byte) error
	Close() error
}

// Config selects and parameterises a transmitter driver
type Config struct {
	Driver  string  // "i2c" or "log"
	Bus     int     // I2C bus number, /dev/i2c-<Bus>
	Address uint16  // 7-bit I2C slave address
	Rate    float64 // Max codes per second on the bus (0 = unlimited)
	Burst   int     // Codes allowed back-to-back before rate limiting applies
}

// DefaultConfig returns the configuration of the reference install
func DefaultConfig() Config {
	return Config{
		Driver:  DriverI2C,
		Bus:     DefaultBus,
		Address: DefaultAddress,
		Rate:    DefaultRate,
		Burst:   DefaultBurst,
	}
}

// Open creates the configured driver wrapped in a Serialized sender
func Open(cfg Config) (*Serialized, error) {
	var (
		s   Sender
		err error
	)

	switch cfg.Driver {
	case DriverI2C, "":
		s, err = OpenI2C(cfg.Bus, cfg.Address)
	case DriverLog:
		s = NewLog()
	default:
		return nil, fmt.Errorf("unknown transmitter driver %q (expected %s or %s)", cfg.Driver, DriverI2C, DriverLog)
	}
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return NewSerialized(s, limit, burst), nil
}
