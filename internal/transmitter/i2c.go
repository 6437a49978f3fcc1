package transmitter

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// device is an open I2C character device with the slave address selected
type device interface {
	io.WriteCloser
}

// openDevice is replaced in tests; the real implementation is per-platform
var openDevice = openI2CDevice

// I2C writes codes to an RF transmitter on a Linux I2C bus.
//
// Each code goes out as an SMBus "write byte data" transaction with the
// code as the command byte and a zero data byte, which is what the
// transmitter firmware listens for.
type I2C struct {
	mu      sync.Mutex
	path    string
	address uint16
	dev     device
}

// OpenI2C opens /dev/i2c-<bus> and selects the slave address
func OpenI2C(bus int, address uint16) (*I2C, error) {
	if address == 0 || address > 0x7f {
		return nil, fmt.Errorf("invalid I2C address 0x%02x (must be 7-bit, non-zero)", address)
	}

	path := fmt.Sprintf("/dev/i2c-%d", bus)
	dev, err := openDevice(path, address)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C device %s at 0x%02x: %w", path, address, err)
	}

	return &I2C{
		path:    path,
		address: address,
		dev:     dev,
	}, nil
}

// Send writes the code to the bus
func (b *I2C) Send(ctx context.Context, code byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return ErrClosed
	}

	n, err := b.dev.Write([]byte{code, 0x00})
	if err != nil {
		return fmt.Errorf("I2C write to %s at 0x%02x failed: %w", b.path, b.address, err)
	}
	if n != 2 {
		return fmt.Errorf("I2C short write to %s: %d of 2 bytes", b.path, n)
	}
	return nil
}

// Close releases the device
func (b *I2C) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return nil
	}
	err := b.dev.Close()
	b.dev = nil
	return err
}

// String describes the bus endpoint for logs
func (b *I2C) String() string {
	return fmt.Sprintf("%s@0x%02x", b.path, b.address)
}
