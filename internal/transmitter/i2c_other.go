//go:build !linux

package transmitter

import (
	"fmt"
	"runtime"
)

func openI2CDevice(path string, address uint16) (device, error) {
	return nil, fmt.Errorf("I2C transmitter is only supported on linux, not %s (use the log driver)", runtime.GOOS)
}
