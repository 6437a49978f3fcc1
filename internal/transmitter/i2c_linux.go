//go:build linux

package transmitter

import (
	"os"

	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl from <linux/i2c-dev.h>
const i2cSlave = 0x0703

func openI2CDevice(path string, address uint16) (device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	if err := unix.IoctlSetInt(fd, i2cSlave, int(address)); err != nil {
		_ = unix.Close(fd)
		return nil, &os.PathError{Op: "ioctl I2C_SLAVE", Path: path, Err: err}
	}

	return os.NewFile(uintptr(fd), path), nil
}
