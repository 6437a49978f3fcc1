// Package transmitter delivers command codes to the RF transmitter.
//
// The transmitter is an ATtiny-based 433MHz board on the I2C bus. It takes
// one command byte per SMBus "write byte data" transaction ('a'..'d') and
// keys the matching remote-socket code over the air.
//
// Drivers:
//   - i2c: /dev/i2c-<bus>, slave address selected with the I2C_SLAVE ioctl
//   - log: dry run, codes are only logged
//
// Open wraps the driver in Serialized, which allows a single writer on the
// bus at a time and rate-limits bursts with a token bucket. Failures are
// returned to the caller and never retried here.
package transmitter
