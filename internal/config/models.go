package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/muurk/yeebridge/internal/discovery"
	"github.com/muurk/yeebridge/internal/logging"
	"github.com/muurk/yeebridge/internal/protocol"
	"github.com/muurk/yeebridge/internal/server"
	"github.com/muurk/yeebridge/internal/transmitter"
)

// CurrentVersion is the only config file version understood
const CurrentVersion = 1

// Config represents the entire configuration file.
type Config struct {
	Version     int               `yaml:"version"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Transmitter TransmitterConfig `yaml:"transmitter"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GatewayConfig configures the bulb protocol listener. The port is fixed.
type GatewayConfig struct {
	Host            string        `yaml:"host"`                   // Listen address ("" = all interfaces)
	ReadTimeout     time.Duration `yaml:"read_timeout"`           // Time allowed to receive a request
	WriteTimeout    time.Duration `yaml:"write_timeout"`          // Time allowed to write the ack
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`       // Time allowed for the transmitter
	MaxPayload      int           `yaml:"max_payload"`            // Largest accepted request in bytes
	Sequential      bool          `yaml:"sequential"`             // One connection at a time
	AnalysisDir     string        `yaml:"analysis_dir,omitempty"` // JSONL capture directory
}

// TransmitterConfig selects the RF transmitter driver
type TransmitterConfig struct {
	Driver  string  `yaml:"driver"`  // "i2c" or "log"
	Bus     int     `yaml:"bus"`     // /dev/i2c-<bus>
	Address int     `yaml:"address"` // 7-bit slave address
	Rate    float64 `yaml:"rate"`    // Codes per second (0 = unlimited)
	Burst   int     `yaml:"burst"`
}

// DiscoveryConfig controls how the gateway presents itself on the LAN
type DiscoveryConfig struct {
	SSDP            bool   `yaml:"ssdp"`
	MDNS            bool   `yaml:"mdns"`
	ID              string `yaml:"id"` // 64-bit id, decimal or 0x-prefixed hex
	Model           string `yaml:"model"`
	Name            string `yaml:"name"`
	FirmwareVersion int    `yaml:"fw_ver"`
	Host            string `yaml:"advertise_host,omitempty"` // Address put in Location ("" = per request)
}

// LoggingConfig holds the default log settings; flags and
// YEEBRIDGE_LOG_LEVEL take precedence
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	bulb := discovery.DefaultBulbInfo()
	tx := transmitter.DefaultConfig()

	return &Config{
		Version: CurrentVersion,
		Gateway: GatewayConfig{
			ReadTimeout:     server.DefaultReadTimeout,
			WriteTimeout:    server.DefaultWriteTimeout,
			DeliveryTimeout: server.DefaultDeliveryTimeout,
			MaxPayload:      protocol.DefaultMaxPayloadSize,
		},
		Transmitter: TransmitterConfig{
			Driver:  tx.Driver,
			Bus:     tx.Bus,
			Address: int(tx.Address),
			Rate:    tx.Rate,
			Burst:   tx.Burst,
		},
		Discovery: DiscoveryConfig{
			SSDP:            true,
			MDNS:            true,
			ID:              bulb.IDString(),
			Model:           bulb.Model,
			Name:            bulb.Name,
			FirmwareVersion: bulb.FirmwareVersion,
		},
	}
}

// Validate checks every section and returns the first problem found
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}

	g := c.Gateway
	if g.ReadTimeout < 0 || g.WriteTimeout < 0 || g.DeliveryTimeout < 0 {
		return fmt.Errorf("gateway timeouts must not be negative")
	}
	if g.MaxPayload < 0 {
		return fmt.Errorf("gateway.max_payload must not be negative: %d", g.MaxPayload)
	}

	t := c.Transmitter
	switch t.Driver {
	case transmitter.DriverI2C, transmitter.DriverLog:
	default:
		return fmt.Errorf("transmitter.driver must be %q or %q, got %q",
			transmitter.DriverI2C, transmitter.DriverLog, t.Driver)
	}
	if t.Bus < 0 {
		return fmt.Errorf("transmitter.bus must not be negative: %d", t.Bus)
	}
	if t.Address < 0x01 || t.Address > 0x7f {
		return fmt.Errorf("transmitter.address must be a 7-bit address, got 0x%02x", t.Address)
	}
	if t.Rate < 0 || t.Burst < 0 {
		return fmt.Errorf("transmitter.rate and transmitter.burst must not be negative")
	}

	if _, err := parseBulbID(c.Discovery.ID); err != nil {
		return err
	}

	if c.Logging.Level != "" {
		if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}
	switch c.Logging.Format {
	case logging.FormatAuto, logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q",
			logging.FormatConsole, logging.FormatJSON, c.Logging.Format)
	}

	return nil
}

// ServerConfig converts the gateway section for server.New
func (c *Config) ServerConfig() *server.Config {
	return &server.Config{
		Host:            c.Gateway.Host,
		Port:            server.DefaultPort,
		ReadTimeout:     c.Gateway.ReadTimeout,
		WriteTimeout:    c.Gateway.WriteTimeout,
		DeliveryTimeout: c.Gateway.DeliveryTimeout,
		MaxPayloadSize:  c.Gateway.MaxPayload,
		Sequential:      c.Gateway.Sequential,
		AnalysisDir:     c.Gateway.AnalysisDir,
	}
}

// TransmitterConfig converts the transmitter section for transmitter.Open
func (c *Config) TransmitterConfig() transmitter.Config {
	return transmitter.Config{
		Driver:  c.Transmitter.Driver,
		Bus:     c.Transmitter.Bus,
		Address: uint16(c.Transmitter.Address),
		Rate:    c.Transmitter.Rate,
		Burst:   c.Transmitter.Burst,
	}
}

// BulbInfo converts the discovery section into the advertised identity
func (c *Config) BulbInfo() (discovery.BulbInfo, error) {
	info := discovery.DefaultBulbInfo()

	id, err := parseBulbID(c.Discovery.ID)
	if err != nil {
		return info, err
	}
	info.ID = id

	if c.Discovery.Model != "" {
		info.Model = c.Discovery.Model
	}
	if c.Discovery.Name != "" {
		info.Name = c.Discovery.Name
	}
	if c.Discovery.FirmwareVersion > 0 {
		info.FirmwareVersion = c.Discovery.FirmwareVersion
	}
	info.Host = c.Discovery.Host
	if info.Host == "" && c.Gateway.Host != "" && c.Gateway.Host != "0.0.0.0" && c.Gateway.Host != "::" {
		info.Host = c.Gateway.Host
	}
	info.Port = server.DefaultPort

	return info, nil
}

// parseBulbID accepts decimal or 0x-prefixed hex. Empty means the default id.
func parseBulbID(s string) (uint64, error) {
	if s == "" {
		return discovery.DefaultBulbInfo().ID, nil
	}
	id, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("discovery.id %q is not a 64-bit number", s)
	}
	return id, nil
}
