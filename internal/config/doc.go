// Package config provides configuration management for the yeebridge gateway.
//
// The configuration is a YAML file with four sections: gateway (listener
// timeouts, payload limit, concurrency mode, capture directory), transmitter
// (driver, I2C bus and address, rate limit), discovery (SSDP/mDNS switches
// and the advertised bulb identity) and logging. Fields missing from the file
// keep their defaults. The bulb control port is not configurable.
//
// # Configuration File Location
//
// The default file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/yeebridge/config.yaml or $HOME/.config/yeebridge/config.yaml
//   - macOS: $HOME/.config/yeebridge/config.yaml
//   - Windows: %LOCALAPPDATA%\yeebridge\config.yaml
//
// # Usage Example
//
//	cfg, path, err := config.LoadDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg.Transmitter.Driver = "log"
//	if err := cfg.Save(path); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Save is protected by a mutex and writes atomically via a temporary file.
package config
