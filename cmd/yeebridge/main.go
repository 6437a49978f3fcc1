// Yeebridge is a gateway that emulates a Yeelight bulb on the LAN and forwards
// power commands to an RF transmitter.
//
// Yeelight clients (the app, home automation hubs, voice assistants) connect
// to TCP port 55443 and send one JSON request per connection. The gateway
// acknowledges every well-formed request and maps set_power on/off and toggle
// to single-character codes written to an I2C-attached transmitter.
//
// Usage:
//
//	yeebridge serve [flags]
//
// See 'yeebridge --help' for the other commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/yeebridge/internal/config"
	"github.com/muurk/yeebridge/internal/logging"
	"github.com/muurk/yeebridge/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "yeebridge",
	Short: "Yeelight bulb emulator and RF gateway",
	Long: `A gateway that presents itself to Yeelight clients as a bulb and relays
power commands to an RF transmitter on the I2C bus.

Requests arrive on TCP port 55443, one JSON request per connection. Every
well-formed request is acknowledged; set_power and toggle are translated
into transmitter codes, everything else is acknowledged and logged.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json); auto-detected when empty")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yeebridge %s (commit: %s, %s)\n", version.Version, version.Commit, version.Platform())
	},
}

// loadConfig reads --config when given, otherwise the default location
func loadConfig() (*config.Config, string, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		return cfg, configPath, err
	}
	return config.LoadDefault()
}

// initLogging applies the log level precedence: --log-level, then
// YEEBRIDGE_LOG_LEVEL, then the config file, then fallback.
func initLogging(cfg *config.Config, fallback string) error {
	level := logLevel
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		level = cfg.Logging.Level
		if level == "" {
			level = fallback
		}
	}

	format := logFormat
	if format == "" {
		format = cfg.Logging.Format
	}

	if err := logging.Initialize(level, format); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}
