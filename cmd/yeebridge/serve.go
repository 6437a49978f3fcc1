package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/yeebridge/internal/config"
	"github.com/muurk/yeebridge/internal/discovery"
	"github.com/muurk/yeebridge/internal/logging"
	"github.com/muurk/yeebridge/internal/server"
	"github.com/muurk/yeebridge/internal/transmitter"
)

// Serve command flags
var (
	serveHost        string
	serveDriver      string
	serveBus         int
	serveAddress     int
	serveAnalysisDir string
	serveSequential  bool
	serveNoDiscovery bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long: `Run the gateway on TCP port 55443.

Every well-formed request is acknowledged with {"id": <id>, "result": ["ok"]}
before the connection is closed. set_power "on"/"off" sends code a/b to the
transmitter and toggle alternates between c and d, starting with c.

Unless --no-discovery is given the gateway also answers Yeelight SSDP
searches on 239.255.255.250:1982 and registers _yeelight._tcp on mDNS.

To capture every session as JSON Lines for protocol analysis, use the
--analysis-dir flag.`,
	Example: `  # Run with the I2C transmitter at the default bus and address
  yeebridge serve

  # Run without RF hardware, logging codes instead
  yeebridge serve --driver log --log-level debug

  # Use I2C bus 0, slave address 0x12
  yeebridge serve --bus 0 --address 0x12

  # Capture sessions and handle one connection at a time
  yeebridge serve --analysis-dir ./captures --sequential`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().StringVar(&serveDriver, "driver", "", "Transmitter driver (i2c, log)")
	serveCmd.Flags().IntVar(&serveBus, "bus", transmitter.DefaultBus, "I2C bus number (/dev/i2c-N)")
	serveCmd.Flags().IntVar(&serveAddress, "address", transmitter.DefaultAddress, "I2C slave address of the transmitter")
	serveCmd.Flags().StringVar(&serveAnalysisDir, "analysis-dir", "", "Directory to write JSONL session captures (disabled if not specified)")
	serveCmd.Flags().BoolVar(&serveSequential, "sequential", false, "Handle connections one at a time")
	serveCmd.Flags().BoolVar(&serveNoDiscovery, "no-discovery", false, "Disable SSDP and mDNS advertisement")

	rootCmd.AddCommand(serveCmd)
}

// applyServeFlags overrides config values with flags the user set explicitly
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Gateway.Host = serveHost
	}
	if flags.Changed("driver") {
		cfg.Transmitter.Driver = serveDriver
	}
	if flags.Changed("bus") {
		cfg.Transmitter.Bus = serveBus
	}
	if flags.Changed("address") {
		cfg.Transmitter.Address = serveAddress
	}
	if flags.Changed("analysis-dir") {
		cfg.Gateway.AnalysisDir = serveAnalysisDir
	}
	if flags.Changed("sequential") {
		cfg.Gateway.Sequential = serveSequential
	}
	if serveNoDiscovery {
		cfg.Discovery.SSDP = false
		cfg.Discovery.MDNS = false
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := initLogging(cfg, "info"); err != nil {
		return err
	}
	defer logging.Sync()

	logging.Info("Configuration loaded",
		zap.String("path", path),
		zap.String("driver", cfg.Transmitter.Driver),
		zap.Int("bus", cfg.Transmitter.Bus),
		zap.String("address", fmt.Sprintf("0x%02x", cfg.Transmitter.Address)),
	)

	sender, err := transmitter.Open(cfg.TransmitterConfig())
	if err != nil {
		return fmt.Errorf("failed to open transmitter: %w", err)
	}
	defer func() {
		if err := sender.Close(); err != nil {
			logging.Warn("Error closing transmitter", zap.Error(err))
		}
	}()

	srv, err := server.New(cfg.ServerConfig(), sender)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	stopDiscovery, err := startDiscovery(cfg)
	if err != nil {
		return err
	}
	defer stopDiscovery()

	return srv.Start()
}

// startDiscovery launches the SSDP responder and mDNS advertisement as
// configured and returns a function that stops both. Failures are logged
// and do not prevent the gateway from serving direct connections.
func startDiscovery(cfg *config.Config) (func(), error) {
	if !cfg.Discovery.SSDP && !cfg.Discovery.MDNS {
		return func() {}, nil
	}

	info, err := cfg.BulbInfo()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	if cfg.Discovery.SSDP {
		responder := discovery.NewResponder(info)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := responder.ListenAndServe(ctx); err != nil {
				logging.Warn("SSDP responder stopped", zap.Error(err))
			}
		}()
	}

	var adv *discovery.Advertisement
	if cfg.Discovery.MDNS {
		adv, err = discovery.Advertise(info)
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			logging.Info("Advertising on mDNS",
				zap.String("service", discovery.ServiceType),
				zap.String("id", info.IDString()),
			)
		}
	}

	return func() {
		cancel()
		adv.Shutdown()
		wg.Wait()
	}, nil
}
