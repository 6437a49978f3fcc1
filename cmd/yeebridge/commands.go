package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/yeebridge/internal/bulbclient"
	"github.com/muurk/yeebridge/internal/config"
	"github.com/muurk/yeebridge/internal/discovery"
	"github.com/muurk/yeebridge/internal/dispatch"
	"github.com/muurk/yeebridge/internal/transmitter"
	"github.com/muurk/yeebridge/internal/ui"
)

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(configCmd)
}

// sendCmd writes one code to the transmitter without running the gateway
var (
	sendDriver  string
	sendBus     int
	sendAddress int
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <code|name>",
	Short: "Send one code to the transmitter",
	Long: `Send a single code through the configured transmitter, bypassing the
network side. Useful for checking the RF wiring.

Codes: a (power-on), b (power-off), c (toggle-a), d (toggle-b).`,
	Example: `  yeebridge send a
  yeebridge send power-off
  yeebridge send toggle-a --driver log`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendDriver, "driver", "", "Transmitter driver (i2c, log)")
	sendCmd.Flags().IntVar(&sendBus, "bus", transmitter.DefaultBus, "I2C bus number (/dev/i2c-N)")
	sendCmd.Flags().IntVar(&sendAddress, "address", transmitter.DefaultAddress, "I2C slave address of the transmitter")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 5*time.Second, "Time allowed for the transmitter")
}

func runSend(cmd *cobra.Command, args []string) error {
	code, err := dispatch.ParseCode(args[0])
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Transmitter.Driver = sendDriver
	}
	if flags.Changed("bus") {
		cfg.Transmitter.Bus = sendBus
	}
	if flags.Changed("address") {
		cfg.Transmitter.Address = sendAddress
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := initLogging(cfg, ""); err != nil {
		return err
	}

	txCfg := cfg.TransmitterConfig()
	fmt.Println(ui.NewHeader("Send", "yeebridge send "+args[0],
		ui.Detail{Key: "Code", Value: code.String()},
		ui.Detail{Key: "Driver", Value: txCfg.Driver},
		ui.Detail{Key: "Device", Value: fmt.Sprintf("/dev/i2c-%d@0x%02x", txCfg.Bus, txCfg.Address)},
	))

	sender, err := transmitter.Open(txCfg)
	if err != nil {
		fmt.Println(ui.NewFailureResult("Transmitter unavailable", err,
			"Check that the i2c-dev module is loaded",
			"Check the bus number with 'i2cdetect -l'",
			"Use --driver log to run without hardware",
		))
		return err
	}
	defer sender.Close()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	start := time.Now()
	if err := sender.Send(ctx, byte(code)); err != nil {
		fmt.Println(ui.NewFailureResult("Delivery failed", err,
			"Verify the transmitter address with 'i2cdetect -y <bus>'",
			"Check the transmitter power and wiring",
		))
		return err
	}

	fmt.Println(ui.NewSuccessResult("Code delivered",
		ui.Detail{Key: "Code", Value: code.String()},
		ui.Detail{Key: "Took", Value: time.Since(start).Round(time.Microsecond).String()},
	))
	return nil
}

// probeCmd acts as a Yeelight client
var (
	probePort    int
	probeTimeout time.Duration
	probeRaw     bool
)

var probeCmd = &cobra.Command{
	Use:   "probe <host> <method> [params...]",
	Short: "Send one request to a bulb or gateway and print the reply",
	Long: `Act as a Yeelight client: connect to <host>:55443, send one request and
print the reply.

Each param is parsed as JSON when possible ("300" becomes a number, "on"
stays a string). With --raw the second argument is sent verbatim instead,
which is useful for checking how malformed requests are handled.`,
	Example: `  yeebridge probe 192.168.1.20 toggle
  yeebridge probe 192.168.1.20 set_power on smooth 300
  yeebridge probe 127.0.0.1 --raw '{"id": 7, "method": "toggle"}'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().IntVar(&probePort, "port", bulbclient.DefaultPort, "Bulb port")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", bulbclient.DefaultTimeout, "Time allowed for the reply")
	probeCmd.Flags().BoolVar(&probeRaw, "raw", false, "Send the second argument verbatim")
}

// parseParams turns command line words into request params
func parseParams(words []string) []any {
	params := make([]any, 0, len(words))
	for _, w := range words {
		var v any
		if err := json.Unmarshal([]byte(w), &v); err == nil {
			params = append(params, v)
			continue
		}
		params = append(params, w)
	}
	return params
}

func runProbe(cmd *cobra.Command, args []string) error {
	host := args[0]

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, ""); err != nil {
		return err
	}

	client := bulbclient.NewClient(host, probePort)
	client.SetTimeout(probeTimeout)

	fmt.Println(ui.NewHeader("Probe", "yeebridge "+strings.Join(os.Args[1:], " "),
		ui.Detail{Key: "Bulb", Value: client.Addr},
	))

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout*time.Duration(client.MaxRetries+2))
	defer cancel()

	var reply *bulbclient.Reply
	if probeRaw {
		payload := strings.Join(args[1:], " ")
		if !strings.HasSuffix(payload, "\r\n") {
			payload += "\r\n"
		}
		reply, err = client.Send(ctx, []byte(payload))
	} else {
		reply, err = client.Call(ctx, args[1], parseParams(args[2:])...)
	}

	if err != nil {
		fmt.Println(ui.NewFailureResult("No acknowledgement", err, bulbclient.TroubleshootingHints(err)...))
		return err
	}

	if reply.OK() {
		fmt.Println(ui.NewSuccessResult("Acknowledged", ui.Detail{Key: "Reply", Value: string(reply.Raw)}))
		return nil
	}

	fmt.Println(ui.NewWarningResult("Unexpected reply", ui.Detail{Key: "Reply", Value: string(reply.Raw)}))
	return nil
}

// discoverCmd browses mDNS for bulbs
var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find bulbs and gateways on the local network",
	Long: `Browse mDNS for _yeelight._tcp services and list everything that
answers, including other yeebridge gateways.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for answers")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, ""); err != nil {
		return err
	}

	fmt.Println(ui.NewHeader("Discover", "yeebridge discover",
		ui.Detail{Key: "Service", Value: discovery.ServiceType},
		ui.Detail{Key: "Timeout", Value: discoverTimeout.String()},
	))

	gateways, err := discovery.ScanForGateways(discoverTimeout)
	if err != nil {
		fmt.Println(ui.NewFailureResult("Discovery failed", err,
			"mDNS needs multicast on the active network interface",
			"Allow UDP 5353 through the firewall",
		))
		return err
	}

	if len(gateways) == 0 {
		fmt.Println(ui.NewWarningResult("No bulbs found",
			ui.Detail{Key: "Timeout", Value: discoverTimeout.String()},
		))
		return nil
	}

	table := ui.NewTable("NAME", "ID", "MODEL", "ADDRESS")
	for _, gw := range gateways {
		table.AddRow(gw.Name, gw.ID, gw.Model, gw.Address())
	}
	fmt.Println(table)
	return nil
}

// configCmd manages the config file
var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}

		fmt.Println(ui.NewSuccessResult("Configuration written", ui.Detail{Key: "Path", Value: path}))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := cfg.Marshal()
		if err != nil {
			return err
		}

		fmt.Printf("# %s\n%s", path, data)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
