package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/yeebridge/internal/server"
	"github.com/muurk/yeebridge/internal/transmitter"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "yeebridge") {
		t.Errorf("GetConfigDir() = %v, should contain 'yeebridge'", configDir)
	}

	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		configDir, err = GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() error = %v", err)
		}
		if configDir != filepath.Join("/tmp/xdg", "yeebridge") {
			t.Errorf("GetConfigDir() with XDG_CONFIG_HOME = %v, want /tmp/xdg/yeebridge", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %v, want %v", cfg.Version, CurrentVersion)
	}
	if cfg.Transmitter.Driver != transmitter.DriverI2C {
		t.Errorf("Transmitter.Driver = %q, want %q", cfg.Transmitter.Driver, transmitter.DriverI2C)
	}
	if cfg.Transmitter.Address != 0x0a {
		t.Errorf("Transmitter.Address = %#x, want 0x0a", cfg.Transmitter.Address)
	}
	if !cfg.Discovery.SSDP || !cfg.Discovery.MDNS {
		t.Error("discovery should be enabled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad version", func(c *Config) { c.Version = 2 }, "unsupported config version"},
		{"negative timeout", func(c *Config) { c.Gateway.ReadTimeout = -time.Second }, "timeouts"},
		{"negative payload", func(c *Config) { c.Gateway.MaxPayload = -1 }, "max_payload"},
		{"unknown driver", func(c *Config) { c.Transmitter.Driver = "spi" }, "transmitter.driver"},
		{"address zero", func(c *Config) { c.Transmitter.Address = 0 }, "7-bit"},
		{"address too large", func(c *Config) { c.Transmitter.Address = 0x80 }, "7-bit"},
		{"negative bus", func(c *Config) { c.Transmitter.Bus = -1 }, "transmitter.bus"},
		{"negative rate", func(c *Config) { c.Transmitter.Rate = -1 }, "rate"},
		{"bad id", func(c *Config) { c.Discovery.ID = "bulb" }, "discovery.id"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Gateway.Host = "127.0.0.1"
	cfg.Gateway.ReadTimeout = 3 * time.Second
	cfg.Gateway.Sequential = true
	cfg.Transmitter.Driver = transmitter.DriverLog
	cfg.Transmitter.Address = 0x12
	cfg.Discovery.ID = "0x15243f"
	cfg.Discovery.Name = "porch"
	cfg.Logging.Level = "debug"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after Save()")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# yeebridge configuration file") {
		t.Error("saved file is missing the header comment")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Gateway.Host != "127.0.0.1" {
		t.Errorf("Gateway.Host = %q, want 127.0.0.1", loaded.Gateway.Host)
	}
	if loaded.Gateway.ReadTimeout != 3*time.Second {
		t.Errorf("Gateway.ReadTimeout = %v, want 3s", loaded.Gateway.ReadTimeout)
	}
	if !loaded.Gateway.Sequential {
		t.Error("Gateway.Sequential = false, want true")
	}
	if loaded.Transmitter.Driver != transmitter.DriverLog || loaded.Transmitter.Address != 0x12 {
		t.Errorf("Transmitter = %+v", loaded.Transmitter)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", loaded.Logging.Level)
	}

	info, err := loaded.BulbInfo()
	if err != nil {
		t.Fatalf("BulbInfo() error = %v", err)
	}
	if info.ID != 0x15243f || info.Name != "porch" {
		t.Errorf("BulbInfo() = %+v", info)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\ntransmitter:\n  driver: log\n  address: 0x0b\ngateway:\n  read_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transmitter.Address != 0x0b {
		t.Errorf("Transmitter.Address = %#x, want 0x0b", cfg.Transmitter.Address)
	}
	if cfg.Transmitter.Bus != transmitter.DefaultBus {
		t.Errorf("Transmitter.Bus = %d, want default %d", cfg.Transmitter.Bus, transmitter.DefaultBus)
	}
	if cfg.Gateway.ReadTimeout != 2*time.Second {
		t.Errorf("Gateway.ReadTimeout = %v, want 2s", cfg.Gateway.ReadTimeout)
	}
	if cfg.Gateway.WriteTimeout != server.DefaultWriteTimeout {
		t.Errorf("Gateway.WriteTimeout = %v, want default", cfg.Gateway.WriteTimeout)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}

	badYAML := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("version: [1"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(badYAML); err == nil {
		t.Error("Load(bad yaml) error = nil, want error")
	}

	badVersion := filepath.Join(dir, "v2.yaml")
	if err := os.WriteFile(badVersion, []byte("version: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(badVersion); err == nil {
		t.Error("Load(version 2) error = nil, want error")
	}
}

func TestLoadDefault_MissingFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on XDG_CONFIG_HOME")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, path, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	if path != filepath.Join(dir, "yeebridge", "config.yaml") {
		t.Errorf("LoadDefault() path = %q", path)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("LoadDefault() Version = %d, want %d", cfg.Version, CurrentVersion)
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Host = "0.0.0.0"
	cfg.Gateway.AnalysisDir = "/var/lib/yeebridge"
	cfg.Transmitter.Rate = 0

	sc := cfg.ServerConfig()
	if sc.Port != server.DefaultPort {
		t.Errorf("ServerConfig().Port = %d, want %d", sc.Port, server.DefaultPort)
	}
	if sc.Host != "0.0.0.0" || sc.AnalysisDir != "/var/lib/yeebridge" {
		t.Errorf("ServerConfig() = %+v", sc)
	}

	tc := cfg.TransmitterConfig()
	if tc.Address != transmitter.DefaultAddress || tc.Rate != 0 {
		t.Errorf("TransmitterConfig() = %+v", tc)
	}

	info, err := cfg.BulbInfo()
	if err != nil {
		t.Fatalf("BulbInfo() error = %v", err)
	}
	if info.Port != server.DefaultPort || info.IDString() != "0x0000000000b1d9e0" {
		t.Errorf("BulbInfo() = %+v", info)
	}
}
