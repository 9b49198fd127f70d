// Package config loads the YAML configuration shared by this module's
// CLI tools.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level CLI configuration.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Pairing   PairingConfig   `yaml:"pairing"`
	Log       LogConfig       `yaml:"log"`
}

// TransportConfig selects and configures the Port implementation.
type TransportConfig struct {
	// Kind is "spi" or "serial".
	Kind string `yaml:"kind"`

	SPI    SPIConfig    `yaml:"spi,omitempty"`
	Serial SerialConfig `yaml:"serial,omitempty"`

	// TimeoutMS is the configured port timeout in milliseconds (default
	// 200). OpenPort does not apply it, and the CLI tools build their
	// Handle with the driver's built-in default timeout.
	TimeoutMS int `yaml:"timeout_ms"`
}

// SPIConfig configures the periph.io-backed SPI transport.
type SPIConfig struct {
	BusName    string `yaml:"bus_name"`
	SpeedHz    int64  `yaml:"speed_hz"`
	CsnPin     string `yaml:"csn_pin"`
	ReadyPin   string `yaml:"ready_pin,omitempty"`
}

// SerialConfig configures the tarm/serial-backed USB/TCP bridge
// transport.
type SerialConfig struct {
	Device string `yaml:"device"`
}

// PairingConfig names the pairing-key slot and key file used by
// session_start.
type PairingConfig struct {
	Slot        int    `yaml:"slot"`
	PrivKeyFile string `yaml:"priv_key_file"`
	PubKeyFile  string `yaml:"pub_key_file"`
}

// LogConfig holds the configured slog format and level. The CLI tools do
// not read it; they select the handler and level from their -log-format
// and -v flags.
type LogConfig struct {
	// Format is "text" or "json".
	Format string `yaml:"format"`
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`
}

// Load reads and validates a YAML config file, rejecting unknown fields
// so a typo fails fast instead of silently defaulting.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Transport.TimeoutMS == 0 {
		c.Transport.TimeoutMS = 200
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the selected transport has its required fields
// and that the pairing slot is in range.
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case "spi":
		if strings.TrimSpace(c.Transport.SPI.CsnPin) == "" {
			return fmt.Errorf("config.transport.spi.csn_pin is required")
		}
	case "serial":
		if strings.TrimSpace(c.Transport.Serial.Device) == "" {
			return fmt.Errorf("config.transport.serial.device is required")
		}
	default:
		return fmt.Errorf("config.transport.kind must be %q or %q, got %q", "spi", "serial", c.Transport.Kind)
	}

	if c.Pairing.Slot < 0 || c.Pairing.Slot > 3 {
		return fmt.Errorf("config.pairing.slot must be in 0..3, got %d", c.Pairing.Slot)
	}
	// priv_key_file is optional at load time: tropicpair is the tool that
	// creates it, so only a configured path is checked for readability.
	if strings.TrimSpace(c.Pairing.PrivKeyFile) != "" {
		if err := validateReadableFile(c.Pairing.PrivKeyFile, "config.pairing.priv_key_file"); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	c.Pairing.PrivKeyFile = resolvePath(configDir, c.Pairing.PrivKeyFile)
	c.Pairing.PubKeyFile = resolvePath(configDir, c.Pairing.PubKeyFile)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path string, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}
