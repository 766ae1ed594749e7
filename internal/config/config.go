package config

import (
	"os"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the companion core. Every
// field has a sensible default; a config file only overrides what it
// names.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
}

type DeviceConfig struct {
	// Mock replaces the BLE adapter with the simulated device.
	Mock bool `yaml:"mock" default:"false"`
	// ScanTimeoutSeconds bounds the pairing scan.
	ScanTimeoutSeconds int `yaml:"scan_timeout_seconds" default:"30"`
}

type BackendConfig struct {
	// URL of the session backend. Empty means record locally.
	URL string `yaml:"url" default:""`
}

type StorageConfig struct {
	Path string `yaml:"path" default:"somatra.db"`
}

type APIConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

type LogConfig struct {
	Level string `yaml:"level" default:"info"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := new(Config)
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
