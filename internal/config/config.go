// Package config loads the YAML configuration of the IDE server.
package config

import (
	"fmt"

	"marker-ide/internal/lockfile"
	"marker-ide/internal/portalloc"

	uberconfig "go.uber.org/config"
)

const (
	_configKeyIDE = "ide"
	_configKeyLog = "log"
)

// Config is the full server configuration.
type Config struct {
	IDE IDE `yaml:"ide"`
	Log Log `yaml:"log"`
}

// IDE controls the control-plane session.
type IDE struct {
	Name      string `yaml:"name"`
	LockDir   string `yaml:"lockDir"`
	PortMin   int    `yaml:"portMin"`
	PortMax   int    `yaml:"portMax"`
	ScanLimit int    `yaml:"scanLimit"`
}

// Log controls the zap logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		IDE: IDE{
			Name:      "Marker",
			PortMin:   portalloc.DefaultMin,
			PortMax:   portalloc.DefaultMax,
			ScanLimit: portalloc.DefaultScanLimit,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// NewProvider layers the YAML file at path, if any, over the defaults.
func NewProvider(path string) (uberconfig.Provider, error) {
	opts := []uberconfig.YAMLOption{uberconfig.Static(Default())}
	if path != "" {
		opts = append(opts, uberconfig.File(path))
	}

	provider, err := uberconfig.NewYAML(opts...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return provider, nil
}

// Load reads the configuration at path (may be empty) and fills in derived
// defaults such as the lock directory.
func Load(path string) (Config, error) {
	provider, err := NewProvider(path)
	if err != nil {
		return Config{}, err
	}
	return FromProvider(provider)
}

// FromProvider populates a Config from an existing provider.
func FromProvider(provider uberconfig.Provider) (Config, error) {
	cfg := Default()

	if err := provider.Get(_configKeyIDE).Populate(&cfg.IDE); err != nil {
		return Config{}, fmt.Errorf("getting config field %q: %w", _configKeyIDE, err)
	}
	if err := provider.Get(_configKeyLog).Populate(&cfg.Log); err != nil {
		return Config{}, fmt.Errorf("getting config field %q: %w", _configKeyLog, err)
	}

	if cfg.IDE.LockDir == "" {
		dir, err := lockfile.DefaultDir()
		if err != nil {
			return Config{}, err
		}
		cfg.IDE.LockDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail at session start.
func (c Config) Validate() error {
	if c.IDE.Name == "" {
		return fmt.Errorf("missing field %q in config", "ide.name")
	}
	if c.IDE.PortMin < 1 || c.IDE.PortMax > 65535 || c.IDE.PortMin > c.IDE.PortMax {
		return fmt.Errorf("invalid port range [%d, %d]", c.IDE.PortMin, c.IDE.PortMax)
	}
	if c.IDE.ScanLimit < 0 {
		return fmt.Errorf("scanLimit must not be negative: %d", c.IDE.ScanLimit)
	}
	return nil
}
