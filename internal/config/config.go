// Package config loads and persists tzoffline build-tool settings as a
// YAML file under the user's XDG-aware config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings a tzoffline invocation needs when flags are
// not given explicitly on the command line.
type Config struct {
	CountryZonesPath string `mapstructure:"countryzones_path" json:"countryzones_path"`
	ZoneTabPath      string `mapstructure:"zone_tab_path" json:"zone_tab_path"`
	BackwardPath     string `mapstructure:"backward_path" json:"backward_path"`
	OutputPath       string `mapstructure:"output_path" json:"output_path"`
	IanaVersion      string `mapstructure:"iana_version" json:"iana_version"`
	LogVerbosity     string `mapstructure:"log_verbosity" json:"log_verbosity"`
}

var defaultConfig = Config{
	CountryZonesPath: "countryzones.json",
	ZoneTabPath:      "zone.tab",
	BackwardPath:     "backward",
	OutputPath:       "timezones.xml",
	IanaVersion:      "",
	LogVerbosity:     "info",
}

// Load reads ~/.config/tzoffline/config.yaml (or OS-specific dir), with
// a fallback to the current directory, overlaying onto defaults.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetDefault("countryzones_path", defaultConfig.CountryZonesPath)
	viper.SetDefault("zone_tab_path", defaultConfig.ZoneTabPath)
	viper.SetDefault("backward_path", defaultConfig.BackwardPath)
	viper.SetDefault("output_path", defaultConfig.OutputPath)
	viper.SetDefault("iana_version", defaultConfig.IanaVersion)
	viper.SetDefault("log_verbosity", defaultConfig.LogVerbosity)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Set sets a configuration value and persists it to disk.
func (c *Config) Set(key, value string) error {
	viper.Set(key, value)

	switch key {
	case "countryzones_path":
		c.CountryZonesPath = value
	case "zone_tab_path":
		c.ZoneTabPath = value
	case "backward_path":
		c.BackwardPath = value
	case "output_path":
		c.OutputPath = value
	case "iana_version":
		c.IanaVersion = value
	case "log_verbosity":
		c.LogVerbosity = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	return c.Save()
}

// Get returns a configuration value by key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "countryzones_path":
		return c.CountryZonesPath, nil
	case "zone_tab_path":
		return c.ZoneTabPath, nil
	case "backward_path":
		return c.BackwardPath, nil
	case "output_path":
		return c.OutputPath, nil
	case "iana_version":
		return c.IanaVersion, nil
	case "log_verbosity":
		return c.LogVerbosity, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// List prints all configuration values to stdout.
func (c *Config) List() error {
	fmt.Printf("countryzones_path: %s\n", c.CountryZonesPath)
	fmt.Printf("zone_tab_path: %s\n", c.ZoneTabPath)
	fmt.Printf("backward_path: %s\n", c.BackwardPath)
	fmt.Printf("output_path: %s\n", c.OutputPath)
	fmt.Printf("iana_version: %s\n", c.IanaVersion)
	fmt.Printf("log_verbosity: %s\n", c.LogVerbosity)
	return nil
}

// Save persists the current in-memory configuration to disk.
func (c *Config) Save() error {
	configDir, err := getConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return err
	}
	configFile := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configFile)
}

// getConfigDir returns the platform-appropriate config directory:
//   - Linux/macOS: $XDG_CONFIG_HOME/tzoffline or ~/.config/tzoffline
//   - Windows: %AppData%\tzoffline
//
// Falls back to ~/.tzoffline if UserConfigDir is unavailable.
func getConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tzoffline"), nil
	}

	if base, err := os.UserConfigDir(); err == nil && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "tzoffline"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tzoffline"), nil
}

// ConfigDir returns the directory used to store tzoffline configuration files.
func ConfigDir() (string, error) {
	return getConfigDir()
}
