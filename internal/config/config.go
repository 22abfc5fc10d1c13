// Package config provides configuration loading for the visonic-bridge daemon.
// Configuration is loaded in order: YAML file → .env file → ENV vars → CLI flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var loadEnvOnce sync.Once

// loadDotEnv loads .env file if it exists (does not override existing env vars).
// It is called once before loading configuration.
func loadDotEnv() {
	loadEnvOnce.Do(func() {
		dotEnvSearchPaths := []string{".env", "configs/.env"}
		for _, f := range dotEnvSearchPaths {
			if _, err := os.Stat(f); err == nil {
				// Load .env but don't override existing environment variables
				_ = godotenv.Load(f)
				return
			}
		}
	})
}

// mustBindEnv binds an environment variable to a config key, panicking on error.
// This is safe because viper.BindEnv only fails if the key is empty, which is a programming error.
func mustBindEnv(v *viper.Viper, key string, envVars ...string) {
	if err := v.BindEnv(append([]string{key}, envVars...)...); err != nil {
		panic(fmt.Sprintf("failed to bind env var for key %s: %v", key, err))
	}
}

// Config holds all configuration for the visonic-bridge daemon.
type Config struct {
	Panel    PanelConfig    `mapstructure:"panel"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	// Options are runtime option overrides, the counterpart of the
	// panel connection settings in Panel. Read through Option().
	Options map[string]any `mapstructure:"options"`
}

// PanelConfig holds Visonic Proxy connection settings.
type PanelConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	PinRequired bool   `mapstructure:"pin_required"`
}

// BridgeConfig holds entity synchronization behavior settings.
type BridgeConfig struct {
	// RestoreEntities re-registers previously known entities at startup,
	// before the first panel message arrives.
	RestoreEntities bool `mapstructure:"restore_entities"`
	// OptimisticSwitches flips switch state locally on command send rather
	// than waiting for the panel to confirm.
	OptimisticSwitches bool `mapstructure:"optimistic_switches"`
}

// DatabaseConfig holds the entity restore store settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// setDefaults registers default values on a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("panel.host", "homeassistant.local")
	v.SetDefault("panel.port", 8082)
	v.SetDefault("panel.pin_required", false)
	v.SetDefault("bridge.restore_entities", true)
	v.SetDefault("bridge.optimistic_switches", true)
	v.SetDefault("database.path", "data/bridge.db")
	v.SetDefault("logging.level", "INFO")
}

// bindEnvVars binds environment variable overrides on a viper instance.
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	mustBindEnv(v, "panel.host", "VB_PANEL_HOST")
	mustBindEnv(v, "panel.port", "VB_PANEL_PORT")
	mustBindEnv(v, "panel.pin_required", "VB_PIN_REQUIRED")
	mustBindEnv(v, "database.path", "VB_DB_PATH")
	mustBindEnv(v, "logging.level", "VB_LOG_LEVEL")
}

// load reads configuration into a struct using the given viper instance.
func load(v *viper.Viper, configFile string) (*Config, error) {
	loadDotEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	bindEnvVars(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from YAML file, environment variables, and CLI flags.
// Priority: CLI flags > ENV vars > .env file > YAML file > defaults.
// The configFile parameter is the path to the YAML config file (can be empty).
func Load(configFile string) (*Config, error) {
	return LoadWithViper(viper.New(), configFile)
}

// LoadWithViper loads configuration using a pre-configured viper instance.
// This allows CLI flags to be bound before loading.
func LoadWithViper(v *viper.Viper, configFile string) (*Config, error) {
	cfg, err := load(v, configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForDisplay loads configuration without validation, for display purposes.
// This allows showing the effective configuration even if required fields are missing.
func LoadForDisplay(configFile string) (*Config, error) {
	return load(viper.New(), configFile)
}

// Data returns a persisted panel connection setting by key.
// Definition keys reference these as ConfigData("host") etc.
func (c *Config) Data(key string) (any, bool) {
	switch key {
	case "host":
		return c.Panel.Host, true
	case "port":
		return c.Panel.Port, true
	case "pin_required":
		return c.Panel.PinRequired, true
	default:
		return nil, false
	}
}

// Option returns a runtime option override by key. Options shadow the
// corresponding Data values when set.
func (c *Config) Option(key string) (any, bool) {
	if c.Options == nil {
		return nil, false
	}
	val, ok := c.Options[key]
	return val, ok
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	if c.Panel.Host == "" {
		return fmt.Errorf("panel.host is required (set via VB_PANEL_HOST env var, --host flag, or config file)")
	}
	if c.Panel.Port <= 0 || c.Panel.Port > 65535 {
		return fmt.Errorf("panel.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
