// Package config loads ecutool configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ErrNoHome is returned when no config or data location can be resolved
// from the operating system.
var ErrNoHome = errors.New("no valid home directory path could be retrieved from the operating system")

// Config holds application configuration.
type Config struct {
	ConfigDir string
	DataDir   string
	Adapter   AdapterConfig
	Log       LogConfig
}

// AdapterConfig holds default CAN adapter settings used when opening links.
type AdapterConfig struct {
	Port     string
	Baudrate int
	CANRate  float64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from config.yaml in the config dir and from the
// environment. Env var overrides use prefix ECUTOOL_, e.g. ECUTOOL_DATA_DIR.
func Load() (Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrNoHome, err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrNoHome, err)
	}

	v := viper.New()
	v.SetDefault("config_dir", filepath.Join(configDir, "ecutool"))
	v.SetDefault("data_dir", filepath.Join(home, ".local", "share", "ecutool"))
	v.SetDefault("adapter.port", "")
	v.SetDefault("adapter.baudrate", 115200)
	v.SetDefault("adapter.can_rate", 500)
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(configDir, "ecutool"))

	v.SetEnvPrefix("ECUTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		ConfigDir: v.GetString("config_dir"),
		DataDir:   v.GetString("data_dir"),
		Adapter: AdapterConfig{
			Port:     v.GetString("adapter.port"),
			Baudrate: v.GetInt("adapter.baudrate"),
			CANRate:  v.GetFloat64("adapter.can_rate"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}
	return cfg, nil
}
