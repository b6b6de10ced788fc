// Package config loads client settings from defaults, a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/and161185/terrarium/internal/screen"
)

// EnvPrefix prefixes every environment override, e.g. TERRARIUM_BASE_URL.
const EnvPrefix = "TERRARIUM"

// Config holds client settings.
type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	StateDir          string        `mapstructure:"state_dir"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ShowNetworkErrors bool          `mapstructure:"show_network_errors"`
	PlantTypesFile    string        `mapstructure:"plant_types_file"`
	AddNavDelay       time.Duration `mapstructure:"add_nav_delay"`
	UpdateNavDelay    time.Duration `mapstructure:"update_nav_delay"`
	Passphrase        string        `mapstructure:"passphrase"`
}

// Dir is the per-user configuration directory.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "terrarium")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "terrarium")
}

// Load reads configuration. path selects the config file; when empty,
// TERRARIUM_CONFIG is used, then config.toml in Dir(). A missing default file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("base_url", "http://localhost:8080/")
	v.SetDefault("state_dir", Dir())
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("show_network_errors", false)
	v.SetDefault("plant_types_file", "")
	v.SetDefault("add_nav_delay", screen.DefaultAddDelay)
	v.SetDefault("update_nav_delay", screen.DefaultUpdateDelay)
	v.SetDefault("passphrase", "")

	v.SetConfigType("toml")
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return errors.New("config: base_url is empty")
	case c.StateDir == "":
		return errors.New("config: state_dir is empty")
	case c.Timeout < 0:
		return errors.New("config: timeout is negative")
	case c.AddNavDelay < 0 || c.UpdateNavDelay < 0:
		return errors.New("config: navigation delays must not be negative")
	}
	return nil
}

// ScreenOptions maps the settings onto screen options.
func (c Config) ScreenOptions() []screen.Option {
	return []screen.Option{
		screen.WithNetworkErrors(c.ShowNetworkErrors),
		screen.WithDelays(c.AddNavDelay, c.UpdateNavDelay),
	}
}
