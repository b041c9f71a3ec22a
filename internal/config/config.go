// Package config loads moinexport settings from defaults, a config file,
// MOINEXPORT_* environment variables and command-line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "MOINEXPORT"
	configName = "moinexport"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
	StoreHTTP   = "http"
)

// Config holds the resolved settings.
type Config struct {
	Store         string `mapstructure:"store"`
	DB            string `mapstructure:"db"`
	EtherpadURL   string `mapstructure:"etherpad_url"`
	Fixture       string `mapstructure:"fixture"`
	Listen        string `mapstructure:"listen"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	Banner        bool   `mapstructure:"banner"`
	HeadingMarker bool   `mapstructure:"heading_marker"`
	CodeMarker    bool   `mapstructure:"code_marker"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store", StoreBolt)
	v.SetDefault("db", "~/.local/share/moinexport/pads.db")
	v.SetDefault("etherpad_url", "")
	v.SetDefault("fixture", "")
	v.SetDefault("listen", ":9001")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")
	v.SetDefault("banner", true)
	v.SetDefault("heading_marker", true)
	v.SetDefault("code_marker", false)
}

// Load resolves the configuration. An explicit cfgFile must exist; without
// one the usual locations are searched and a missing file is not an error.
// Flags whose names match a key with '-' in place of '_' override it.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(expandTilde(cfgFile))
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isKey(key) || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("config: bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.DB = expandTilde(cfg.DB)
	cfg.Fixture = expandTilde(cfg.Fixture)
	return cfg, cfg.Validate()
}

func isKey(key string) bool {
	switch key {
	case "store", "db", "etherpad_url", "fixture", "listen", "log_level", "log_format",
		"banner", "heading_marker", "code_marker":
		return true
	}
	return false
}

// Validate checks that the selected store has what it needs.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
		if c.Fixture == "" {
			return fmt.Errorf("config: store %q needs a fixture file", c.Store)
		}
	case StoreBolt, StoreSQLite:
		if c.DB == "" {
			return fmt.Errorf("config: store %q needs a db path", c.Store)
		}
	case StoreHTTP:
		if c.EtherpadURL == "" {
			return fmt.Errorf("config: store %q needs etherpad_url", c.Store)
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	return nil
}

// expandTilde expands a leading ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
