// Package config loads scripthost settings using Viper.
//
// Sources, highest precedence first: command-line flags, SCRIPTHOST_*
// environment variables, an optional config file (scripthost.yaml, .toml or
// .json in the search directory, or an explicit path), and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "scripthost"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "scripthost"
	// EnvPrefix prefixes environment variable overrides.
	EnvPrefix = "SCRIPTHOST"
	// PreludeNone disables the language prelude.
	PreludeNone = "none"
)

// Config holds every setting the CLI and the worker pool consume.
type Config struct {
	Workers       int    `mapstructure:"workers"`
	CacheCapacity int    `mapstructure:"cache_capacity"`
	WorkDir       string `mapstructure:"work_dir"`

	// Prelude is a path to a script run in every environment instead of the
	// built-in prelude. PreludeNone disables it; empty keeps the built-in.
	Prelude string `mapstructure:"prelude"`

	LogLevel string        `mapstructure:"log_level"`
	Listen   string        `mapstructure:"listen"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Workers:       runtime.NumCPU(),
		CacheCapacity: 1,
		LogLevel:      "info",
		Listen:        ":8080",
		Timeout:       30 * time.Second,
	}
}

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// SearchDir is where scripthost.{yaml,toml,json} is looked up. Defaults to ".".
	SearchDir string
	// Flags are bound over every other source; only flags the user changed win.
	Flags *pflag.FlagSet
	// Fs is the filesystem config files are read from. Defaults to the OS.
	Fs afero.Fs
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"workers":        "workers",
	"cache-capacity": "cache_capacity",
	"workdir":        "work_dir",
	"prelude":        "prelude",
	"log-level":      "log_level",
	"listen":         "listen",
	"timeout":        "timeout",
}

// Load resolves the configuration from all sources and validates it.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	if opts.Fs != nil {
		v.SetFs(opts.Fs)
	}

	defaults := DefaultConfig()
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("cache_capacity", defaults.CacheCapacity)
	v.SetDefault("work_dir", defaults.WorkDir)
	v.SetDefault("prelude", defaults.Prelude)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("timeout", defaults.Timeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	source, err := readConfigFile(v, opts)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", opts.ConfigFilePath, err)
		}
		return v.ConfigFileUsed(), nil
	}

	dir := opts.SearchDir
	if dir == "" {
		dir = "."
	}
	v.SetConfigName(ConfigFileName)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Validate reports the first setting outside its allowed range.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers %d: must be at least 1", c.Workers)
	}
	if c.CacheCapacity < 1 {
		return fmt.Errorf("invalid cache_capacity %d: must be at least 1", c.CacheCapacity)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s: must not be negative", c.Timeout)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
