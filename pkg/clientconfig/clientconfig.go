// Package clientconfig loads the mount client's configuration: the
// server's base URL, the local mount point, and the cached bearer token
// from a prior login.
package clientconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the client daemon's configuration.
type Config struct {
	ServerURL  string `mapstructure:"server_url" yaml:"server_url"`
	MountPoint string `mapstructure:"mount_point" yaml:"mount_point"`
	Username   string `mapstructure:"username" yaml:"username"`

	// Token caches the bearer token from the last successful login so
	// `remotefs-mount` doesn't prompt for credentials on every restart.
	// Never round-tripped through environment variables.
	Token string `mapstructure:"-" yaml:"token,omitempty"`
}

// Load reads configuration from configPath (or the default XDG location),
// layering REMOTEFS_ environment variables on top.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REMOTEFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only consults env vars for keys viper already knows, so bind
	// them explicitly for the case where no config file exists yet.
	for _, key := range []string{"server_url", "mount_point", "username"} {
		_ = v.BindEnv(key)
	}

	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	v.SetConfigFile(configPath)

	cfg := &Config{}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file yet: an empty Config, filled in by env vars or
		// the interactive register/login flow below.
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Token never comes from viper (it's excluded via mapstructure:"-" so
	// an env var can never leak it into a saved file); read it from the
	// YAML file directly if one exists.
	if data, err := os.ReadFile(configPath); err == nil {
		var onDisk Config
		if yaml.Unmarshal(data, &onDisk) == nil {
			cfg.Token = onDisk.Token
		}
	}

	return cfg, nil
}

// Save writes cfg to configPath (or the default location), creating the
// containing directory if needed. Owner-only permissions since it may
// carry a live bearer token.
func Save(cfg *Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ConfigDir returns $XDG_CONFIG_HOME/remotefs, falling back to
// ~/.config/remotefs.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "remotefs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "remotefs")
}

// DefaultConfigPath returns the default client config file location.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "client.yaml")
}
