// Package config loads the server daemon's static configuration: logging,
// the metadata database connection, the HTTP listen address, the token
// signing secret, and the initial admin bootstrap account.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/remotefs/pkg/dbstore"
)

// Config is the remotefsd server's static configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (REMOTEFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// When a config file is found, environment variables override only the
// keys that file sets; without a file, only the keys read by
// applyEnvOverrides come from the environment.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database dbstore.Config `mapstructure:"database" yaml:"database"`
	Token    TokenConfig    `mapstructure:"token" yaml:"token"`
	Admin    AdminConfig    `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls internal/logger's output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// ServerConfig configures the HTTP listener the Request Router binds to.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
	DataDir         string        `mapstructure:"data_dir" yaml:"data_dir"`
}

// TokenConfig configures the token service.
type TokenConfig struct {
	Secret string        `mapstructure:"secret" validate:"omitempty,min=32" yaml:"secret"`
	Expiry time.Duration `mapstructure:"expiry" validate:"required,gt=0" yaml:"expiry"`
}

// AdminConfig names the bootstrap admin account, created at startup when
// the credential store has no user with that name.
type AdminConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
}

// Load reads configuration from configPath (or the default XDG location if
// empty), layering environment variables and defaults on top.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	} else {
		applyEnvOverrides(v, cfg)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides covers the common case where no config file exists at
// all yet (a fresh install running entirely off REMOTEFS_* env vars); viper
// only auto-binds env vars it knows a key for, so the token secret, listen
// address and admin credentials are read explicitly. Other keys are not
// taken from the environment in this case.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if s := v.GetString("token.secret"); s != "" {
		cfg.Token.Secret = s
	}
	if s := v.GetString("server.listen_addr"); s != "" {
		cfg.Server.ListenAddr = s
	}
	if s := v.GetString("admin.username"); s != "" {
		cfg.Admin.Username = s
	}
	if s := v.GetString("admin.password"); s != "" {
		cfg.Admin.Password = s
	}
}

// SaveConfig writes cfg to path in YAML, with owner-only permissions since
// it may carry the token secret and an admin password.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("REMOTEFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(ConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks lets config files and env vars spell durations as
// "1h"/"30s" rather than raw nanoseconds.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
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

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
