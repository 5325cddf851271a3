package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/remotefs/pkg/dbstore"
	"github.com/marmos91/remotefs/pkg/token"
)

// defaultConfig returns a Config with every field set to its zero-config
// default, the value Load falls back to when no config file exists yet.
func defaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
			DataDir:         filepath.Join(dataRoot(), "files"),
		},
		Database: dbstore.Config{Type: dbstore.TypeSQLite},
		Token:    TokenConfig{Expiry: token.DefaultExpiry},
		Admin:    AdminConfig{Username: "admin"},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in any zero-valued fields left after a config file
// unmarshal: zero values are replaced, explicit ones are preserved.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.DataDir == "" {
		cfg.Server.DataDir = filepath.Join(dataRoot(), "files")
	}

	cfg.Database.ApplyDefaults()

	if cfg.Token.Expiry <= 0 {
		cfg.Token.Expiry = token.DefaultExpiry
	}

	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
}

// dataRoot returns $XDG_DATA_HOME/remotefs, falling back to
// ~/.local/share/remotefs, then to ConfigDir()/data as a last resort.
func dataRoot() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "remotefs")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "remotefs")
	}
	return filepath.Join(ConfigDir(), "data")
}

var validate = validator.New()

// Validate checks a loaded Config against its validate struct tags.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
