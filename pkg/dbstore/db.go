// Package dbstore opens the GORM connection shared by the credential store
// and the metadata catalog. The backend is selectable: SQLite for a
// single-node deployment, Postgres where one node isn't enough.
package dbstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Type selects the SQL backend.
type Type string

const (
	// TypeSQLite is the default, single-node backend.
	TypeSQLite Type = "sqlite"

	// TypePostgres is the multi-node-capable backend.
	TypePostgres Type = "postgres"
)

// PostgresConfig holds the connection parameters for the Postgres backend.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

func (c PostgresConfig) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// Config selects and configures the backend.
type Config struct {
	Type       Type
	SQLitePath string
	Postgres   PostgresConfig
}

// ApplyDefaults fills in a default SQLite path under the user's config dir.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeSQLite
	}
	if c.Type == TypeSQLite && c.SQLitePath == "" {
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, _ := os.UserHomeDir()
			dir = filepath.Join(home, ".config")
		}
		c.SQLitePath = filepath.Join(dir, "remotefs", "remotefs.db")
	}
}

// Open connects to the configured backend and runs AutoMigrate for the
// given models. GORM's own query logger is silenced (requests are logged
// via internal/logger) and SQLite runs in WAL mode with a busy timeout so
// concurrent catalog reads don't collide with the single writer.
func Open(cfg Config, models ...interface{}) (*gorm.DB, error) {
	cfg.ApplyDefaults()

	var dialector gorm.Dialector
	switch cfg.Type {
	case TypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn := cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case TypePostgres:
		dialector = postgres.Open(cfg.Postgres.dsn())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	return db, nil
}
