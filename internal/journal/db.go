package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// Config holds journal database configuration
type Config struct {
	Enabled         bool          `toml:"enabled" yaml:"enabled"`
	DSN             string        `toml:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime" yaml:"conn_max_lifetime"`

	// Rows kept by Prune; 0 keeps everything.
	Retention int `toml:"retention" yaml:"retention"`
}

// DefaultConfig returns default journal settings
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		DSN:          "queuedash.db",
		MaxOpenConns: 1,
		Retention:    10000,
	}
}

// Validate checks journal settings
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.DSN == "" {
		return fmt.Errorf("journal dsn must be specified when enabled")
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("journal max_open_conns must not be negative, got %d", c.MaxOpenConns)
	}
	if c.Retention < 0 {
		return fmt.Errorf("journal retention must not be negative, got %d", c.Retention)
	}
	return nil
}

// ErrNotFound is returned when no entry matches
var ErrNotFound = errors.New("journal: not found")

// openDB opens the sqlite database and applies pool settings
func openDB(config Config) (*sql.DB, error) {
	db, err := sql.Open(driverName, config.DSN)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Every connection to a memory DSN sees its own database.
	if isMemoryDSN(config.DSN) {
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// withTransaction runs fn in a transaction, committing on success
func withTransaction(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
