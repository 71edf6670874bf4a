// Package database provides database setup, models, and the bot configuration store.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/botfleet/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// busyTimeout bounds how long a statement waits for a file lock held by another
// process, e.g. `botfleet migrate` run next to a live supervisor.
const busyTimeout = 5 * time.Second

// NewDB opens the bot store at path, creating its directory if needed, and
// migrates it to the latest schema.
func NewDB(path string) (*sqlx.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is empty")
	}
	if dir := filepath.Dir(path); !isSpecialPath(path) && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Connect("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// One connection: writes serialize and INSERT OR IGNORE / UPDATE stay atomic.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	version, err := Migrate(db.DB)
	if err != nil {
		CloseDB(db)
		return nil, err
	}

	slog.Info("Bot store ready", "path", path, "schema_version", version)
	return db, nil
}

// CloseDB closes the database, logging instead of returning the error.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database", "error", err)
	}
}

// Migrate applies the embedded migrations and returns the resulting schema version.
func Migrate(db *sql.DB) (uint, error) {
	if db == nil {
		return 0, errors.New("cannot migrate a nil database")
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	target, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty, fix it by hand and rerun migrate", version)
	}
	return version, nil
}

// dsn appends the connection pragmas to path, keeping any query the operator set.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", path, sep, busyTimeout.Milliseconds())
}

func isSpecialPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}
