package shared

import (
	"database/sql"
	"embed"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

const migrationDir = "sql"

// NewDatabase opens a connection to a SQLite database at the specified path.
// The path can be ":memory:" for an in-memory database.
// Returns an open database connection or an error if connection fails.
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
//
// In-memory databases must use a single connection, every new connection gets its own empty database.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}

func prepareGoose(logger *log.Logger) error {
	if logger == nil {
		logger = NewLogger(io.Discard)
	}
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(logger)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	return nil
}

// RunMigrations applies all pending embedded migrations.
//
// Applied versions are tracked by goose in its own version table.
func RunMigrations(db *sql.DB, logger *log.Logger) error {
	if err := prepareGoose(logger); err != nil {
		return err
	}
	if err := goose.Up(db, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// RollbackMigration rolls back the most recent migration.
func RollbackMigration(db *sql.DB, logger *log.Logger) error {
	if err := prepareGoose(logger); err != nil {
		return err
	}
	if err := goose.Down(db, migrationDir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version.
func MigrationVersion(db *sql.DB) (int64, error) {
	if err := prepareGoose(nil); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// OpenMigrated opens the database at path, applies pool settings and runs migrations.
func OpenMigrated(cfg DatabaseConfig, logger *log.Logger) (*sql.DB, error) {
	db, err := NewDatabase(cfg.Path)
	if err != nil {
		return nil, err
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if cfg.Path == ":memory:" || maxOpen <= 0 {
		maxOpen, maxIdle = 1, 1
	}
	ConfigureDatabase(db, maxOpen, maxIdle)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
