package db

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/safecircle/server/internal/logger"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrations embed.FS

// Migrate applies all pending migrations for the connection's dialect.
func Migrate(d *DB) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(string(d.Dialect)); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	dir := "migrations/" + string(d.Dialect)
	logger.Info("running migrations", logger.String("dir", dir))

	if err := goose.Up(d.DB, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied state of every migration.
func MigrationStatus(d *DB) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(string(d.Dialect)); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Status(d.DB, "migrations/"+string(d.Dialect)); err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	return nil
}
