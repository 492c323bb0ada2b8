package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/safecircle/server/internal/logger"
)

// Dialect identifies the SQL backend behind a *sql.DB
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// LockForUpdate returns the row-locking suffix for SELECTs inside a transaction.
// SQLite serializes writers on its single connection, so it needs none.
func (d Dialect) LockForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// DB bundles a connection pool with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database named by databaseURL. postgres:// and postgresql://
// URLs use lib/pq; sqlite://path, file:path and bare *.db paths use go-sqlite3.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dialect, dsn, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	var conn *sql.DB
	switch dialect {
	case Postgres:
		conn, err = openPostgres(ctx, dsn)
	case SQLite:
		conn, err = openSQLite(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("database connected", logger.String("dialect", string(dialect)), logger.String("dsn", redactDSN(dsn)))
	return &DB{DB: conn, Dialect: dialect}, nil
}

func parseURL(databaseURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		if _, err := url.Parse(databaseURL); err != nil {
			return "", "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		return Postgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("invalid DATABASE_URL: sqlite path is empty")
		}
		return SQLite, path, nil
	case strings.HasPrefix(databaseURL, "file:"), strings.HasSuffix(databaseURL, ".db"), databaseURL == ":memory:":
		return SQLite, databaseURL, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme (want postgres:// or sqlite://)")
	}
}

// redactDSN returns a copy of the DSN with password replaced by **** for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
