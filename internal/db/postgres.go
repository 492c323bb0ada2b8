package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/safecircle/server/internal/logger"
)

// extractDBName returns the database name from URL path ("/safecircle" -> "safecircle").
func extractDBName(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
}

func isDatabaseDoesNotExist(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database") && strings.Contains(msg, "does not exist")
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	dbName := extractDBName(u)
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}

	if dbName != "" {
		precheckDatabase(ctx, *u, dbName)
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		if isDatabaseDoesNotExist(err) {
			return nil, fmt.Errorf("database %q not found on host=%s port=%s: %w", dbName, host, port, err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// precheckDatabase connects to the maintenance database and logs whether dbName exists.
// It only logs; the real connection attempt decides success.
func precheckDatabase(ctx context.Context, u url.URL, dbName string) {
	u.Path = "/postgres"
	u.RawPath = ""

	maint, err := sql.Open("postgres", u.String())
	if err != nil {
		logger.Warn("db precheck: could not open maintenance connection", logger.Err(err))
		return
	}
	defer maint.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var found string
	err = maint.QueryRowContext(checkCtx, "SELECT datname FROM pg_database WHERE datname = $1", dbName).Scan(&found)
	switch {
	case err == nil:
		logger.Debug("db precheck: database exists", logger.String("db", found))
	case errors.Is(err, sql.ErrNoRows):
		logger.Warn("db precheck: database not found on this instance", logger.String("db", dbName))
	default:
		logger.Debug("db precheck: could not query pg_database", logger.Err(err))
	}
}
