package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		in      string
		dialect Dialect
		dsn     string
		wantErr bool
	}{
		{in: "postgres://u:p@localhost:5432/app", dialect: Postgres, dsn: "postgres://u:p@localhost:5432/app"},
		{in: "postgresql://localhost/app", dialect: Postgres, dsn: "postgresql://localhost/app"},
		{in: "sqlite:///tmp/app.db", dialect: SQLite, dsn: "/tmp/app.db"},
		{in: "file:app.db?cache=shared", dialect: SQLite, dsn: "file:app.db?cache=shared"},
		{in: "data/app.db", dialect: SQLite, dsn: "data/app.db"},
		{in: "sqlite://", wantErr: true},
		{in: "mysql://localhost/app", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dialect, dsn, err := parseURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, dialect)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestRedactDSN(t *testing.T) {
	assert.NotContains(t, redactDSN("postgres://app:hunter2@db/app"), "hunter2")
	assert.Equal(t, "/tmp/app.db", redactDSN("/tmp/app.db"))
}

func TestLockForUpdate(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", Postgres.LockForUpdate())
	assert.Equal(t, "", SQLite.LockForUpdate())
}

func TestOpenAndMigrate_sqlite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	d, err := Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	assert.Equal(t, SQLite, d.Dialect)
	require.NoError(t, Migrate(d))
	// Running twice is a no-op.
	require.NoError(t, Migrate(d))

	var fk int
	require.NoError(t, d.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	for _, table := range []string{"accounts", "nominees", "emergencies"} {
		var name string
		err := d.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}
