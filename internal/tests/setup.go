package tests

import (
	"context"
	"fmt"

	"github.com/safecircle/server/internal/db"
)

// appTables lists tables in child-first order
var appTables = []string{"emergencies", "nominees", "accounts"}

// TruncateTables empties all application tables for a clean test state.
func TruncateTables(ctx context.Context, d *db.DB) error {
	if d.Dialect == db.Postgres {
		_, err := d.ExecContext(ctx, "TRUNCATE TABLE emergencies, nominees, accounts RESTART IDENTITY CASCADE")
		if err != nil {
			return fmt.Errorf("truncate tables: %w", err)
		}
		return nil
	}

	for _, table := range appTables {
		if _, err := d.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
