package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safecircle/server/internal/db"
	"github.com/safecircle/server/internal/model"
)

// EmergencyRepo defines the interface for emergency event persistence
type EmergencyRepo interface {
	Create(ctx context.Context, ev model.EmergencyEvent) (model.EmergencyEvent, error)
	ListByAccount(ctx context.Context, accountID int64) ([]model.EmergencyEvent, error)
}

type emergencyRepo struct {
	db *db.DB
}

// NewEmergencyRepo creates a new EmergencyRepo instance
func NewEmergencyRepo(d *db.DB) EmergencyRepo {
	return &emergencyRepo{db: d}
}

// Create stores ev with a server-assigned timestamp and returns the stored row.
func (r *emergencyRepo) Create(ctx context.Context, ev model.EmergencyEvent) (model.EmergencyEvent, error) {
	// Postgres keeps microseconds; truncate so the returned row equals the stored one.
	ev.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	var lat, lon sql.NullFloat64
	if ev.Location != nil {
		lat = sql.NullFloat64{Float64: ev.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: ev.Location.Longitude, Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.EmergencyEvent{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO emergencies (account_id, category, details, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, ev.AccountID, ev.Category, ev.Details, lat, lon, ev.CreatedAt).Scan(&ev.ID)
	if err != nil {
		return model.EmergencyEvent{}, fmt.Errorf("insert emergency: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.EmergencyEvent{}, fmt.Errorf("commit: %w", err)
	}
	return ev, nil
}

// ListByAccount returns an account's events newest first
func (r *emergencyRepo) ListByAccount(ctx context.Context, accountID int64) ([]model.EmergencyEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, category, details, latitude, longitude, created_at
		FROM emergencies
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query emergencies: %w", err)
	}
	defer rows.Close()

	events := []model.EmergencyEvent{}
	for rows.Next() {
		var ev model.EmergencyEvent
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&ev.ID, &ev.AccountID, &ev.Category, &ev.Details, &lat, &lon, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan emergency: %w", err)
		}
		if lat.Valid && lon.Valid {
			ev.Location = &model.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emergencies: %w", err)
	}
	return events, nil
}
