package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safecircle/server/internal/db"
	"github.com/safecircle/server/internal/model"
)

// AccountRepo defines the interface for account repository operations
type AccountRepo interface {
	GetOrCreate(ctx context.Context, email, name, phone string) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	MarkVerified(ctx context.Context, id int64) error
	// Delete removes the account together with its nominees and emergencies.
	Delete(ctx context.Context, id int64) error
}

type accountRepo struct {
	db *db.DB
}

// NewAccountRepo creates a new AccountRepo instance
func NewAccountRepo(d *db.DB) AccountRepo {
	return &accountRepo{db: d}
}

// GetOrCreate returns the account for email, creating it if absent.
// An existing account is never modified.
func (r *accountRepo) GetOrCreate(ctx context.Context, email, name, phone string) (model.Account, error) {
	query := `
		INSERT INTO accounts (email, name, phone, verified, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, email, name, phone, time.Now().UTC()); err != nil {
		return model.Account{}, fmt.Errorf("failed to insert account: %w", err)
	}
	return r.GetByEmail(ctx, email)
}

// GetByEmail retrieves an account by email
func (r *accountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	query := `
		SELECT id, email, name, phone, verified, created_at
		FROM accounts
		WHERE email = $1
	`
	var a model.Account
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.Phone,
		&a.Verified,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrAccountNotFound
		}
		return model.Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	return a, nil
}

// MarkVerified sets the verified flag on an account
func (r *accountRepo) MarkVerified(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark account verified: %w", err)
	}
	return expectOneRow(res, model.ErrAccountNotFound)
}

// Delete removes an account and everything it owns in one transaction.
func (r *accountRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Explicit deletes keep the contract even where the FK cascade is not enforced.
	if _, err := tx.ExecContext(ctx, `DELETE FROM nominees WHERE account_id = $1`, id); err != nil {
		return fmt.Errorf("delete nominees: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM emergencies WHERE account_id = $1`, id); err != nil {
		return fmt.Errorf("delete emergencies: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := expectOneRow(res, model.ErrAccountNotFound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
