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

// MaxNominees is the most nominees a single account may hold.
const MaxNominees = 3

// NomineeRepo defines the interface for nominee repository operations
type NomineeRepo interface {
	// Add inserts a nominee unless the account already holds MaxNominees.
	Add(ctx context.Context, accountID int64, name, phone string) (model.Nominee, error)
	Update(ctx context.Context, id int64, name, phone *string) error
	Remove(ctx context.Context, id int64) error
	ListByAccount(ctx context.Context, accountID int64) ([]model.Nominee, error)
}

type nomineeRepo struct {
	db *db.DB
}

// NewNomineeRepo creates a new NomineeRepo instance
func NewNomineeRepo(d *db.DB) NomineeRepo {
	return &nomineeRepo{db: d}
}

// Add checks capacity and inserts in one transaction. The account row is
// locked first so concurrent adds for the same account serialize.
func (r *nomineeRepo) Add(ctx context.Context, accountID int64, name, phone string) (model.Nominee, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Nominee{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = $1`+r.db.Dialect.LockForUpdate(), accountID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Nominee{}, model.ErrAccountNotFound
		}
		return model.Nominee{}, fmt.Errorf("lock account: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nominees WHERE account_id = $1`, accountID).Scan(&count); err != nil {
		return model.Nominee{}, fmt.Errorf("count nominees: %w", err)
	}
	if count >= MaxNominees {
		return model.Nominee{}, model.ErrCapacityExceeded
	}

	n := model.Nominee{
		AccountID: accountID,
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO nominees (account_id, name, phone, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, n.AccountID, n.Name, n.Phone, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		return model.Nominee{}, fmt.Errorf("insert nominee: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Nominee{}, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Update overwrites only the non-nil fields. With both nil it still
// reports ErrNomineeNotFound for an unknown id.
func (r *nomineeRepo) Update(ctx context.Context, id int64, name, phone *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE nominees
		SET name = COALESCE($1, name), phone = COALESCE($2, phone)
		WHERE id = $3
	`, name, phone, id)
	if err != nil {
		return fmt.Errorf("failed to update nominee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrNomineeNotFound
	}
	return nil
}

// Remove deletes a nominee by id
func (r *nomineeRepo) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nominees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete nominee: %w", err)
	}
	return expectOneRow(res, model.ErrNomineeNotFound)
}

// ListByAccount returns an account's nominees in insertion order
func (r *nomineeRepo) ListByAccount(ctx context.Context, accountID int64) ([]model.Nominee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, name, phone, created_at
		FROM nominees
		WHERE account_id = $1
		ORDER BY id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nominees: %w", err)
	}
	defer rows.Close()

	nominees := []model.Nominee{}
	for rows.Next() {
		var n model.Nominee
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Name, &n.Phone, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan nominee: %w", err)
		}
		nominees = append(nominees, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nominees: %w", err)
	}
	return nominees, nil
}
