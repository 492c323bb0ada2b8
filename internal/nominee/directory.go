package nominee

import (
	"context"
	"fmt"
	"strings"

	"github.com/safecircle/server/internal/model"
	"github.com/safecircle/server/internal/repo"
)

// Directory manages an account's emergency contacts
type Directory struct {
	accounts repo.AccountRepo
	nominees repo.NomineeRepo
}

// NewDirectory creates a new nominee directory
func NewDirectory(accounts repo.AccountRepo, nominees repo.NomineeRepo) *Directory {
	return &Directory{accounts: accounts, nominees: nominees}
}

// Add creates a nominee for the account with the given email.
func (d *Directory) Add(ctx context.Context, email, name, phone string) (model.Nominee, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	account, err := d.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return model.Nominee{}, err
	}
	if name == "" || phone == "" {
		return model.Nominee{}, fmt.Errorf("%w: name and phone required", model.ErrValidation)
	}
	return d.nominees.Add(ctx, account.ID, name, phone)
}

// Update changes the supplied fields. Nil or blank values leave the field as is.
func (d *Directory) Update(ctx context.Context, id int64, name, phone *string) error {
	return d.nominees.Update(ctx, id, nonBlank(name), nonBlank(phone))
}

// Remove deletes a nominee
func (d *Directory) Remove(ctx context.Context, id int64) error {
	return d.nominees.Remove(ctx, id)
}

// List returns the account's nominees in the order they were added
func (d *Directory) List(ctx context.Context, email string) ([]model.Nominee, error) {
	account, err := d.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	return d.nominees.ListByAccount(ctx, account.ID)
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
