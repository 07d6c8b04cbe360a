package service

import (
	"context"

	"github.com/sparkmates/sparkmates/internal/db"
)

type Users struct {
	*base
}

func (u *Users) GetAll(ctx context.Context) ([]db.User, error) {
	return u.store.ListUsers(ctx)
}

func (u *Users) GetByID(ctx context.Context, id string) (db.User, bool, error) {
	return u.store.GetUser(ctx, id)
}

// GetByEmail returns every account registered with email, oldest first.
// Emails are not unique once accounts register.
func (u *Users) GetByEmail(ctx context.Context, email string) ([]db.User, error) {
	return u.store.ListUsersByEmail(ctx, email)
}
