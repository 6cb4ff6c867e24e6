package auth

import (
	"context"
	"database/sql"
	"errors"
)

// Identity is the minimal user record the login endpoint needs.
type Identity struct {
	ID       uint
	Email    string
	Username string
	Staff    bool
}

// Directory resolves login emails to user records. Password checking
// for staff happens against the config hash, not the row, so a leaked
// database dump alone cannot forge a staff login.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (*Identity, error)
}

type directory struct {
	db *sql.DB
}

func NewDirectory(db *sql.DB) Directory {
	return &directory{db: db}
}

func (d *directory) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, email, username, is_staff FROM users WHERE email = $1
	`, email)

	var id Identity
	err := row.Scan(&id.ID, &id.Email, &id.Username, &id.Staff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
