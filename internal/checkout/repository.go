package checkout

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrLocationNotFound = errors.New("delivery location not found")

// Location is a delivery address owned by a customer.
type Location struct {
	ID      uuid.UUID
	UserID  uint
	Label   string
	Address string
}

type Repository interface {
	// GetOwnedLocation resolves a location only when it belongs to the
	// requesting customer.
	GetOwnedLocation(ctx context.Context, id uuid.UUID, userID uint) (*Location, error)

	// EnsureTempIdentity returns the provisional identity handle for this
	// checkout attempt, creating one or replacing an expired one. Retries
	// within the validity window reuse the same handle.
	EnsureTempIdentity(ctx context.Context, email, username string, ttl time.Duration) (uuid.UUID, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOwnedLocation(ctx context.Context, id uuid.UUID, userID uint) (*Location, error) {
	var loc Location
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, label, address
		FROM user_locations
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&loc.ID, &loc.UserID, &loc.Label, &loc.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *repository) EnsureTempIdentity(ctx context.Context, email, username string, ttl time.Duration) (uuid.UUID, error) {
	id := uuid.New()
	expires := time.Now().Add(ttl)

	var out uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO temp_identities (id, email, username, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			id = CASE WHEN temp_identities.expires_at < NOW() THEN EXCLUDED.id ELSE temp_identities.id END,
			expires_at = CASE WHEN temp_identities.expires_at < NOW() THEN EXCLUDED.expires_at ELSE temp_identities.expires_at END
		RETURNING id
	`, id, email, username, expires).Scan(&out)
	if err != nil {
		return uuid.Nil, err
	}
	return out, nil
}
