package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// UsedReference is one consumed payment reference. The table's unique
// constraint on reference is what enforces at-most-once acceptance.
type UsedReference struct {
	ID        int64
	Reference string
	Amount    decimal.Decimal
	Email     string
	UserID    *uint
	CreatedAt time.Time
}

type Ledger interface {
	IsUsed(ctx context.Context, reference string) (bool, error)
	MarkUsed(ctx context.Context, ref UsedReference) error

	// MarkUsedTx inserts inside the caller's transaction so the ledger
	// write commits or rolls back together with order creation.
	MarkUsedTx(ctx context.Context, tx *sql.Tx, ref UsedReference) error
}

type ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) IsUsed(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM used_payment_references WHERE reference = $1)
	`, reference).Scan(&exists)
	return exists, err
}

func (l *ledger) MarkUsed(ctx context.Context, ref UsedReference) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO used_payment_references (reference, amount, email, user_id)
		VALUES ($1, $2, $3, $4)
	`, ref.Reference, ref.Amount, ref.Email, ref.UserID)
	return translateConflict(err)
}

func (l *ledger) MarkUsedTx(ctx context.Context, tx *sql.Tx, ref UsedReference) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO used_payment_references (reference, amount, email, user_id)
		VALUES ($1, $2, $3, $4)
	`, ref.Reference, ref.Amount, ref.Email, ref.UserID)
	return translateConflict(err)
}

func translateConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrReferenceConflict
	}
	return err
}
