package cart

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// Line is one product entry in the customer's cart at snapshot time.
type Line struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Snapshot is an immutable view of a customer's cart. Checkout freezes
// one of these into the review request so later cart edits cannot
// change what was submitted.
type Snapshot struct {
	Lines    []Line
	Subtotal decimal.Decimal
}

// Provider serves cart snapshots. Cart editing itself is owned by the
// catalog side of the system; the pipeline only reads and clears.
type Provider interface {
	Snapshot(ctx context.Context, userID uint) (*Snapshot, error)
	Clear(ctx context.Context, userID uint) error
}

type provider struct {
	db *sql.DB
}

func NewProvider(db *sql.DB) Provider {
	return &provider{db: db}
}

func (p *provider) Snapshot(ctx context.Context, userID uint) (*Snapshot, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.product_id, p.name, p.price, c.quantity
		FROM carts c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &Snapshot{Subtotal: decimal.Zero}
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ProductID, &line.Name, &line.UnitPrice, &line.Quantity); err != nil {
			return nil, err
		}
		snap.Lines = append(snap.Lines, line)
		snap.Subtotal = snap.Subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return snap, rows.Err()
}

func (p *provider) Clear(ctx context.Context, userID uint) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	return err
}
