package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID        int64
	Name      string
	UnitPrice decimal.Decimal
	Available bool
}

// Lookup re-prices order lines at acceptance time: the review snapshot
// keeps the names the customer saw, the order keeps the price the
// catalog says now.
type Lookup interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
}

type lookup struct {
	db *sql.DB
}

func NewLookup(db *sql.DB) Lookup {
	return &lookup{db: db}
}

func (l *lookup) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, price, available FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.UnitPrice, &p.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
