package order

import (
	"context"
	"database/sql"
	"errors"

	"freshbread-be/internal/logger"
	"freshbread-be/internal/payment"
	"freshbread-be/internal/review"

	"go.uber.org/zap"
)

type Repository interface {
	// AcceptReviewTx performs the acceptance critical section as one
	// transaction: consume the reference in the ledger, create the order
	// with its lines, flip the review request to accepted, and burn the
	// linked discount code. Any failure rolls the whole thing back and
	// leaves the request pending.
	AcceptReviewTx(ctx context.Context, req *review.Request, o *Order) error

	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID uint) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)

	// Transition is a compare-and-swap status update: it only writes when
	// the row still holds the expected status, so two concurrent staff
	// clicks cannot both succeed.
	Transition(ctx context.Context, id int64, from, to Status, firstDelivery bool) (bool, error)
}

type repository struct {
	db      *sql.DB
	ledger  payment.Ledger
	reviews review.Repository
}

func NewRepository(db *sql.DB, ledger payment.Ledger, reviews review.Repository) Repository {
	return &repository{db: db, ledger: ledger, reviews: reviews}
}

func (r *repository) AcceptReviewTx(ctx context.Context, req *review.Request, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.Int64("review_id", req.ID),
		zap.String("reference", req.Reference),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback acceptance", zap.Error(rbErr))
			}
		}
	}()

	// 1. Consume the reference. A unique violation here means another
	// acceptance won the race.
	err = r.ledger.MarkUsedTx(ctx, tx, payment.UsedReference{
		Reference: req.Reference,
		Amount:    req.TotalDue,
		Email:     req.Email,
		UserID:    &req.UserID,
	})
	if err != nil {
		return err
	}

	// 2. Create the order.
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, order_code, status, total_price, deliver,
			location_id, delivery_slot, delivery_code
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at
	`,
		o.UserID, o.OrderCode, o.Status, o.Total(), o.Deliver,
		o.LocationID, o.DeliverySlot, o.DeliveryCode,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, quantity, price)
			VALUES ($1,$2,$3,$4,$5)
		`, o.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
	}
	o.TotalPrice = o.Total()

	// 3. Flip the request. Zero rows means someone resolved it meanwhile.
	if err := r.reviews.MarkAcceptedTx(ctx, tx, req.ID); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return ErrReviewResolved
		}
		return err
	}

	// 4. Burn the linked discount code. Deleting keeps the referral
	// engine's outstanding-code count honest.
	if req.DiscountCodeID != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE discount_codes SET used_at = NOW()
			WHERE id = $1 AND owner_id = $2 AND used_at IS NULL
		`, *req.DiscountCodeID, req.UserID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM discount_codes WHERE id = $1
		`, *req.DiscountCodeID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	log.Info("review accepted", zap.Int64("order_id", o.ID), zap.String("order_code", o.OrderCode))
	return nil
}

const orderColumns = `
	o.id, o.user_id, u.email, o.order_code, o.status, o.total_price, o.deliver,
	o.location_id, o.delivery_slot, o.delivery_code,
	o.created_at, o.updated_at, o.completed_at
`

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`, id)

	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.CustomerEmail, &o.OrderCode, &o.Status, &o.TotalPrice, &o.Deliver,
		&o.LocationID, &o.DeliverySlot, &o.DeliveryCode,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, quantity, price
		FROM order_items WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item Line
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]*Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1 ORDER BY o.created_at DESC
	`, userID)
}

func (r *repository) ListAll(ctx context.Context) ([]*Order, error) {
	return r.list(ctx, `
		SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC`)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID, &o.UserID, &o.CustomerEmail, &o.OrderCode, &o.Status, &o.TotalPrice, &o.Deliver,
			&o.LocationID, &o.DeliverySlot, &o.DeliveryCode,
			&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

func (r *repository) Transition(ctx context.Context, id int64, from, to Status, firstDelivery bool) (bool, error) {
	query := `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	if firstDelivery {
		query = `
			UPDATE orders SET status = $1, updated_at = NOW(), completed_at = NOW()
			WHERE id = $2 AND status = $3 AND completed_at IS NULL
		`
	}

	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
