package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"freshbread-be/internal/logger"

	"go.uber.org/zap"
)

var ErrNotFound = errors.New("review request not found")

type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id int64) (*Request, error)
	ListByStatus(ctx context.Context, status Status) ([]*Request, error)

	// HasRecentPending reports whether the user created a pending request
	// after the cutoff. Backs the resubmission cooldown.
	HasRecentPending(ctx context.Context, userID uint, cutoff time.Time) (bool, error)

	// HasPendingReference reports whether any customer has the reference
	// under review right now.
	HasPendingReference(ctx context.Context, reference string) (bool, error)

	// MarkRejected flips a pending request to rejected with a reason.
	MarkRejected(ctx context.Context, id int64, reason string) error

	// MarkAcceptedTx flips pending -> accepted inside the caller's
	// transaction. Zero rows affected means the request was resolved by
	// someone else meanwhile.
	MarkAcceptedTx(ctx context.Context, tx *sql.Tx, id int64) error

	DeleteRejected(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req *Request) error {
	snapshot, err := json.Marshal(req.Items)
	if err != nil {
		return fmt.Errorf("marshal items snapshot: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO manual_order_requests (
			user_id, email, reference, total_due, deliver,
			location_id, delivery_slot, items_snapshot, status,
			discount_code_id, discount_amount
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'pending',$9,$10)
		RETURNING id, created_at
	`,
		req.UserID, req.Email, req.Reference, req.TotalDue, req.Deliver,
		req.LocationID, req.DeliverySlot, snapshot,
		req.DiscountCodeID, req.DiscountAmount,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to insert review request",
			zap.String("reference", req.Reference),
			zap.Error(err),
		)
		return err
	}

	req.Status = StatusPending
	return nil
}

const requestColumns = `
	m.id, m.user_id, u.username, m.email, m.reference, m.total_due, m.deliver,
	m.location_id, m.delivery_slot, m.items_snapshot, m.status, m.reason,
	m.discount_code_id, m.discount_amount, m.created_at, m.updated_at
`

func (r *repository) GetByID(ctx context.Context, id int64) (*Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM manual_order_requests m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = $1
	`, id)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

func (r *repository) ListByStatus(ctx context.Context, status Status) ([]*Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM manual_order_requests m
		JOIN users u ON u.id = m.user_id
		WHERE m.status = $1
		ORDER BY m.created_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *repository) HasRecentPending(ctx context.Context, userID uint, cutoff time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM manual_order_requests
			WHERE user_id = $1 AND status = 'pending' AND created_at >= $2
		)
	`, userID, cutoff).Scan(&exists)
	return exists, err
}

func (r *repository) HasPendingReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM manual_order_requests
			WHERE reference = $1 AND status = 'pending'
		)
	`, reference).Scan(&exists)
	return exists, err
}

func (r *repository) MarkRejected(ctx context.Context, id int64, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE manual_order_requests
		SET status = 'rejected', reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, reason)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MarkAcceptedTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE manual_order_requests
		SET status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteRejected(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM manual_order_requests WHERE id = $1 AND status = 'rejected'
	`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var req Request
	var snapshot []byte

	err := row.Scan(
		&req.ID, &req.UserID, &req.Username, &req.Email, &req.Reference,
		&req.TotalDue, &req.Deliver, &req.LocationID, &req.DeliverySlot,
		&snapshot, &req.Status, &req.Reason,
		&req.DiscountCodeID, &req.DiscountAmount,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &req.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items snapshot: %w", err)
		}
	}
	return &req, nil
}
