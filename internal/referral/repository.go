package referral

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"freshbread-be/internal/utils"
)

var ErrCodeNotFound = errors.New("discount code not found")

type Repository interface {
	// GetActiveCode resolves a discount code by its text, scoped to the
	// owner. Inactive (used or expired) codes resolve to ErrCodeNotFound.
	GetActiveCode(ctx context.Context, code string, ownerID uint) (*DiscountCode, error)
	GetCodeByID(ctx context.Context, id int64, ownerID uint) (*DiscountCode, error)

	// CreditDelivered runs the whole reward critical section in one
	// transaction: flip uncredited referral records for the customer,
	// recompute each affected referrer's completed count, and issue the
	// milestone difference in reward codes. Difference-based issuance is
	// what makes replays safe.
	CreditDelivered(ctx context.Context, customerID uint) ([]IssuedReward, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetActiveCode(ctx context.Context, code string, ownerID uint) (*DiscountCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code, owner_id, amount, expires_at, used_at, created_at
		FROM discount_codes
		WHERE code = $1 AND owner_id = $2
	`, code, ownerID)
	return scanActiveCode(row)
}

func (r *repository) GetCodeByID(ctx context.Context, id int64, ownerID uint) (*DiscountCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code, owner_id, amount, expires_at, used_at, created_at
		FROM discount_codes
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	return scanActiveCode(row)
}

func scanActiveCode(row *sql.Row) (*DiscountCode, error) {
	var d DiscountCode
	err := row.Scan(&d.ID, &d.Code, &d.OwnerID, &d.Amount, &d.ExpiresAt, &d.UsedAt, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	if !d.IsActive(time.Now()) {
		return nil, ErrCodeNotFound
	}
	return &d, nil
}

func (r *repository) CreditDelivered(ctx context.Context, customerID uint) ([]IssuedReward, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock the uncredited records so two concurrent delivery events
	// cannot both read has_order = false.
	rows, err := tx.QueryContext(ctx, `
		SELECT id, owner_id FROM referral_records
		WHERE used_by_id = $1 AND has_order = FALSE
		FOR UPDATE
	`, customerID)
	if err != nil {
		return nil, err
	}

	ownerIDs := make([]uint, 0, 1)
	seen := make(map[uint]bool)
	for rows.Next() {
		var id int64
		var ownerID uint
		if err := rows.Scan(&id, &ownerID); err != nil {
			rows.Close()
			return nil, err
		}
		if !seen[ownerID] {
			seen[ownerID] = true
			ownerIDs = append(ownerIDs, ownerID)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `
		UPDATE referral_records SET has_order = TRUE
		WHERE used_by_id = $1 AND has_order = FALSE
	`, customerID); err != nil {
		return nil, err
	}

	var issued []IssuedReward
	for _, ownerID := range ownerIDs {
		rewards, err := r.issueForOwnerTx(ctx, tx, ownerID)
		if err != nil {
			return nil, err
		}
		issued = append(issued, rewards...)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return issued, nil
}

func (r *repository) issueForOwnerTx(ctx context.Context, tx *sql.Tx, ownerID uint) ([]IssuedReward, error) {
	var completed int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM referral_records
		WHERE owner_id = $1 AND has_order = TRUE
	`, ownerID).Scan(&completed)
	if err != nil {
		return nil, err
	}

	var alreadyIssued int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM discount_codes
		WHERE owner_id = $1 AND amount = $2
	`, ownerID, RewardAmount).Scan(&alreadyIssued)
	if err != nil {
		return nil, err
	}

	targetAwards := completed / MilestoneStep
	toIssue := targetAwards - alreadyIssued
	if toIssue < 0 {
		toIssue = 0
	}

	var ownerEmail string
	if err := tx.QueryRowContext(ctx, `
		SELECT email FROM users WHERE id = $1
	`, ownerID).Scan(&ownerEmail); err != nil {
		return nil, err
	}

	var issued []IssuedReward
	for i := 0; i < toIssue; i++ {
		code := utils.GenerateReference()[:8]
		expires := time.Now().Add(RewardExpiry)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO discount_codes (code, owner_id, amount, expires_at)
			VALUES ($1, $2, $3, $4)
		`, code, ownerID, RewardAmount, expires); err != nil {
			return nil, err
		}
		issued = append(issued, IssuedReward{
			OwnerID:        ownerID,
			OwnerEmail:     ownerEmail,
			Code:           code,
			Amount:         RewardAmount,
			ExpiresAt:      expires,
			CompletedCount: completed,
		})
	}

	// Keep the running count fresh for profile display.
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET completed_referral_count = $2 WHERE id = $1
	`, ownerID, completed); err != nil {
		return nil, err
	}

	return issued, nil
}
