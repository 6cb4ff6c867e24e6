package referral

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record credits one referred signup to its referrer. HasOrder flips
// true the first time the referred customer's order is delivered and
// never flips back, so each referral counts at most once.
type Record struct {
	ID        int64
	OwnerID   uint
	UsedByID  uint
	HasOrder  bool
	CreatedAt time.Time
}

// RewardAmount is the canonical reward discount value.
var RewardAmount = decimal.RequireFromString("50.00")

// MilestoneStep is how many completed referrals earn one reward code.
const MilestoneStep = 7

// RewardExpiry is how long an issued reward code stays redeemable.
const RewardExpiry = 14 * 24 * time.Hour

type DiscountCode struct {
	ID        int64
	Code      string
	OwnerID   uint
	Amount    decimal.Decimal
	ExpiresAt *time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsActive reports whether the code is still redeemable at now.
func (d *DiscountCode) IsActive(now time.Time) bool {
	if d.UsedAt != nil {
		return false
	}
	if d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// IssuedReward describes one reward code minted by the engine, with
// enough context to notify the referrer.
type IssuedReward struct {
	OwnerID        uint
	OwnerEmail     string
	Code           string
	Amount         decimal.Decimal
	ExpiresAt      time.Time
	CompletedCount int
}
