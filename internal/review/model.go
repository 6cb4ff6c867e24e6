package review

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// SnapshotLine is one cart line frozen at submission time. Prices here
// are display-only; accepted orders re-price against the catalog.
type SnapshotLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Request is a pending order awaiting staff accept/reject. The claimed
// reference is only consumed from the ledger at acceptance time, so a
// rejected request frees it for resubmission.
type Request struct {
	ID        int64
	UserID    uint
	Username  string
	Email     string
	Reference string
	TotalDue  decimal.Decimal
	Deliver   bool

	LocationID   *uuid.UUID
	DeliverySlot *string

	Items  []SnapshotLine
	Status Status
	Reason *string

	// Discount linkage, typed instead of smuggled through Reason.
	DiscountCodeID *int64
	DiscountAmount decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}
