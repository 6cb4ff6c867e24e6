package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCooking    Status = "cooking"
	StatusQueued     Status = "queued"
	StatusSending    Status = "sending"
	StatusReady      Status = "ready"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// allowedTransitions is the only source of truth for status changes.
// delivered and cancelled are terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCooking, StatusCancelled},
	StatusCooking:    {StatusQueued, StatusCancelled},
	StatusQueued:     {StatusSending, StatusReady, StatusCancelled},
	StatusSending:    {StatusDelivered, StatusCancelled},
	StatusReady:      {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ValidStatus reports whether s names a known status.
func ValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is in the allowed table.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID            int64
	UserID        uint
	CustomerEmail string
	OrderCode     string
	Status        Status
	TotalPrice    decimal.Decimal
	Deliver       bool
	LocationID    *uuid.UUID
	DeliverySlot  *string
	DeliveryCode  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
	Items         []Line
}

// Line captures a product at order-creation price; later catalog price
// changes do not touch it.
type Line struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total derives the order price from its lines; it is never set by hand.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Items {
		total = total.Add(l.Subtotal())
	}
	return total
}
