package checkout

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Step int

const (
	Step1 Step = 1
	Step2 Step = 2
	Step3 Step = 3
)

// ReferenceLength is the exact length of a customer-submitted transfer
// reference.
const ReferenceLength = 12

// Session is the per-customer checkout state. It is a value: the step
// transition methods return a new session and perform no I/O, so the
// state machine can be tested without a store or a database. Side
// effects (ledger checks, review creation, mail) are the service's job
// after a transition succeeds.
type Session struct {
	TempIdentityID uuid.UUID

	Step1Complete bool
	Step2Complete bool
	Submitted     bool

	DeliverySlot       string
	WantsDelivery      bool
	DeliveryLocationID *uuid.UUID

	DiscountCodeID *int64
	DiscountAmount decimal.Decimal

	CreatedAt time.Time
}

func NewSession(tempIdentityID uuid.UUID) Session {
	return Session{
		TempIdentityID: tempIdentityID,
		DiscountAmount: decimal.Zero,
		CreatedAt:      time.Now(),
	}
}

// FirstIncompleteStep is where an out-of-order request gets redirected.
func (s Session) FirstIncompleteStep() Step {
	if !s.Step1Complete {
		return Step1
	}
	if !s.Step2Complete {
		return Step2
	}
	return Step3
}

// WithStep1 records delivery choices and an optional validated discount.
// Discount ownership and activity are the caller's responsibility; the
// session only carries the result.
func (s Session) WithStep1(slot string, wantsDelivery bool, locationID *uuid.UUID, discountID *int64, discountAmount decimal.Decimal) (Session, error) {
	if strings.TrimSpace(slot) == "" {
		return s, validationf("please select a delivery time")
	}
	if wantsDelivery && locationID == nil {
		return s, validationf("please choose a delivery location")
	}

	s.DeliverySlot = strings.TrimSpace(slot)
	s.WantsDelivery = wantsDelivery
	s.DeliveryLocationID = locationID
	s.DiscountCodeID = discountID
	s.DiscountAmount = discountAmount
	if s.DiscountAmount.IsNegative() {
		s.DiscountAmount = decimal.Zero
	}

	s.Step1Complete = true
	s.Step2Complete = false
	return s, nil
}

// EnterStep2 guards entry into the payment instructions step.
func (s Session) EnterStep2() (Session, error) {
	if !s.Step1Complete {
		return s, &StepError{Incomplete: Step1}
	}
	return s, nil
}

// WithStep2Complete records that the customer confirmed they sent the
// transfer.
func (s Session) WithStep2Complete() (Session, error) {
	if !s.Step1Complete {
		return s, &StepError{Incomplete: Step1}
	}
	s.Step2Complete = true
	return s, nil
}

// EnterStep3 guards entry into reference submission.
func (s Session) EnterStep3() (Session, error) {
	if !s.Step1Complete {
		return s, &StepError{Incomplete: Step1}
	}
	if !s.Step2Complete {
		return s, &StepError{Incomplete: Step2}
	}
	return s, nil
}

// WithSubmitted marks the checkout as having produced a review request.
func (s Session) WithSubmitted() Session {
	s.Submitted = true
	return s
}

// ValidReference reports whether a customer-typed reference has the
// expected shape.
func ValidReference(ref string) bool {
	if len(ref) != ReferenceLength {
		return false
	}
	for _, r := range ref {
		isDigit := r >= '0' && r <= '9'
		isUpper := r >= 'A' && r <= 'Z'
		isLower := r >= 'a' && r <= 'z'
		if !isDigit && !isUpper && !isLower {
			return false
		}
	}
	return true
}

// Payable computes subtotal + shipping - discount, clamped at zero. The
// discount can exceed the bill; the customer never sees a negative
// total.
func Payable(subtotal, shipping, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
