package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrReviewResolved means the review request was accepted or rejected
	// by someone else between load and commit.
	ErrReviewResolved = errors.New("review request already resolved")

	// ErrDeliveryCodeMismatch refuses the delivered transition when the
	// presented code does not match the order's.
	ErrDeliveryCodeMismatch = errors.New("wrong delivery code")

	// ErrTooManyAttempts caps delivery-code guesses per order.
	ErrTooManyAttempts = errors.New("too many delivery code attempts, try again later")
)

// IllegalTransitionError names the rejected status change.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order transition from %s to %s", e.From, e.To)
}
