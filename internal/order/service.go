package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"freshbread-be/internal/catalog"
	"freshbread-be/internal/logger"
	"freshbread-be/internal/notify"
	"freshbread-be/internal/ratelimit"
	"freshbread-be/internal/referral"
	"freshbread-be/internal/review"
	"freshbread-be/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Service interface {
	// AcceptReview turns a pending review request into a processing
	// order, consuming the claimed reference and the linked discount.
	AcceptReview(ctx context.Context, reviewID int64) (*Order, error)

	// RejectReview marks the request rejected and frees its reference
	// for resubmission.
	RejectReview(ctx context.Context, reviewID int64, reason string) error

	// Transition moves an order along the lifecycle. deliveryCode is
	// required to reach delivered on hand-delivered orders.
	Transition(ctx context.Context, orderID int64, to Status, deliveryCode string) (*Order, error)

	GetDetail(ctx context.Context, orderID int64) (*Order, error)
	ListMine(ctx context.Context) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
}

type service struct {
	repo     Repository
	reviews  review.Repository
	catalog  catalog.Lookup
	notifier notify.Notifier
	rewards  *referral.Engine
	attempts *ratelimit.Limiter
}

func NewService(
	repo Repository,
	reviews review.Repository,
	cat catalog.Lookup,
	notifier notify.Notifier,
	rewards *referral.Engine,
	attempts *ratelimit.Limiter,
) Service {
	return &service{
		repo:     repo,
		reviews:  reviews,
		catalog:  cat,
		notifier: notifier,
		rewards:  rewards,
		attempts: attempts,
	}
}

func (s *service) AcceptReview(ctx context.Context, reviewID int64) (*Order, error) {
	log := logger.FromCtx(ctx).With(zap.Int64("review_id", reviewID))

	req, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if req.Status != review.StatusPending {
		return nil, ErrReviewResolved
	}

	// Re-price lines at the current catalog price; the snapshot price is
	// what the customer saw, not what the order bills.
	var items []Line
	for _, line := range req.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			log.Warn("snapshot product gone from catalog, line dropped",
				zap.Int64("product_id", line.ProductID),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, Line{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.UnitPrice,
		})
	}

	deliveryCode := utils.GenerateDeliveryCode()
	o := &Order{
		UserID:       req.UserID,
		OrderCode:    utils.GenerateOrderCode(),
		Status:       StatusProcessing,
		Deliver:      req.Deliver,
		LocationID:   req.LocationID,
		DeliverySlot: req.DeliverySlot,
		DeliveryCode: &deliveryCode,
		Items:        items,
	}

	if err := s.repo.AcceptReviewTx(ctx, req, o); err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Your order is accepted. Your Order Code: %s.", o.OrderCode)
	if o.Deliver {
		body += fmt.Sprintf(" Delivery Code: %s.", deliveryCode)
	}
	s.notifier.Notify(ctx, req.Email, "Order Accepted", body)

	return o, nil
}

func (s *service) RejectReview(ctx context.Context, reviewID int64, reason string) error {
	req, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}

	if err := s.reviews.MarkRejected(ctx, reviewID, strings.TrimSpace(reason)); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return ErrReviewResolved
		}
		return err
	}

	s.notifier.Notify(ctx, req.Email, "Order Rejected", fmt.Sprintf(
		"Your order was rejected. Reason: %s. You can try again. If something is wrong contact support.",
		reason,
	))
	return nil
}

func (s *service) Transition(ctx context.Context, orderID int64, to Status, deliveryCode string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.Int64("order_id", orderID),
		zap.String("target_status", string(to)),
	)

	if !ValidStatus(to) {
		return nil, &IllegalTransitionError{From: "", To: to}
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, to) {
		return nil, &IllegalTransitionError{From: o.Status, To: to}
	}

	firstDelivery := false
	if to == StatusDelivered {
		if o.Deliver {
			if err := s.verifyDeliveryCode(o, deliveryCode); err != nil {
				return nil, err
			}
		}
		firstDelivery = o.CompletedAt == nil
	}

	swapped, err := s.repo.Transition(ctx, o.ID, o.Status, to, firstDelivery)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Lost the race: reload and report the transition that is now
		// illegal instead of silently coercing.
		current, loadErr := s.repo.GetByID(ctx, orderID)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, &IllegalTransitionError{From: current.Status, To: to}
	}

	o.Status = to
	log.Info("order transitioned", zap.String("order_code", o.OrderCode))

	s.afterTransition(ctx, o, to, firstDelivery)
	return o, nil
}

// NewDeliveryAttemptLimiter builds the limiter guarding delivery-code
// verification: five guesses per order, then one more per minute. This
// is deliberately separate from the request rate limiter so login and
// checkout traffic cannot eat into the attempt budget.
func NewDeliveryAttemptLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.NewMemoryStore(10*time.Minute), rate.Every(time.Minute), 5)
}

// verifyDeliveryCode guards the delivered transition for hand-delivered
// orders. Wrong guesses are capped per order; the cap is generous for a
// staff member reading a code off a phone, hostile to enumeration.
func (s *service) verifyDeliveryCode(o *Order, presented string) error {
	if !s.attempts.Allow("order:"+strconv.FormatInt(o.ID, 10), "deliver_verify") {
		return ErrTooManyAttempts
	}

	presented = strings.TrimSpace(presented)
	if presented == "" || o.DeliveryCode == nil || presented != *o.DeliveryCode {
		return ErrDeliveryCodeMismatch
	}
	return nil
}

// afterTransition runs the fire-and-forget side effects of entering a
// state. Only the referral credit can surface an error, and the status
// change stands regardless; the engine is idempotent so a retry is safe.
func (s *service) afterTransition(ctx context.Context, o *Order, to Status, firstDelivery bool) {
	log := logger.FromCtx(ctx).With(zap.Int64("order_id", o.ID))

	email := o.CustomerEmail
	switch to {
	case StatusQueued:
		s.notifier.Notify(ctx, email, "Your order is coming soon!",
			"Your order entered the sending line and will be on the way soon.")
	case StatusReady:
		if !o.Deliver {
			s.notifier.Notify(ctx, email, "Your order is ready for pickup",
				"Your order is ready for pickup. Please visit the counter with your order code.")
		}
	case StatusDelivered:
		if firstDelivery {
			if err := s.rewards.OnOrderDelivered(ctx, o.UserID); err != nil {
				log.Error("referral credit failed, will apply on retry", zap.Error(err))
			}
		}
	}
}

func (s *service) GetDetail(ctx context.Context, orderID int64) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	userID, _ := utils.GetUserIDFromContext(ctx)
	if !utils.IsStaff(ctx) && o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) ListMine(ctx context.Context) ([]*Order, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListAll(ctx context.Context) ([]*Order, error) {
	return s.repo.ListAll(ctx)
}
