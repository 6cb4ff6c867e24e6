package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"freshbread-be/internal/cart"
	"freshbread-be/internal/logger"
	"freshbread-be/internal/notify"
	"freshbread-be/internal/payment"
	"freshbread-be/internal/referral"
	"freshbread-be/internal/review"
	"freshbread-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Step1Input struct {
	DeliverySlot  string `json:"delivery_slot"`
	WantsDelivery bool   `json:"wants_delivery"`
	LocationID    string `json:"location_id"`
	DiscountCode  string `json:"discount_code"`
}

type Step1Result struct {
	Session        Session
	Payable        decimal.Decimal
	DiscountAmount decimal.Decimal

	// ZeroDue is set when a discount covered the whole bill and the
	// checkout was submitted for review on the spot.
	ZeroDue   bool
	Reference string
}

// Instructions is what the payment step shows: where to send the
// transfer and how much.
type Instructions struct {
	Payable        decimal.Decimal
	DiscountAmount decimal.Decimal
	InboxAddress   string
}

type Submission struct {
	RequestID int64
	Reference string
	TotalDue  decimal.Decimal
}

type Service interface {
	SubmitStep1(ctx context.Context, input Step1Input) (*Step1Result, error)
	PaymentInstructions(ctx context.Context) (*Instructions, error)
	ConfirmTransferSent(ctx context.Context) error
	SubmitStep3(ctx context.Context, reference string) (*Submission, error)
	Cancel(ctx context.Context)
}

type Config struct {
	ShippingFee      decimal.Decimal
	InboxAddress     string
	ResubmitCooldown time.Duration
	TempIdentityTTL  time.Duration
}

type service struct {
	store     Store
	repo      Repository
	carts     cart.Provider
	reviews   review.Repository
	ledger    payment.Ledger
	discounts referral.Repository
	admins    notify.AdminRepository
	cfg       Config
}

func NewService(
	store Store,
	repo Repository,
	carts cart.Provider,
	reviews review.Repository,
	ledger payment.Ledger,
	discounts referral.Repository,
	admins notify.AdminRepository,
	cfg Config,
) Service {
	return &service{
		store:     store,
		repo:      repo,
		carts:     carts,
		reviews:   reviews,
		ledger:    ledger,
		discounts: discounts,
		admins:    admins,
		cfg:       cfg,
	}
}

func (s *service) SubmitStep1(ctx context.Context, input Step1Input) (*Step1Result, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, validationf("authentication required")
	}
	email := utils.GetUserEmailFromContext(ctx)

	log := logger.FromCtx(ctx).With(
		zap.Uint("user_id", userID),
		zap.String("method", "SubmitStep1"),
	)

	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(snap.Lines) == 0 {
		return nil, validationf("your cart is empty")
	}

	sess, exists := s.store.Get(userID)
	if !exists {
		identityID, err := s.repo.EnsureTempIdentity(ctx, email, utils.GetUserNameFromContext(ctx), s.cfg.TempIdentityTTL)
		if err != nil {
			return nil, err
		}
		sess = NewSession(identityID)
	}

	var discountID *int64
	discountAmount := decimal.Zero
	if code := strings.ToUpper(strings.TrimSpace(input.DiscountCode)); code != "" {
		dc, err := s.discounts.GetActiveCode(ctx, code, userID)
		if errors.Is(err, referral.ErrCodeNotFound) {
			return nil, validationf("invalid or expired discount code")
		}
		if err != nil {
			return nil, err
		}
		discountID = &dc.ID
		discountAmount = dc.Amount
	}

	var locationID *uuid.UUID
	if input.WantsDelivery {
		id, err := uuid.Parse(input.LocationID)
		if err != nil {
			return nil, validationf("please choose a delivery location")
		}
		loc, err := s.repo.GetOwnedLocation(ctx, id, userID)
		if errors.Is(err, ErrLocationNotFound) {
			return nil, validationf("please choose a delivery location")
		}
		if err != nil {
			return nil, err
		}
		locationID = &loc.ID
	}

	sess, err = sess.WithStep1(input.DeliverySlot, input.WantsDelivery, locationID, discountID, discountAmount)
	if err != nil {
		return nil, err
	}

	payable := Payable(snap.Subtotal, s.shipping(sess), sess.DiscountAmount)

	// A discount covering the whole bill skips the payment steps, but
	// still goes through manual review so abusive stacking can be vetoed.
	if sess.DiscountAmount.IsPositive() && payable.IsZero() {
		sess, _ = sess.WithStep2Complete()

		ref := utils.GenerateReference()
		req, err := s.createRequest(ctx, userID, email, sess, snap, ref, payable)
		if err != nil {
			return nil, err
		}

		s.notifyAdmins(ctx, req, sess.DiscountAmount, true)
		s.finish(ctx, userID, sess)

		log.Info("zero-due checkout submitted",
			zap.Int64("request_id", req.ID),
			zap.String("reference", ref),
		)
		return &Step1Result{
			Session:        sess.WithSubmitted(),
			Payable:        payable,
			DiscountAmount: sess.DiscountAmount,
			ZeroDue:        true,
			Reference:      ref,
		}, nil
	}

	s.store.Put(userID, sess)
	log.Debug("step 1 completed", zap.String("payable", payable.StringFixed(2)))

	return &Step1Result{
		Session:        sess,
		Payable:        payable,
		DiscountAmount: sess.DiscountAmount,
	}, nil
}

func (s *service) PaymentInstructions(ctx context.Context) (*Instructions, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, validationf("authentication required")
	}

	sess, exists := s.store.Get(userID)
	if !exists {
		return nil, &StepError{Incomplete: Step1}
	}
	sess, err := sess.EnterStep2()
	if err != nil {
		return nil, err
	}

	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Instructions{
		Payable:        Payable(snap.Subtotal, s.shipping(sess), sess.DiscountAmount),
		DiscountAmount: sess.DiscountAmount,
		InboxAddress:   s.cfg.InboxAddress,
	}, nil
}

func (s *service) ConfirmTransferSent(ctx context.Context) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return validationf("authentication required")
	}

	sess, exists := s.store.Get(userID)
	if !exists {
		return &StepError{Incomplete: Step1}
	}
	sess, err := sess.WithStep2Complete()
	if err != nil {
		return err
	}

	s.store.Put(userID, sess)
	return nil
}

func (s *service) SubmitStep3(ctx context.Context, reference string) (*Submission, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, validationf("authentication required")
	}
	email := utils.GetUserEmailFromContext(ctx)

	log := logger.FromCtx(ctx).With(
		zap.Uint("user_id", userID),
		zap.String("method", "SubmitStep3"),
	)

	sess, exists := s.store.Get(userID)
	if !exists {
		return nil, &StepError{Incomplete: Step1}
	}
	sess, err := sess.EnterStep3()
	if err != nil {
		return nil, err
	}

	reference = strings.ToUpper(strings.TrimSpace(reference))
	if !ValidReference(reference) {
		return nil, validationf("invalid reference number")
	}

	used, err := s.ledger.IsUsed(ctx, reference)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, validationf("wrong reference number")
	}

	recent, err := s.reviews.HasRecentPending(ctx, userID, time.Now().Add(-s.cfg.ResubmitCooldown))
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, ErrRateLimited
	}

	pending, err := s.reviews.HasPendingReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, validationf("this reference number is already under review")
	}

	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(snap.Lines) == 0 {
		return nil, validationf("your cart is empty")
	}

	total := Payable(snap.Subtotal, s.shipping(sess), sess.DiscountAmount)
	req, err := s.createRequest(ctx, userID, email, sess, snap, reference, total)
	if err != nil {
		return nil, err
	}

	s.notifyAdmins(ctx, req, sess.DiscountAmount, false)
	s.finish(ctx, userID, sess)

	log.Info("checkout submitted for review",
		zap.Int64("request_id", req.ID),
		zap.String("reference", reference),
	)

	return &Submission{
		RequestID: req.ID,
		Reference: reference,
		TotalDue:  total,
	}, nil
}

// Cancel clears all checkout state unconditionally. Already-submitted
// review requests are untouched; only staff can resolve those.
func (s *service) Cancel(ctx context.Context) {
	if userID, ok := utils.GetUserIDFromContext(ctx); ok {
		s.store.Delete(userID)
	}
}

func (s *service) shipping(sess Session) decimal.Decimal {
	if sess.WantsDelivery {
		return s.cfg.ShippingFee
	}
	return decimal.Zero
}

func (s *service) createRequest(ctx context.Context, userID uint, email string, sess Session, snap *cart.Snapshot, reference string, totalDue decimal.Decimal) (*review.Request, error) {
	items := make([]review.SnapshotLine, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		items = append(items, review.SnapshotLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	var slot *string
	if sess.DeliverySlot != "" {
		slot = &sess.DeliverySlot
	}

	req := &review.Request{
		UserID:         userID,
		Email:          email,
		Reference:      reference,
		TotalDue:       totalDue,
		Deliver:        sess.WantsDelivery,
		LocationID:     sess.DeliveryLocationID,
		DeliverySlot:   slot,
		Items:          items,
		DiscountCodeID: sess.DiscountCodeID,
		DiscountAmount: sess.DiscountAmount,
	}
	if err := s.reviews.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// notifyAdmins is a side effect, never a failure, so errors are logged
// and dropped.
func (s *service) notifyAdmins(ctx context.Context, req *review.Request, discount decimal.Decimal, zeroDue bool) {
	kind := "order"
	if zeroDue {
		kind = "free order"
	}
	msg := fmt.Sprintf("New %s request (ref %s)", kind, req.Reference)
	if discount.IsPositive() {
		msg += fmt.Sprintf(" - discount used $%s", discount.StringFixed(2))
	}
	if err := s.admins.NotifyAll(ctx, msg, fmt.Sprintf("/admin/order_reviews?rid=%d", req.ID)); err != nil {
		logger.FromCtx(ctx).Warn("admin notify failed", zap.Error(err))
	}
}

// finish clears checkout state after a successful submission. Safe to
// call twice.
func (s *service) finish(ctx context.Context, userID uint, sess Session) {
	if err := s.carts.Clear(ctx, userID); err != nil {
		logger.FromCtx(ctx).Warn("cart clear failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	s.store.Delete(userID)
}
