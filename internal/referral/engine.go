package referral

import (
	"context"
	"fmt"

	"freshbread-be/internal/logger"
	"freshbread-be/internal/notify"

	"go.uber.org/zap"
)

// Engine issues milestone discount codes when referred customers get
// their orders delivered. Safe to trigger more than once for the same
// event: issuance is the difference between milestone math and codes
// already on record.
type Engine struct {
	repo     Repository
	notifier notify.Notifier
}

func NewEngine(repo Repository, notifier notify.Notifier) *Engine {
	return &Engine{repo: repo, notifier: notifier}
}

// OnOrderDelivered credits the customer's referrers and mails out any
// newly earned reward codes. Returns the error from the credit
// transaction itself; notification failures are swallowed downstream.
func (e *Engine) OnOrderDelivered(ctx context.Context, customerID uint) error {
	issued, err := e.repo.CreditDelivered(ctx, customerID)
	if err != nil {
		return fmt.Errorf("credit referrals for customer %d: %w", customerID, err)
	}

	log := logger.FromCtx(ctx)
	for _, reward := range issued {
		log.Info("referral reward issued",
			zap.Uint("owner_id", reward.OwnerID),
			zap.String("code", reward.Code),
			zap.Int("completed_count", reward.CompletedCount),
		)

		body := fmt.Sprintf(
			"Thank you for sharing Fresh Bread with friends. "+
				"You earned a $%s discount because your referrals completed their orders.\n"+
				"Your discount code: %s\nThis code expires in 14 days.",
			reward.Amount.StringFixed(2), reward.Code,
		)
		e.notifier.Notify(ctx, reward.OwnerEmail,
			fmt.Sprintf("Thank you! Your $%s discount code", reward.Amount.StringFixed(2)),
			body,
		)
	}

	return nil
}
