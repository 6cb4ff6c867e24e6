package payment

import (
	"context"
	"fmt"
	"time"

	"freshbread-be/internal/logger"
	"freshbread-be/internal/notify"
	"freshbread-be/internal/review"

	"go.uber.org/zap"
)

// Message is one raw notification pulled from the payment mailbox.
// The IMAP mechanics live behind MailboxFeed; this package only sees
// sender and body.
type Message struct {
	Sender string
	Body   string
}

type MailboxFeed interface {
	// FetchRecent returns recent messages sent from the given address.
	FetchRecent(ctx context.Context, sender string) ([]Message, error)
}

// Poller periodically matches mailbox traffic against pending review
// requests and flags plausible payments for the staff queue. It is a
// triage aid: verdicts never accept an order on their own.
type Poller struct {
	feed     MailboxFeed
	ledger   Ledger
	reviews  review.Repository
	admins   notify.AdminRepository
	interval time.Duration
}

func NewPoller(feed MailboxFeed, ledger Ledger, reviews review.Repository, admins notify.AdminRepository, interval time.Duration) *Poller {
	return &Poller{
		feed:     feed,
		ledger:   ledger,
		reviews:  reviews,
		admins:   admins,
		interval: interval,
	}
}

// Run polls until the context is cancelled. A failed poll is logged and
// retried on the next interval; it never stops the scheduler.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				logger.FromCtx(ctx).Warn("mailbox poll failed", zap.Error(err))
			}
		}
	}
}

// PollOnce analyzes recent mailbox traffic for every pending request.
func (p *Poller) PollOnce(ctx context.Context) error {
	pending, err := p.reviews.ListByStatus(ctx, review.StatusPending)
	if err != nil {
		return fmt.Errorf("list pending reviews: %w", err)
	}

	log := logger.FromCtx(ctx)

	for _, req := range pending {
		msgs, err := p.feed.FetchRecent(ctx, req.Email)
		if err != nil {
			log.Warn("mailbox fetch failed",
				zap.String("sender", req.Email),
				zap.Error(err),
			)
			continue
		}

		for _, msg := range msgs {
			extraction, verdict, err := Analyze(msg.Body, req.TotalDue, func(ref string) (bool, error) {
				return p.ledger.IsUsed(ctx, ref)
			})
			if err != nil {
				log.Warn("payment analysis failed",
					zap.String("sender", msg.Sender),
					zap.Error(err),
				)
				continue
			}

			log.Info("payment email analyzed",
				zap.String("sender", msg.Sender),
				zap.String("reference", extraction.Reference),
				zap.String("amount", extraction.Amount.String()),
				zap.Int("score", extraction.Score),
				zap.String("verdict", string(verdict)),
			)

			if verdict != VerdictOK || extraction.Reference != req.Reference {
				continue
			}

			note := fmt.Sprintf(
				"Bank notification matches request #%d from %s (ref %s, $%s)",
				req.ID, req.Username, req.Reference, extraction.Amount.StringFixed(2),
			)
			if err := p.admins.NotifyAll(ctx, note, fmt.Sprintf("/admin/order_reviews?rid=%d", req.ID)); err != nil {
				log.Warn("admin notify failed", zap.Error(err))
			}
			break
		}
	}

	return nil
}
