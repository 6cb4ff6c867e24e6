package notify

import (
	"context"

	"freshbread-be/internal/logger"

	"go.uber.org/zap"
)

// Notifier delivers a message to a single recipient. Implementations are
// fire-and-forget: delivery failures are logged, never propagated, so a
// broken mail relay cannot roll back a state transition.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string)
}

// Sender is the outbound delivery transport. The real SMTP wiring lives
// outside this repo; tests and local runs use the log sender below.
type Sender interface {
	Send(recipient, subject, body string) error
}

type notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) Notifier {
	return &notifier{sender: sender}
}

func (n *notifier) Notify(ctx context.Context, recipient, subject, body string) {
	if recipient == "" {
		return
	}
	if err := n.sender.Send(recipient, subject, body); err != nil {
		logger.FromCtx(ctx).Warn("notification send failed",
			zap.String("recipient", recipient),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

// LogSender writes outbound mail to the log instead of a relay.
type LogSender struct{}

func (LogSender) Send(recipient, subject, body string) error {
	logger.L().Info("outbound mail",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
