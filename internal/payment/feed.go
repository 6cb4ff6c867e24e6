package payment

import "context"

// EmptyFeed is the MailboxFeed used when no mailbox is configured. The
// poller still runs, logs, and finds nothing; staff review proceeds
// purely from the queue.
type EmptyFeed struct{}

func (EmptyFeed) FetchRecent(ctx context.Context, sender string) ([]Message, error) {
	return nil, nil
}
