package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"creditwatch/pkg/storage"
)

// Notifier fans a threshold alert out to every registered recipient.
type Notifier struct {
	sender     Sender
	recipients storage.RecipientStore
	pageLimit  int
	logger     *slog.Logger
}

// NewNotifier creates a notifier that reads recipients from the given store.
// pageLimit bounds how many recipients are loaded per alert; a non-positive
// value loads all of them.
func NewNotifier(sender Sender, recipients storage.RecipientStore, pageLimit int, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:     sender,
		recipients: recipients,
		pageLimit:  pageLimit,
		logger:     logger.With("component", "notify"),
	}
}

// Notify sends the alert to every registered recipient and returns one
// outcome per recipient. Attempts are independent: a failed send is logged
// and recorded but never stops delivery to the remaining recipients, and
// never surfaces as an error to the caller.
func (n *Notifier) Notify(ctx context.Context, alert Alert) ([]SendOutcome, error) {
	emails, err := n.recipients.ListRecipients(ctx, n.pageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	if len(emails) == 0 {
		n.logger.Warn("threshold crossed but no recipients registered",
			"cycle_id", alert.CycleID,
			"remaining_credits", alert.RemainingCredits,
		)
		return nil, nil
	}

	subject, body := formatAlert(alert)

	outcomes := make([]SendOutcome, 0, len(emails))
	for _, to := range emails {
		err := n.sender.Send(to, subject, body)
		outcomes = append(outcomes, SendOutcome{Recipient: to, Err: err})

		if err != nil {
			n.logger.Error("alert delivery failed",
				"cycle_id", alert.CycleID,
				"recipient", to,
				"error", err,
			)
			continue
		}
		n.logger.Info("alert delivered",
			"cycle_id", alert.CycleID,
			"recipient", to,
		)
	}

	return outcomes, nil
}

// formatAlert renders the plaintext subject and body for an alert.
func formatAlert(a Alert) (subject, body string) {
	subject = fmt.Sprintf("Credit alert: balance $%.2f at or below threshold $%.2f",
		a.RemainingCredits, a.Threshold)

	body = fmt.Sprintf(
		"Your remaining API credit balance has fallen to $%.2f, which is at or below\n"+
			"the configured alert threshold of $%.2f.\n"+
			"\n"+
			"Checked at: %s\n"+
			"Cycle:      %s\n"+
			"\n"+
			"Top up your credits or raise the threshold to silence these alerts.\n",
		a.RemainingCredits,
		a.Threshold,
		a.CheckedAt.UTC().Format(time.RFC3339),
		a.CycleID,
	)
	return subject, body
}
