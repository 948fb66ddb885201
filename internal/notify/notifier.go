// Package notify emails bill receipts to customers.
//
// Notification is best effort: a failed send is logged and never affects the
// bill, which is already durable by the time a notification is attempted.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"billbook/internal/logger"
	"billbook/pkg/models"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 30 * time.Second

// Notifier renders and sends receipts. A nil *Notifier is a valid no-op.
type Notifier struct {
	sender   Sender
	template *Template
	timeout  time.Duration
	log      zerolog.Logger

	wg sync.WaitGroup
}

// NewNotifier returns a notifier that delivers through sender. A nil tmpl
// selects DefaultTemplate.
func NewNotifier(sender Sender, tmpl *Template) *Notifier {
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	return &Notifier{
		sender:   sender,
		template: tmpl,
		timeout:  DefaultTimeout,
		log:      logger.WithComponent("notify"),
	}
}

// Notify sends the receipt for bill to recipient and reports whether it was
// delivered. Failures are logged, not returned.
func (n *Notifier) Notify(ctx context.Context, bill models.Bill, recipient string) bool {
	if n == nil || n.sender == nil || recipient == "" {
		return false
	}

	log := n.log.With().Str("bill_id", bill.ID).Str("recipient", recipient).Logger()

	subject, body, err := n.template.Render(bill)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render receipt email")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	msg := Message{
		To:         recipient,
		Subject:    subject,
		Body:       body,
		Attachment: bill.CodeArtifactRef,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		log.Error().Err(err).Msg("Failed to send receipt email")
		return false
	}

	log.Info().Msg("Receipt email sent")
	return true
}

// Go sends the receipt in the background. Call Wait before exiting to let
// pending sends finish.
func (n *Notifier) Go(ctx context.Context, bill models.Bill, recipient string) {
	if n == nil || n.sender == nil || recipient == "" {
		return
	}

	bill = bill.Clone()
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.Notify(context.WithoutCancel(ctx), bill, recipient)
	}()
}

// Wait blocks until every send started by Go has finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
