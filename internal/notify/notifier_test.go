package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/pkg/models"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func testBill() models.Bill {
	return models.Bill{
		ID:           "B1",
		CustomerName: "Alice",
		Items: []models.Item{
			{Name: "Soap", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2},
			{Name: "Pen", UnitPrice: decimal.RequireFromString("1"), Quantity: 5},
		},
		TotalAmount:     decimal.RequireFromString("10"),
		CreatedAt:       time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		CodeArtifactRef: "bill_B1_Alice.png",
	}
}

func TestDefaultTemplate(t *testing.T) {
	subject, body, err := DefaultTemplate().Render(testBill())
	require.NoError(t, err)

	assert.Equal(t, "Your bill B1", subject)
	assert.Contains(t, body, "Hello Alice,")
	assert.Contains(t, body, "Date: 2026-10-19T10:00:00Z")
	assert.Contains(t, body, "- Soap (Price: 2.50, Quantity: 2)\n- Pen (Price: 1.00, Quantity: 5)")
	assert.Contains(t, body, "Total: 10.00")
	assert.Contains(t, body, "attached QR code")
}

func TestNewTemplateRejectsBadSource(t *testing.T) {
	_, err := NewTemplate("{{.ID", "body")
	assert.Error(t, err)
}

func TestNotify(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, nil)

	ok := n.Notify(context.Background(), testBill(), "alice@example.com")
	require.True(t, ok)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Your bill B1", msg.Subject)
	assert.Equal(t, "bill_B1_Alice.png", msg.Attachment)
}

func TestNotifyFailureIsSwallowed(t *testing.T) {
	n := NewNotifier(&recordingSender{err: errors.New("connection refused")}, nil)
	assert.False(t, n.Notify(context.Background(), testBill(), "alice@example.com"))
}

func TestNotifyNoop(t *testing.T) {
	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Notify(context.Background(), testBill(), "a@example.com"))
	nilNotifier.Go(context.Background(), testBill(), "a@example.com")
	nilNotifier.Wait()

	sender := &recordingSender{}
	n := NewNotifier(sender, nil)
	assert.False(t, n.Notify(context.Background(), testBill(), ""))
	assert.Empty(t, sender.sent)
}

func TestGoAndWait(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 5; i++ {
		n.Go(ctx, testBill(), "alice@example.com")
	}
	cancel()
	n.Wait()

	assert.Len(t, sender.sent, 5)
}

func TestSMTPSenderNotConfigured(t *testing.T) {
	err := NewSMTPSender(SMTPConfig{}).Send(context.Background(), Message{To: "a@example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
