package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptNotification is the message handed to the guardian messaging channel
type ReceiptNotification struct {
	StudentID   uuid.UUID
	StudentName string
	PaymentID   uuid.UUID
	Kind        string
	Amount      decimal.Decimal
	Subject     string
	Body        string
	OccurredAt  time.Time
}

// Notifier delivers receipt notifications
type Notifier interface {
	Notify(ctx context.Context, n ReceiptNotification) error
}

// LogNotifier writes notifications to the log. Used when no messaging
// channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification
func (n *LogNotifier) Notify(_ context.Context, msg ReceiptNotification) error {
	n.logger.Info("receipt notification",
		zap.String("student_id", msg.StudentID.String()),
		zap.String("payment_id", msg.PaymentID.String()),
		zap.String("kind", msg.Kind),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// PaymentNotificationHandler turns payment events into guardian notifications
type PaymentNotificationHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewPaymentNotificationHandler creates a new handler for payment events
func NewPaymentNotificationHandler(notifier Notifier, logger *zap.Logger) *PaymentNotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentNotificationHandler{notifier: notifier, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentNotificationHandler) EventTypes() []string {
	return []string{
		billing.EventTypePaymentRecorded,
		billing.EventTypePaymentEdited,
		billing.EventTypePaymentDeleted,
	}
}

// Handle builds and sends the notification for a payment event
func (h *PaymentNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var n ReceiptNotification
	switch e := event.(type) {
	case *billing.PaymentRecordedEvent:
		n = ReceiptNotification{
			StudentID:   e.StudentID,
			StudentName: e.StudentName,
			PaymentID:   e.PaymentID,
			Kind:        "receipt",
			Amount:      e.Amount,
			Subject:     fmt.Sprintf("Payment received: %s", e.PaymentType.Label()),
			Body: fmt.Sprintf("We received %s by %s for %s, academic year %d.",
				e.Amount.StringFixed(2), e.PaymentMethod.Label(), e.StudentName, e.AcademicYear),
		}
		if e.ReferenceMonth != nil {
			n.Body = fmt.Sprintf("%s Reference month: %s.", n.Body, time.Month(*e.ReferenceMonth))
		}
	case *billing.PaymentEditedEvent:
		n = ReceiptNotification{
			StudentID: e.StudentID,
			PaymentID: e.PaymentID,
			Kind:      "correction",
			Amount:    e.Amount,
			Subject:   "Payment corrected",
			Body: fmt.Sprintf("A payment was corrected from %s to %s.",
				e.PreviousAmount.StringFixed(2), e.Amount.StringFixed(2)),
		}
	case *billing.PaymentDeletedEvent:
		n = ReceiptNotification{
			StudentID: e.StudentID,
			PaymentID: e.PaymentID,
			Kind:      "cancellation",
			Amount:    e.Amount,
			Subject:   "Payment cancelled",
			Body:      fmt.Sprintf("A payment of %s was cancelled.", e.Amount.StringFixed(2)),
		}
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	n.OccurredAt = event.OccurredAt()

	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to send receipt notification",
			zap.String("student_id", n.StudentID.String()),
			zap.String("payment_id", n.PaymentID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
