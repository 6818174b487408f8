package billing

import (
	"time"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names published by the billing context
const (
	EventTypePaymentRecorded = "billing.payment.recorded"
	EventTypePaymentEdited   = "billing.payment.edited"
	EventTypePaymentDeleted  = "billing.payment.deleted"
)

// PaymentRecordedEvent is raised when a new payment is added to a student
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	StudentID      uuid.UUID       `json:"student_id"`
	StudentName    string          `json:"student_name"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	PaymentType    PaymentType     `json:"payment_type"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Amount         decimal.Decimal `json:"amount"`
	AcademicYear   int             `json:"academic_year"`
	ReferenceMonth *int            `json:"reference_month,omitempty"`
	PaidAt         time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(s *Student, p *PaymentRecord) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, s.ID),
		StudentID:       s.ID,
		StudentName:     s.Name,
		PaymentID:       p.ID,
		PaymentType:     p.Type,
		PaymentMethod:   p.Method,
		Amount:          p.Amount,
		AcademicYear:    p.AcademicYear,
		ReferenceMonth:  p.ReferenceMonth,
		PaidAt:          p.Date,
	}
}

// PaymentEditedEvent is raised when the items of a payment are replaced
type PaymentEditedEvent struct {
	shared.BaseDomainEvent
	StudentID      uuid.UUID       `json:"student_id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	Amount         decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *PaymentEditedEvent) EventType() string {
	return EventTypePaymentEdited
}

// NewPaymentEditedEvent creates a new PaymentEditedEvent
func NewPaymentEditedEvent(s *Student, p *PaymentRecord, previous decimal.Decimal) *PaymentEditedEvent {
	return &PaymentEditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentEdited, s.ID),
		StudentID:       s.ID,
		PaymentID:       p.ID,
		PreviousAmount:  previous,
		Amount:          p.Amount,
	}
}

// PaymentDeletedEvent is raised when an administrator removes a payment
type PaymentDeletedEvent struct {
	shared.BaseDomainEvent
	StudentID uuid.UUID       `json:"student_id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *PaymentDeletedEvent) EventType() string {
	return EventTypePaymentDeleted
}

// NewPaymentDeletedEvent creates a new PaymentDeletedEvent
func NewPaymentDeletedEvent(s *Student, p PaymentRecord) *PaymentDeletedEvent {
	return &PaymentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentDeleted, s.ID),
		StudentID:       s.ID,
		PaymentID:       p.ID,
		Amount:          p.Amount,
	}
}
