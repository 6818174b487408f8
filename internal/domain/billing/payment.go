package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType classifies what a payment settles
type PaymentType string

const (
	PaymentTypeEnrollment PaymentType = "ENROLLMENT"
	PaymentTypeRenewal    PaymentType = "RENEWAL"
	PaymentTypeMonthly    PaymentType = "MONTHLY"
	PaymentTypeUniform    PaymentType = "UNIFORM"
	PaymentTypeMaterial   PaymentType = "MATERIAL"
	PaymentTypeFine       PaymentType = "FINE"
)

// IsValid returns true if the payment type is valid
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeEnrollment, PaymentTypeRenewal, PaymentTypeMonthly,
		PaymentTypeUniform, PaymentTypeMaterial, PaymentTypeFine:
		return true
	}
	return false
}

// IsRegistration reports whether the payment is an enrollment or renewal
func (t PaymentType) IsRegistration() bool {
	return t == PaymentTypeEnrollment || t == PaymentTypeRenewal
}

// ChargeType returns the charge type the payment settles
func (t PaymentType) ChargeType() ChargeType {
	return ChargeType(t)
}

// Label returns a human-readable name
func (t PaymentType) Label() string {
	switch t {
	case PaymentTypeEnrollment:
		return "Enrollment"
	case PaymentTypeRenewal:
		return "Renewal"
	case PaymentTypeMonthly:
		return "Monthly fee"
	case PaymentTypeUniform:
		return "Uniform"
	case PaymentTypeMaterial:
		return "Material"
	case PaymentTypeFine:
		return "Fine"
	}
	return string(t)
}

// PaymentMethod is how the money was received
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodMobile       PaymentMethod = "MOBILE"
)

// IsValid returns true if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodMobile:
		return true
	}
	return false
}

// Label returns a human-readable name
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodCash:
		return "cash"
	case PaymentMethodBankTransfer:
		return "bank transfer"
	case PaymentMethodCard:
		return "card"
	case PaymentMethodMobile:
		return "mobile money"
	}
	return strings.ToLower(string(m))
}

// PaymentItem is one line of a receipt
type PaymentItem struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// PaymentRecord is money received from a student.
// Amount always equals the sum of Items when items are present.
type PaymentRecord struct {
	ID             uuid.UUID       `json:"id"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Type           PaymentType     `json:"type"`
	Method         PaymentMethod   `json:"method"`
	AcademicYear   int             `json:"academic_year"`
	ReferenceMonth *int            `json:"reference_month,omitempty"`
	Items          []PaymentItem   `json:"items"`
	ExtraChargeIDs []uuid.UUID     `json:"extra_charge_ids"`
}

// PaymentInput carries the data needed to create a payment record
type PaymentInput struct {
	Date           time.Time
	Amount         decimal.Decimal
	Type           PaymentType
	Method         PaymentMethod
	AcademicYear   int
	ReferenceMonth *int
	Items          []PaymentItem
	ExtraChargeIDs []uuid.UUID
}

// NewPaymentRecord creates a validated payment record.
// When items are given the amount is derived from them; a non-zero input amount
// that disagrees with the items is rejected.
func NewPaymentRecord(in PaymentInput) (*PaymentRecord, error) {
	p := &PaymentRecord{
		ID:             uuid.New(),
		Date:           in.Date,
		Amount:         in.Amount,
		Type:           in.Type,
		Method:         in.Method,
		AcademicYear:   in.AcademicYear,
		ReferenceMonth: in.ReferenceMonth,
		Items:          append([]PaymentItem{}, in.Items...),
		ExtraChargeIDs: append([]uuid.UUID{}, in.ExtraChargeIDs...),
	}
	if p.Method == "" {
		p.Method = PaymentMethodCash
	}
	if len(p.Items) > 0 {
		sum := sumItems(p.Items)
		if !in.Amount.IsZero() && !in.Amount.Equal(sum) {
			return nil, shared.InvalidInput(fmt.Sprintf(
				"payment amount %s does not match the sum of its items %s", in.Amount, sum))
		}
		p.Amount = sum
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the record's invariants
func (p *PaymentRecord) Validate() error {
	if p.Date.IsZero() {
		return shared.InvalidInput("payment date is required")
	}
	if !p.Type.IsValid() {
		return shared.InvalidInput(fmt.Sprintf("invalid payment type %q", p.Type))
	}
	if !p.Method.IsValid() {
		return shared.InvalidInput(fmt.Sprintf("invalid payment method %q", p.Method))
	}
	if p.AcademicYear < 1900 || p.AcademicYear > 9999 {
		return shared.InvalidInput("payment academic year is out of range")
	}
	if p.Amount.IsNegative() {
		return shared.InvalidInput("payment amount cannot be negative")
	}
	if !withinScale(p.Amount) {
		return shared.InvalidInput("payment amount cannot have more than 2 decimal places")
	}
	for _, item := range p.Items {
		if strings.TrimSpace(item.Label) == "" {
			return shared.InvalidInput("payment item label is required")
		}
		if item.Value.IsNegative() {
			return shared.InvalidInput("payment item value cannot be negative")
		}
		if !withinScale(item.Value) {
			return shared.InvalidInput("payment item value cannot have more than 2 decimal places")
		}
	}
	if len(p.Items) > 0 && !p.Amount.Equal(sumItems(p.Items)) {
		return shared.InvalidInput("payment amount must equal the sum of its items")
	}
	if p.Type == PaymentTypeMonthly {
		if p.ReferenceMonth == nil || !validMonth(*p.ReferenceMonth) {
			return shared.InvalidInput("monthly payments need a reference month between 1 and 12")
		}
	} else if p.ReferenceMonth != nil {
		return shared.InvalidInput("only monthly payments carry a reference month")
	}
	return nil
}

// amountScale is the number of decimal places money is stored with
const amountScale = 2

// withinScale reports whether d has no digits past amountScale. Trailing zeros
// such as 10.500 are accepted.
func withinScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(amountScale))
}

// ReplaceItems swaps the receipt lines and recomputes the amount from them
func (p *PaymentRecord) ReplaceItems(items []PaymentItem) error {
	if len(items) == 0 {
		return shared.InvalidInput("an edited payment needs at least one item")
	}
	updated := *p
	updated.Items = append([]PaymentItem{}, items...)
	updated.Amount = sumItems(updated.Items)
	if err := updated.Validate(); err != nil {
		return err
	}
	*p = updated
	return nil
}

// IsFor reports whether the payment is a monthly payment for (year, month)
func (p *PaymentRecord) IsFor(year, month int) bool {
	return p.Type == PaymentTypeMonthly &&
		p.AcademicYear == year &&
		p.ReferenceMonth != nil &&
		*p.ReferenceMonth == month
}

// Description returns the statement label of the payment
func (p *PaymentRecord) Description() string {
	label := fmt.Sprintf("%s payment (%s)", p.Type.Label(), p.Method.Label())
	if p.ReferenceMonth != nil {
		label = fmt.Sprintf("%s - %s", label, time.Month(*p.ReferenceMonth))
	}
	return label
}

func sumItems(items []PaymentItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Value)
	}
	return total
}
