package billing

import (
	"strings"
	"time"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExtraCharge is a one-off debit against a student, such as a damaged book or a
// field trip. Only IsPaid ever changes after creation.
type ExtraCharge struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	ExpenseRef  string          `json:"expense_ref,omitempty"`
	IsPaid      bool            `json:"is_paid"`
}

// NewExtraCharge creates a validated unpaid extra charge
func NewExtraCharge(description string, amount decimal.Decimal, date time.Time, expenseRef string) (*ExtraCharge, error) {
	c := &ExtraCharge{
		ID:          uuid.New(),
		Description: strings.TrimSpace(description),
		Amount:      amount,
		Date:        date,
		ExpenseRef:  expenseRef,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the charge's invariants
func (c *ExtraCharge) Validate() error {
	if c.Description == "" {
		return shared.InvalidInput("extra charge description is required")
	}
	if !c.Amount.IsPositive() {
		return shared.InvalidInput("extra charge amount must be positive")
	}
	if !withinScale(c.Amount) {
		return shared.InvalidInput("extra charge amount cannot have more than 2 decimal places")
	}
	if c.Date.IsZero() {
		return shared.InvalidInput("extra charge date is required")
	}
	return nil
}

// MarkPaid flags the charge as settled
func (c *ExtraCharge) MarkPaid() error {
	if c.IsPaid {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "extra charge is already paid")
	}
	c.IsPaid = true
	return nil
}
