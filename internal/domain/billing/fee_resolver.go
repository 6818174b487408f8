package billing

import (
	"fmt"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/domain/shared/valueobject"
)

// ErrFeeNotConfigured is returned when a charge type has neither a class
// override nor a global default.
var ErrFeeNotConfigured = shared.NewReasonError(shared.ErrInvalidInput.Code, "FEE_NOT_CONFIGURED", "fee is not configured")

// FeeResolver resolves the effective price of a charge for a student.
// It is stateless; the zero value is ready to use.
type FeeResolver struct{}

// NewFeeResolver creates a FeeResolver
func NewFeeResolver() FeeResolver {
	return FeeResolver{}
}

// Resolve returns the fee the student pays for a charge type.
//
// The base fee is the row for the student's class when the class overrides that
// charge type, otherwise the global default. A FULL_EXEMPT profile always yields
// zero; a PARTIAL_DISCOUNT profile reduces the base only for its affected types.
func (FeeResolver) Resolve(s *Student, t ChargeType, settings FinancialSettings) (valueobject.Money, error) {
	currency := settings.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if s == nil {
		return valueobject.Money{}, shared.InvalidInput("student is required to resolve a fee")
	}
	if !t.IsValid() {
		return valueobject.Money{}, shared.InvalidInput(fmt.Sprintf("invalid charge type %q", t))
	}
	if s.Profile.Status == ProfileFullExempt {
		return valueobject.Zero(currency), nil
	}

	base, ok := settings.ClassFee(s.DesiredClass, t)
	if !ok {
		base, ok = settings.DefaultFee(t)
	}
	if !ok {
		return valueobject.Money{}, ErrFeeNotConfigured.WithMessage(
			fmt.Sprintf("no %s fee configured for class %q", t, s.DesiredClass))
	}
	if base.IsNegative() {
		return valueobject.Money{}, shared.InvalidInput(fmt.Sprintf("%s fee cannot be negative", t))
	}

	fee := valueobject.MustMoney(base, currency)
	if s.Profile.Status == ProfilePartialDiscount && s.Profile.Affects(t) {
		fee = fee.ApplyDiscount(s.Profile.DiscountPercentage)
	}
	return fee, nil
}
