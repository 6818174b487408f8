package billing

import (
	"time"

	"github.com/escola/backend/internal/domain/shared/valueobject"
)

// PenaltyCalculator decides whether a monthly fee is overdue and prices the surcharge
type PenaltyCalculator struct {
	fees FeeResolver
}

// NewPenaltyCalculator creates a PenaltyCalculator
func NewPenaltyCalculator(fees FeeResolver) PenaltyCalculator {
	return PenaltyCalculator{fees: fees}
}

// IsPastDue reports whether the payment window of (year, month) has closed as of asOf.
// It depends only on the calendar, not on any student profile.
func (PenaltyCalculator) IsPastDue(month, year int, settings FinancialSettings, asOf time.Time) bool {
	switch {
	case year < asOf.Year():
		return true
	case year > asOf.Year():
		return false
	}
	current := int(asOf.Month())
	if month != current {
		return month < current
	}
	return asOf.Day() > settings.PaymentLimitDay
}

// IsLate reports whether a penalty applies to the month for this student
func (p PenaltyCalculator) IsLate(s *Student, month, year int, settings FinancialSettings, asOf time.Time) bool {
	if s.Profile.IsPenaltyExempt() {
		return false
	}
	return p.IsPastDue(month, year, settings, asOf)
}

// Surcharge returns the penalty amount charged on a late month, regardless of
// whether the month is actually late.
func (p PenaltyCalculator) Surcharge(s *Student, settings FinancialSettings) (valueobject.Money, error) {
	fee, err := p.fees.Resolve(s, ChargeTypeMonthly, settings)
	if err != nil {
		return valueobject.Money{}, err
	}
	return fee.Percent(settings.LatePenaltyPercent), nil
}

// Penalty returns the surcharge owed for the month, zero when it is not late
func (p PenaltyCalculator) Penalty(s *Student, month, year int, settings FinancialSettings, asOf time.Time) (valueobject.Money, error) {
	if !p.IsLate(s, month, year, settings, asOf) {
		return valueobject.Zero(settings.Currency), nil
	}
	return p.Surcharge(s, settings)
}
