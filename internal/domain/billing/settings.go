package billing

import (
	"fmt"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var (
	// DefaultPaidEpsilon is the rounding tolerance under which a month counts as paid
	DefaultPaidEpsilon = decimal.NewFromInt(1)
	// DefaultDebtTolerance is the yearly shortfall tolerated before renewal is blocked
	DefaultDebtTolerance = decimal.NewFromInt(500)
)

// Tolerances groups the empirical thresholds of the engine.
// Both are product choices, not derived values, and are configurable.
type Tolerances struct {
	PaidEpsilon   decimal.Decimal `json:"paid_epsilon"`
	DebtTolerance decimal.Decimal `json:"debt_tolerance"`
}

// DefaultTolerances returns the thresholds the school has historically used
func DefaultTolerances() Tolerances {
	return Tolerances{
		PaidEpsilon:   DefaultPaidEpsilon,
		DebtTolerance: DefaultDebtTolerance,
	}
}

// ClassFeeRow overrides global fees for one class level.
// Only the charge types present in the row are overridden.
type ClassFeeRow map[ChargeType]decimal.Decimal

// FinancialSettings is the school-wide price list
type FinancialSettings struct {
	Currency           valueobject.Currency   `json:"currency"`
	EnrollmentFee      decimal.Decimal        `json:"enrollment_fee"`
	RenewalFee         decimal.Decimal        `json:"renewal_fee"`
	MonthlyFee         decimal.Decimal        `json:"monthly_fee"`
	ExamFee            decimal.Decimal        `json:"exam_fee"`
	ClassSpecificFees  map[string]ClassFeeRow `json:"class_specific_fees"`
	PaymentLimitDay    int                    `json:"payment_limit_day"`
	LatePenaltyPercent decimal.Decimal        `json:"late_penalty_percent"`
	Tolerances         Tolerances             `json:"tolerances"`
	// DefaultStartMonth and DefaultEndMonth describe the calendar of a year
	// that has no AcademicYear record.
	DefaultStartMonth int `json:"default_start_month"`
	DefaultEndMonth   int `json:"default_end_month"`
}

// Normalize replaces absent containers with empty ones
func (s *FinancialSettings) Normalize() {
	if s.ClassSpecificFees == nil {
		s.ClassSpecificFees = make(map[string]ClassFeeRow)
	}
	for class, row := range s.ClassSpecificFees {
		if row == nil {
			s.ClassSpecificFees[class] = ClassFeeRow{}
		}
	}
	if s.Currency == "" {
		s.Currency = valueobject.DefaultCurrency
	}
}

// Validate checks the price list for values the engine cannot work with
func (s FinancialSettings) Validate() error {
	if !s.Currency.IsValid() {
		return shared.InvalidInput(fmt.Sprintf("unsupported currency %q", s.Currency))
	}
	for name, v := range map[string]decimal.Decimal{
		"enrollment fee":       s.EnrollmentFee,
		"renewal fee":          s.RenewalFee,
		"monthly fee":          s.MonthlyFee,
		"exam fee":             s.ExamFee,
		"late penalty percent": s.LatePenaltyPercent,
		"paid epsilon":         s.Tolerances.PaidEpsilon,
		"debt tolerance":       s.Tolerances.DebtTolerance,
	} {
		if v.IsNegative() {
			return shared.InvalidInput(name + " cannot be negative")
		}
		if !withinScale(v) {
			return shared.InvalidInput(name + " cannot have more than 2 decimal places")
		}
	}
	for class, row := range s.ClassSpecificFees {
		for t, v := range row {
			if !t.IsValid() {
				return shared.InvalidInput(fmt.Sprintf("class %q has an invalid charge type %q", class, t))
			}
			if v.IsNegative() {
				return shared.InvalidInput(fmt.Sprintf("class %q has a negative %s fee", class, t))
			}
			if !withinScale(v) {
				return shared.InvalidInput(fmt.Sprintf("class %q %s fee cannot have more than 2 decimal places", class, t))
			}
		}
	}
	if s.PaymentLimitDay < 1 || s.PaymentLimitDay > 31 {
		return shared.InvalidInput("payment limit day must be between 1 and 31")
	}
	if s.DefaultStartMonth != 0 || s.DefaultEndMonth != 0 {
		if !validMonth(s.DefaultStartMonth) || !validMonth(s.DefaultEndMonth) || s.DefaultStartMonth > s.DefaultEndMonth {
			return shared.InvalidInput("default academic calendar is invalid")
		}
	}
	return nil
}

// DefaultFee returns the global fee for a charge type.
// Uniform, material and fine charges have no global default.
func (s FinancialSettings) DefaultFee(t ChargeType) (decimal.Decimal, bool) {
	switch t {
	case ChargeTypeEnrollment:
		return s.EnrollmentFee, true
	case ChargeTypeRenewal:
		return s.RenewalFee, true
	case ChargeTypeMonthly:
		return s.MonthlyFee, true
	case ChargeTypeExam:
		return s.ExamFee, true
	}
	return decimal.Zero, false
}

// ClassFee returns the class-specific fee for a charge type, if one exists
func (s FinancialSettings) ClassFee(class string, t ChargeType) (decimal.Decimal, bool) {
	row, ok := s.ClassSpecificFees[class]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := row[t]
	return v, ok
}

// WithTolerances returns a copy of the settings using the given thresholds
func (s FinancialSettings) WithTolerances(t Tolerances) FinancialSettings {
	s.Tolerances = t
	return s
}

// CalendarFor returns the academic year record for year, falling back to the
// default calendar when no record exists.
func (s FinancialSettings) CalendarFor(year int, years []AcademicYear) AcademicYear {
	for _, y := range years {
		if y.Year == year {
			return y
		}
	}
	start, end := s.DefaultStartMonth, s.DefaultEndMonth
	if start == 0 || end == 0 {
		start, end = 1, 12
	}
	return AcademicYear{
		Year:       year,
		Status:     AcademicYearClosed,
		StartMonth: start,
		EndMonth:   end,
	}
}
