package billing

import (
	"errors"
	"testing"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinancialSettings_Validate(t *testing.T) {
	require.NoError(t, testSettings().Validate())

	tests := []struct {
		name   string
		mutate func(*FinancialSettings)
	}{
		{"unknown currency", func(s *FinancialSettings) { s.Currency = "XYZ" }},
		{"negative monthly fee", func(s *FinancialSettings) { s.MonthlyFee = dec(-1) }},
		{"negative penalty", func(s *FinancialSettings) { s.LatePenaltyPercent = dec(-10) }},
		{"negative tolerance", func(s *FinancialSettings) { s.Tolerances.DebtTolerance = dec(-500) }},
		{"limit day zero", func(s *FinancialSettings) { s.PaymentLimitDay = 0 }},
		{"limit day 32", func(s *FinancialSettings) { s.PaymentLimitDay = 32 }},
		{"negative class fee", func(s *FinancialSettings) {
			s.ClassSpecificFees[classFive] = ClassFeeRow{ChargeTypeMonthly: dec(-1)}
		}},
		{"invalid class charge type", func(s *FinancialSettings) {
			s.ClassSpecificFees[classFive] = ClassFeeRow{"BUS": dec(100)}
		}},
		{"monthly fee below a cent", func(s *FinancialSettings) { s.MonthlyFee = decimal.RequireFromString("1000.005") }},
		{"class fee below a cent", func(s *FinancialSettings) {
			s.ClassSpecificFees[classFive] = ClassFeeRow{ChargeTypeMonthly: decimal.RequireFromString("1500.001")}
		}},
		{"inverted default calendar", func(s *FinancialSettings) { s.DefaultStartMonth, s.DefaultEndMonth = 11, 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		})
	}
}

func TestFinancialSettings_Normalize(t *testing.T) {
	s := FinancialSettings{ClassSpecificFees: map[string]ClassFeeRow{classFive: nil}}
	s.Normalize()
	assert.Equal(t, valueobject.DefaultCurrency, s.Currency)
	assert.NotNil(t, s.ClassSpecificFees[classFive])

	empty := FinancialSettings{}
	empty.Normalize()
	assert.NotNil(t, empty.ClassSpecificFees)
}

func TestFinancialSettings_CalendarFor(t *testing.T) {
	s := testSettings()
	s.DefaultStartMonth, s.DefaultEndMonth = 2, 11
	years := []AcademicYear{{Year: testYear, Status: AcademicYearInProgress, StartMonth: 3, EndMonth: 12}}

	assert.Equal(t, years[0], s.CalendarFor(testYear, years))

	fallback := s.CalendarFor(testYear-1, years)
	assert.Equal(t, 2, fallback.StartMonth)
	assert.Equal(t, 11, fallback.EndMonth)

	s.DefaultStartMonth, s.DefaultEndMonth = 0, 0
	fallback = s.CalendarFor(testYear-1, nil)
	assert.Equal(t, 1, fallback.StartMonth)
	assert.Equal(t, 12, fallback.EndMonth)
}

func TestFinancialSettings_WithTolerances(t *testing.T) {
	s := testSettings()
	tuned := s.WithTolerances(Tolerances{PaidEpsilon: dec(5), DebtTolerance: dec(0)})
	assertDecimal(t, "5", tuned.Tolerances.PaidEpsilon)
	assertDecimal(t, "1", s.Tolerances.PaidEpsilon)
}

func TestAcademicYear(t *testing.T) {
	y, err := NewAcademicYear(testYear, 2, 11, AcademicYearInProgress)
	require.NoError(t, err)
	assert.Equal(t, 10, y.MonthCount())
	assert.True(t, y.Contains(2))
	assert.True(t, y.Contains(11))
	assert.False(t, y.Contains(12))

	_, err = NewAcademicYear(testYear, 11, 2, AcademicYearPlanned)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	_, err = NewAcademicYear(testYear, 0, 2, AcademicYearPlanned)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	_, err = NewAcademicYear(testYear, 1, 12, "OPEN")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestChargeType_IsValid(t *testing.T) {
	for _, ct := range AllChargeTypes() {
		assert.True(t, ct.IsValid(), ct.String())
	}
	assert.False(t, ChargeType("BUS").IsValid())
}
