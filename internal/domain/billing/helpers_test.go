package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testYear  = 2025
	classFive = "5ª Classe"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msg ...string) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(expected).Equal(actual),
		"expected %s, got %s %s", expected, actual, strings.Join(msg, " "))
}

func testSettings() FinancialSettings {
	return FinancialSettings{
		Currency:      valueobject.AOA,
		EnrollmentFee: dec(5000),
		RenewalFee:    dec(4000),
		MonthlyFee:    dec(1000),
		ExamFee:       dec(2000),
		ClassSpecificFees: map[string]ClassFeeRow{
			classFive: {ChargeTypeMonthly: dec(1500)},
		},
		PaymentLimitDay:    10,
		LatePenaltyPercent: dec(10),
		Tolerances:         DefaultTolerances(),
		DefaultStartMonth:  1,
		DefaultEndMonth:    12,
	}
}

func newTestStudent(t *testing.T, matriculation time.Time, profile FinancialProfile) *Student {
	t.Helper()
	s, err := NewStudent("Ana Domingos", "4ª Classe", date(2015, 4, 2), matriculation, profile)
	require.NoError(t, err)
	return s
}

func newSnapshot(s *Student, asOf time.Time, years ...AcademicYear) Snapshot {
	return Snapshot{
		Student:  s,
		Settings: testSettings(),
		Years:    years,
		AsOf:     asOf,
	}
}

func payMonthly(t *testing.T, s *Student, year, month int, amount int64, paidAt time.Time) *PaymentRecord {
	t.Helper()
	ref := month
	p, err := NewPaymentRecord(PaymentInput{
		Date:           paidAt,
		Amount:         dec(amount),
		Type:           PaymentTypeMonthly,
		Method:         PaymentMethodCash,
		AcademicYear:   year,
		ReferenceMonth: &ref,
	})
	require.NoError(t, err)
	require.NoError(t, s.AddPayment(p))
	return p
}

func payRegistration(t *testing.T, s *Student, pt PaymentType, year int, paidAt time.Time, items ...PaymentItem) *PaymentRecord {
	t.Helper()
	if len(items) == 0 {
		fee := dec(5000)
		if pt == PaymentTypeRenewal {
			fee = dec(4000)
		}
		items = []PaymentItem{{Label: pt.Label() + " fee", Value: fee}}
	}
	p, err := NewPaymentRecord(PaymentInput{
		Date:         paidAt,
		Type:         pt,
		Method:       PaymentMethodBankTransfer,
		AcademicYear: year,
		Items:        items,
	})
	require.NoError(t, err)
	require.NoError(t, s.AddPayment(p))
	return p
}

func newCharge(t *testing.T, description string, amount int64, at time.Time) *ExtraCharge {
	t.Helper()
	c, err := NewExtraCharge(description, dec(amount), at, "EXP-"+uuid.NewString()[:8])
	require.NoError(t, err)
	return c
}

func decimalFromString(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}
