package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entriesOf(l *Ledger, category EntryCategory) []LedgerEntry {
	var out []LedgerEntry
	for _, e := range l.Entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func TestLedgerBuilder_UnpaidMonthsAccumulate(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	snap := newSnapshot(student, date(testYear, 6, 15))
	snap.Settings.LatePenaltyPercent = dec(0)

	ledger, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)

	fees := entriesOf(ledger, EntryCategoryMonthlyFee)
	require.Len(t, fees, 6)
	for i, e := range fees {
		assert.Equal(t, date(testYear, i+1, 1), e.Date)
		assert.Equal(t, EntryKindDebit, e.Kind)
		require.NotNil(t, e.ReferenceMonth)
		assert.Equal(t, i+1, *e.ReferenceMonth)
	}
	assert.Empty(t, entriesOf(ledger, EntryCategoryPenalty))
	assertDecimal(t, "6000", ledger.Balance)
	assertDecimal(t, "6000", ledger.TotalDebit)
	assertDecimal(t, "0", ledger.TotalCredit)
}

func TestLedgerBuilder_SuspensionDoesNotSkipMonths(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	require.NoError(t, student.Suspend(date(testYear, 4, 3)))
	snap := newSnapshot(student, date(testYear, 6, 15))
	snap.Settings.LatePenaltyPercent = dec(0)

	ledger, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)
	assert.Len(t, entriesOf(ledger, EntryCategoryMonthlyFee), 6, "the statement lists every calendar month")

	status, err := engine.MonthlyStatus(snap, testYear, 4)
	require.NoError(t, err)
	assert.Equal(t, MonthStateLate, status.State)

	assert.Equal(t, 3, activeMonths(student, AcademicYear{Year: testYear, StartMonth: 1, EndMonth: 12}),
		"only the debt audit leaves suspended months out")
}

func TestLedgerBuilder_CoveredDebitsLeaveNoBalance(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	payRegistration(t, student, PaymentTypeEnrollment, testYear, date(testYear, 1, 10))
	for month := 1; month <= 6; month++ {
		payMonthly(t, student, testYear, month, 1000, date(testYear, month, 2))
	}
	snap := newSnapshot(student, date(testYear, 6, 15))

	ledger, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)

	assert.Empty(t, entriesOf(ledger, EntryCategoryPenalty))
	assert.True(t, ledger.Balance.LessThanOrEqual(dec(0)))
	assertDecimal(t, "0", ledger.Balance)
	assert.Len(t, entriesOf(ledger, EntryCategoryPayment), 7)
}

func TestLedgerBuilder_PenaltyForLatePayment(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	payMonthly(t, student, testYear, 1, 1000, date(testYear, 1, 5))
	payMonthly(t, student, testYear, 2, 1000, date(testYear, 2, 20))
	payMonthly(t, student, testYear, 3, 400, date(testYear, 3, 1))
	snap := newSnapshot(student, date(testYear, 3, 31))

	ledger, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)

	penalties := entriesOf(ledger, EntryCategoryPenalty)
	require.Len(t, penalties, 2)
	assert.Equal(t, 2, *penalties[0].ReferenceMonth)
	assert.Equal(t, date(testYear, 2, 11), penalties[0].Date)
	assertDecimal(t, "100", penalties[0].Debit)
	assert.Equal(t, 3, *penalties[1].ReferenceMonth)

	// 3000 fees + 200 penalties - 2400 paid
	assertDecimal(t, "800", ledger.Balance)
}

func TestLedgerBuilder_NoPenaltyProfile(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear, 1, 10), FinancialProfile{Status: ProfileNoPenalty})
	ledger, err := engine.Ledger(newSnapshot(student, date(testYear, 4, 20)), testYear)
	require.NoError(t, err)

	assert.Empty(t, entriesOf(ledger, EntryCategoryPenalty))
	assertDecimal(t, "4000", ledger.Balance)
}

func TestLedgerBuilder_PaymentItemsAppearAsCharges(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	payRegistration(t, student, PaymentTypeEnrollment, testYear, date(testYear, 1, 10),
		PaymentItem{Label: "Enrollment fee", Value: dec(5000)},
		PaymentItem{Label: "School insurance", Value: dec(500)},
	)
	uniform, err := NewPaymentRecord(PaymentInput{
		Date:         date(testYear, 1, 12),
		Amount:       dec(1200),
		Type:         PaymentTypeUniform,
		Method:       PaymentMethodMobile,
		AcademicYear: testYear,
	})
	require.NoError(t, err)
	require.NoError(t, student.AddPayment(uniform))
	fine, err := NewPaymentRecord(PaymentInput{
		Date:         date(testYear, 1, 13),
		Amount:       dec(300),
		Type:         PaymentTypeFine,
		AcademicYear: testYear,
	})
	require.NoError(t, err)
	require.NoError(t, student.AddPayment(fine))

	snap := newSnapshot(student, date(testYear, 1, 14))
	snap.Settings.PaymentLimitDay = 15
	ledger, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)

	enrollment := entriesOf(ledger, EntryCategoryEnrollment)
	require.Len(t, enrollment, 2)
	assert.Equal(t, "Enrollment fee", enrollment[0].Description)
	assert.Equal(t, "School insurance", enrollment[1].Description)

	uniforms := entriesOf(ledger, EntryCategoryUniform)
	require.Len(t, uniforms, 1)
	assertDecimal(t, "1200", uniforms[0].Debit)

	credits := entriesOf(ledger, EntryCategoryPayment)
	require.Len(t, credits, 3)
	assertDecimal(t, "5500", credits[0].Credit)
	assert.Contains(t, credits[0].Description, "Enrollment")
	assert.Contains(t, credits[0].Description, "bank transfer")

	// January fee 1000 is still within its payment window; the fine is a credit only.
	assertDecimal(t, "700", ledger.Balance)
}

func TestLedgerBuilder_ExtraChargesWithinYear(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear-1, 1, 10), NormalProfile())
	require.NoError(t, student.AddExtraCharge(newCharge(t, "Field trip", 750, date(testYear, 2, 14))))
	require.NoError(t, student.AddExtraCharge(newCharge(t, "Lost book", 900, date(testYear-1, 11, 3))))
	snap := newSnapshot(student, date(testYear, 2, 15))

	ledger, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)

	extras := entriesOf(ledger, EntryCategoryExtraCharge)
	require.Len(t, extras, 1)
	assert.Equal(t, "Field trip", extras[0].Description)
	assert.NotNil(t, extras[0].SourceID)
}

func TestLedgerBuilder_OrderingAndRunningBalance(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	payMonthly(t, student, testYear, 2, 1000, date(testYear, 2, 1))
	payMonthly(t, student, testYear, 1, 1000, date(testYear, 1, 1))
	require.NoError(t, student.AddExtraCharge(newCharge(t, "Exam retake", 250, date(testYear, 2, 1))))
	snap := newSnapshot(student, date(testYear, 3, 5))

	ledger, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)
	require.NotEmpty(t, ledger.Entries)

	running := dec(0)
	for i, e := range ledger.Entries {
		if i > 0 {
			prev := ledger.Entries[i-1]
			assert.False(t, e.Date.Before(prev.Date), "entries must be chronological")
			if e.Date.Equal(prev.Date) && prev.Kind == EntryKindCredit {
				assert.Equal(t, EntryKindCredit, e.Kind, "debits precede credits on the same date")
			}
		}
		running = running.Add(e.Debit).Sub(e.Credit)
		assert.True(t, running.Equal(e.Balance))
	}
	assert.True(t, running.Equal(ledger.Balance))
	assert.True(t, ledger.TotalDebit.Sub(ledger.TotalCredit).Equal(ledger.Balance))

	first := ledger.Entries[0]
	assert.Equal(t, EntryCategoryMonthlyFee, first.Category)
	assert.Equal(t, EntryCategoryPayment, ledger.Entries[1].Category)
}

func TestLedgerBuilder_CalendarWindow(t *testing.T) {
	engine := NewEngine()

	t.Run("future year has no fees", func(t *testing.T) {
		student := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
		ledger, err := engine.Ledger(newSnapshot(student, date(testYear, 6, 1)), testYear+1)
		require.NoError(t, err)
		assert.Empty(t, ledger.Entries)
		assertDecimal(t, "0", ledger.Balance)
	})

	t.Run("past year charges through end month", func(t *testing.T) {
		student := newTestStudent(t, date(testYear-1, 4, 10), FinancialProfile{Status: ProfileNoPenalty})
		cal := febToNov(testYear - 1)
		ledger, err := engine.Ledger(newSnapshot(student, date(testYear, 1, 5), cal), testYear-1)
		require.NoError(t, err)

		fees := entriesOf(ledger, EntryCategoryMonthlyFee)
		require.Len(t, fees, 8)
		assert.Equal(t, 4, *fees[0].ReferenceMonth)
		assert.Equal(t, 11, *fees[7].ReferenceMonth)
	})
}

func TestLedgerBuilder_ReadOnly(t *testing.T) {
	engine := NewEngine()
	student := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	payMonthly(t, student, testYear, 1, 1000, date(testYear, 1, 3))
	require.NoError(t, student.AddExtraCharge(newCharge(t, "Field trip", 750, date(testYear, 2, 14))))
	version := student.GetVersion()
	snap := newSnapshot(student, date(testYear, 4, 1))

	first, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)
	second, err := engine.Ledger(snap, testYear)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, version, student.GetVersion())
	assert.Len(t, student.Payments, 1)
	assert.False(t, student.ExtraCharges[0].IsPaid)
}
