package billing

import (
	"errors"
	"testing"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStudent(t *testing.T) {
	s, err := NewStudent("  Ana Domingos ", "4ª Classe", date(2015, 4, 2), date(testYear, 1, 10), FinancialProfile{})
	require.NoError(t, err)
	assert.Equal(t, "Ana Domingos", s.Name)
	assert.Equal(t, StudentStatusActive, s.Status)
	assert.Equal(t, ProfileNormal, s.Profile.Status)
	assert.NotNil(t, s.Payments)
	assert.NotNil(t, s.ExtraCharges)
	assert.NotNil(t, s.Profile.AffectedTypes)
	assert.Equal(t, testYear, s.MatriculationYear())
}

func TestNewStudent_Validation(t *testing.T) {
	tests := []struct {
		name    string
		student string
		class   string
		birth   [3]int
		profile FinancialProfile
	}{
		{"empty name", " ", "4ª Classe", [3]int{2015, 1, 1}, NormalProfile()},
		{"empty class", "Ana", "", [3]int{2015, 1, 1}, NormalProfile()},
		{"born after matriculation", "Ana", "4ª Classe", [3]int{testYear + 1, 1, 1}, NormalProfile()},
		{"discount above 100", "Ana", "4ª Classe", [3]int{2015, 1, 1}, FinancialProfile{Status: ProfilePartialDiscount, DiscountPercentage: dec(120)}},
		{"unknown profile", "Ana", "4ª Classe", [3]int{2015, 1, 1}, FinancialProfile{Status: "VIP"}},
		{"unknown affected type", "Ana", "4ª Classe", [3]int{2015, 1, 1}, FinancialProfile{Status: ProfilePartialDiscount, AffectedTypes: []ChargeType{"BUS"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStudent(tt.student, tt.class, date(tt.birth[0], tt.birth[1], tt.birth[2]), date(testYear, 1, 10), tt.profile)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		})
	}
}

func TestStudent_OneRegistrationPerYear(t *testing.T) {
	s := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	payRegistration(t, s, PaymentTypeEnrollment, testYear, date(testYear, 1, 10))

	renewal, err := NewPaymentRecord(PaymentInput{
		Date:         date(testYear, 2, 1),
		Amount:       dec(4000),
		Type:         PaymentTypeRenewal,
		AcademicYear: testYear,
	})
	require.NoError(t, err)
	err = s.AddPayment(renewal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	assert.Len(t, s.Payments, 1)

	renewal.AcademicYear = testYear + 1
	require.NoError(t, s.AddPayment(renewal))
	assert.True(t, s.IsReturning(testYear+2))
	assert.True(t, s.IsReturning(testYear+1))
	assert.False(t, s.IsReturning(testYear))
}

func TestStudent_AddPaymentRaisesEvent(t *testing.T) {
	s := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	version := s.GetVersion()
	p := payMonthly(t, s, testYear, 2, 1000, date(testYear, 2, 3))

	events := s.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypePaymentRecorded, events[0].EventType())
	assert.Equal(t, s.ID, events[0].AggregateID())
	recorded, ok := events[0].(*PaymentRecordedEvent)
	require.True(t, ok)
	assert.Equal(t, p.ID, recorded.PaymentID)
	assert.Equal(t, 2, *recorded.ReferenceMonth)
	assert.Equal(t, version+1, s.GetVersion())
}

func TestStudent_SettlesExtraCharges(t *testing.T) {
	s := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	trip := newCharge(t, "Field trip", 750, date(testYear, 2, 14))
	book := newCharge(t, "Lost book", 900, date(testYear, 3, 1))
	require.NoError(t, s.AddExtraCharge(trip))
	require.NoError(t, s.AddExtraCharge(book))

	p, err := NewPaymentRecord(PaymentInput{
		Date:           date(testYear, 3, 2),
		Type:           PaymentTypeMaterial,
		AcademicYear:   testYear,
		Items:          []PaymentItem{{Label: "Field trip", Value: dec(750)}},
		ExtraChargeIDs: []uuid.UUID{trip.ID},
	})
	require.NoError(t, err)
	require.NoError(t, s.AddPayment(p))

	c, err := s.FindExtraCharge(trip.ID)
	require.NoError(t, err)
	assert.True(t, c.IsPaid)
	c, err = s.FindExtraCharge(book.ID)
	require.NoError(t, err)
	assert.False(t, c.IsPaid)

	t.Run("already paid charge is refused without side effects", func(t *testing.T) {
		again, err := NewPaymentRecord(PaymentInput{
			Date:           date(testYear, 3, 3),
			Amount:         dec(1650),
			Type:           PaymentTypeMaterial,
			AcademicYear:   testYear,
			ExtraChargeIDs: []uuid.UUID{book.ID, trip.ID},
		})
		require.NoError(t, err)
		err = s.AddPayment(again)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		c, _ := s.FindExtraCharge(book.ID)
		assert.False(t, c.IsPaid)
		assert.Len(t, s.Payments, 1)
	})

	t.Run("unknown charge", func(t *testing.T) {
		other, err := NewPaymentRecord(PaymentInput{
			Date:           date(testYear, 3, 3),
			Amount:         dec(10),
			Type:           PaymentTypeMaterial,
			AcademicYear:   testYear,
			ExtraChargeIDs: []uuid.UUID{uuid.New()},
		})
		require.NoError(t, err)
		assert.True(t, errors.Is(s.AddPayment(other), shared.ErrNotFound))
	})
}

func TestStudent_EditPaymentItemsRecomputesAmount(t *testing.T) {
	s := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	p := payRegistration(t, s, PaymentTypeEnrollment, testYear, date(testYear, 1, 10))
	s.ClearDomainEvents()

	edited, err := s.EditPaymentItems(p.ID, []PaymentItem{
		{Label: "Enrollment fee", Value: dec(5000)},
		{Label: "School insurance", Value: decimalFromString(t, "450.75")},
		{Label: "Student card", Value: dec(200)},
	})
	require.NoError(t, err)
	assertDecimal(t, "5650.75", edited.Amount)
	stored, err := s.FindPayment(p.ID)
	require.NoError(t, err)
	assertDecimal(t, "5650.75", stored.Amount)
	assert.True(t, sumItems(stored.Items).Equal(stored.Amount))

	events := s.GetDomainEvents()
	require.Len(t, events, 1)
	editedEvent := events[0].(*PaymentEditedEvent)
	assertDecimal(t, "5000", editedEvent.PreviousAmount)
	assertDecimal(t, "5650.75", editedEvent.Amount)

	_, err = s.EditPaymentItems(p.ID, nil)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	_, err = s.EditPaymentItems(uuid.New(), []PaymentItem{{Label: "x", Value: dec(1)}})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestStudent_RemovePaymentDoesNotCascade(t *testing.T) {
	s := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
	trip := newCharge(t, "Field trip", 750, date(testYear, 2, 14))
	require.NoError(t, s.AddExtraCharge(trip))
	p, err := NewPaymentRecord(PaymentInput{
		Date:           date(testYear, 2, 15),
		Amount:         dec(750),
		Type:           PaymentTypeMaterial,
		AcademicYear:   testYear,
		ExtraChargeIDs: []uuid.UUID{trip.ID},
	})
	require.NoError(t, err)
	require.NoError(t, s.AddPayment(p))

	require.NoError(t, s.RemovePayment(p.ID))
	assert.Empty(t, s.Payments)
	c, err := s.FindExtraCharge(trip.ID)
	require.NoError(t, err)
	assert.True(t, c.IsPaid)

	events := s.GetDomainEvents()
	assert.Equal(t, EventTypePaymentDeleted, events[len(events)-1].EventType())
	assert.True(t, errors.Is(s.RemovePayment(p.ID), shared.ErrNotFound))
}

func TestStudent_SuspendAndReactivate(t *testing.T) {
	s := newTestStudent(t, date(testYear, 1, 10), NormalProfile())

	assert.True(t, errors.Is(s.Reactivate(date(testYear, 3, 1)), shared.ErrInvalidState))
	assert.True(t, errors.Is(s.Suspend(date(testYear-1, 3, 1)), shared.ErrInvalidInput))

	require.NoError(t, s.Suspend(date(testYear, 4, 1)))
	assert.Equal(t, StudentStatusSuspended, s.Status)
	assert.True(t, errors.Is(s.Suspend(date(testYear, 5, 1)), shared.ErrInvalidState))
	assert.True(t, errors.Is(s.Reactivate(date(testYear, 3, 1)), shared.ErrInvalidInput))

	require.NoError(t, s.Reactivate(date(testYear, 6, 1)))
	assert.Equal(t, StudentStatusActive, s.Status)
	require.NotNil(t, s.ReactivationDate())
	require.NoError(t, s.Validate())

	assert.True(t, errors.Is(s.Suspend(date(testYear, 5, 20)), shared.ErrInvalidInput), "cannot reopen a closed period")
	require.NoError(t, s.Suspend(date(testYear, 9, 1)))
	require.Len(t, s.Suspensions, 2)
	assert.Equal(t, date(testYear, 4, 1), s.Suspensions[0].From)
	require.NotNil(t, s.Suspensions[0].To)
	assert.Equal(t, date(testYear, 6, 1), *s.Suspensions[0].To)
	assert.True(t, s.Suspensions[1].IsOpen())
	assert.Equal(t, date(testYear, 9, 1), *s.SuspensionDate())
	assert.Nil(t, s.ReactivationDate())
	require.NoError(t, s.Validate())
}

func TestStudent_ValidateSuspensions(t *testing.T) {
	end := date(testYear, 6, 1)
	early := date(testYear, 2, 1)
	tests := []struct {
		name    string
		periods []SuspensionPeriod
	}{
		{"before matriculation", []SuspensionPeriod{{From: date(testYear-1, 12, 1)}}},
		{"reactivated before suspended", []SuspensionPeriod{{From: date(testYear, 4, 1), To: &early}}},
		{"open period not last", []SuspensionPeriod{{From: date(testYear, 3, 1)}, {From: date(testYear, 8, 1)}}},
		{"overlapping periods", []SuspensionPeriod{{From: date(testYear, 3, 1), To: &end}, {From: date(testYear, 5, 1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStudent(t, date(testYear, 1, 10), NormalProfile())
			s.Suspensions = tt.periods
			assert.True(t, errors.Is(s.Validate(), shared.ErrInvalidInput))
		})
	}
}

func TestStudent_Normalize(t *testing.T) {
	s := &Student{Payments: []PaymentRecord{{Type: PaymentTypeUniform}}}
	s.Normalize()
	assert.NotNil(t, s.ExtraCharges)
	assert.NotNil(t, s.Suspensions)
	assert.NotNil(t, s.Payments[0].Items)
	assert.NotNil(t, s.Payments[0].ExtraChargeIDs)
	assert.Equal(t, ProfileNormal, s.Profile.Status)
}
