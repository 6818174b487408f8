package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAccountService(f *fixture) *AccountService {
	return NewAccountService(f.students, f.settings, f.years)
}

func TestAccountService_RegisterStudent(t *testing.T) {
	f := newFixture()
	f.students.On("Save", mock.Anything, mock.AnythingOfType("*billing.Student")).Return(nil)

	student, err := newAccountService(f).RegisterStudent(context.Background(), RegisterStudentRequest{
		Name:              "  Joana Mendes ",
		DesiredClass:      "3ª Classe",
		BirthDate:         date(2017, 6, 1),
		MatriculationDate: date(testYear, 1, 8),
		Profile:           billing.NormalProfile(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Joana Mendes", student.Name)
	assert.Equal(t, billing.StudentStatusActive, student.Status)
	f.students.AssertExpectations(t)
}

func TestAccountService_RegisterStudentInvalid(t *testing.T) {
	f := newFixture()

	_, err := newAccountService(f).RegisterStudent(context.Background(), RegisterStudentRequest{
		DesiredClass:      "3ª Classe",
		MatriculationDate: date(testYear, 1, 8),
		Profile:           billing.NormalProfile(),
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	f.students.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAccountService_ListStudents(t *testing.T) {
	f := newFixture()
	filter := billing.StudentFilter{Search: "ana", Page: 1, PageSize: 20}
	f.students.On("FindAll", mock.Anything, filter).Return([]billing.Student{*newStudent(t, date(testYear, 1, 2))}, nil)
	f.students.On("Count", mock.Anything, filter).Return(int64(41), nil)

	students, total, err := newAccountService(f).ListStudents(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, int64(41), total)
}

func TestAccountService_UpdateProfile(t *testing.T) {
	f := newFixture()
	student := newStudent(t, date(testYear, 1, 2))
	f.students.On("FindByID", mock.Anything, student.ID).Return(student, nil)
	f.students.On("Save", mock.Anything, student).Return(nil)
	svc := newAccountService(f)

	updated, err := svc.UpdateProfile(context.Background(), student.ID, billing.FinancialProfile{
		Status:             billing.ProfilePartialDiscount,
		DiscountPercentage: decimal.NewFromInt(25),
		AffectedTypes:      []billing.ChargeType{billing.ChargeTypeMonthly},
	})
	require.NoError(t, err)
	assert.Equal(t, billing.ProfilePartialDiscount, updated.Profile.Status)

	_, err = svc.UpdateProfile(context.Background(), student.ID, billing.FinancialProfile{
		Status:             billing.ProfilePartialDiscount,
		DiscountPercentage: decimal.NewFromInt(120),
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	f.students.AssertNumberOfCalls(t, "Save", 1)
}

func TestAccountService_AddExtraCharge(t *testing.T) {
	f := newFixture()
	student := newStudent(t, date(testYear, 1, 2))
	f.students.On("FindByID", mock.Anything, student.ID).Return(student, nil)
	f.students.On("Save", mock.Anything, student).Return(nil)

	charge, err := newAccountService(f).AddExtraCharge(context.Background(), AddExtraChargeRequest{
		StudentID:   student.ID,
		Description: "Damaged library book",
		Amount:      dec(1200),
		Date:        date(testYear, 4, 3),
		ExpenseRef:  "EXP-77",
	})
	require.NoError(t, err)
	assert.False(t, charge.IsPaid)
	require.Len(t, student.ExtraCharges, 1)
	assert.Equal(t, charge.ID, student.ExtraCharges[0].ID)
}

func TestAccountService_SuspendAndReactivate(t *testing.T) {
	f := newFixture()
	student := newStudent(t, date(testYear, 1, 2))
	f.students.On("FindByID", mock.Anything, student.ID).Return(student, nil)
	f.students.On("Save", mock.Anything, student).Return(nil)
	svc := newAccountService(f)

	suspended, err := svc.Suspend(context.Background(), student.ID, date(testYear, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, billing.StudentStatusSuspended, suspended.Status)

	_, err = svc.Suspend(context.Background(), student.ID, date(testYear, 5, 2))
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	active, err := svc.Reactivate(context.Background(), student.ID, date(testYear, 8, 1))
	require.NoError(t, err)
	assert.Equal(t, billing.StudentStatusActive, active.Status)
	require.NotNil(t, active.ReactivationDate())
	require.Len(t, active.Suspensions, 1)
	f.students.AssertNumberOfCalls(t, "Save", 2)
}

func TestAccountService_GetStudentNotFound(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.students.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	_, err := newAccountService(f).GetStudent(context.Background(), id)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestAccountService_SaveSettings(t *testing.T) {
	f := newFixture()
	f.settings.On("Save", mock.Anything, mock.AnythingOfType("*billing.FinancialSettings")).Return(nil)
	svc := newAccountService(f)

	settings := *testSettings()
	settings.Tolerances = billing.Tolerances{}
	saved, err := svc.SaveSettings(context.Background(), settings)
	require.NoError(t, err)
	assert.Equal(t, billing.DefaultTolerances(), saved.Tolerances)

	settings.PaymentLimitDay = 0
	_, err = svc.SaveSettings(context.Background(), settings)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	f.settings.AssertNumberOfCalls(t, "Save", 1)
}

func TestAccountService_SaveAcademicYear(t *testing.T) {
	f := newFixture()
	f.years.On("Save", mock.Anything, mock.AnythingOfType("*billing.AcademicYear")).Return(nil)
	svc := newAccountService(f)

	saved, err := svc.SaveAcademicYear(context.Background(), billing.AcademicYear{Year: testYear, StartMonth: 2, EndMonth: 11})
	require.NoError(t, err)
	assert.Equal(t, billing.AcademicYearPlanned, saved.Status)

	_, err = svc.SaveAcademicYear(context.Background(), billing.AcademicYear{Year: testYear, StartMonth: 11, EndMonth: 2})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	f.years.AssertNumberOfCalls(t, "Save", 1)
}
