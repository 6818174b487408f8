package persistence

import (
	"testing"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newBillingStudent(t *testing.T, name, class string) *billing.Student {
	t.Helper()
	profile := billing.FinancialProfile{
		Status:             billing.ProfilePartialDiscount,
		DiscountPercentage: dec(25),
		AffectedTypes:      []billing.ChargeType{billing.ChargeTypeMonthly},
	}
	s, err := billing.NewStudent(name, class, day(2015, 4, 2), day(2025, 1, 6), profile)
	require.NoError(t, err)
	return s
}

func monthlyPayment(t *testing.T, month int, amount int64) *billing.PaymentRecord {
	t.Helper()
	p, err := billing.NewPaymentRecord(billing.PaymentInput{
		Date:           day(2025, time.Month(month), 5),
		Type:           billing.PaymentTypeMonthly,
		Method:         billing.PaymentMethodMobile,
		AcademicYear:   2025,
		ReferenceMonth: &month,
		Items:          []billing.PaymentItem{{Label: "Propina", Value: dec(amount)}},
	})
	require.NoError(t, err)
	return p
}

func TestStudentRepository_SaveAndLoadRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormStudentRepository(db.DB)
	ctx := t.Context()

	s := newBillingStudent(t, "Ana Domingos", "4ª Classe")
	charge, err := billing.NewExtraCharge("Livro danificado", dec(750), day(2025, 2, 3), "EXP-17")
	require.NoError(t, err)
	require.NoError(t, s.AddExtraCharge(charge))

	jan := monthlyPayment(t, 1, 750)
	feb := monthlyPayment(t, 2, 750)
	feb.ExtraChargeIDs = []uuid.UUID{charge.ID}
	feb.Items = append(feb.Items, billing.PaymentItem{Label: "Livro", Value: dec(750)})
	feb.Amount = dec(1500)
	require.NoError(t, s.AddPayment(jan))
	require.NoError(t, s.AddPayment(feb))

	require.NoError(t, repo.Save(ctx, s))

	loaded, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)

	assert.Equal(t, "Ana Domingos", loaded.Name)
	assert.Equal(t, billing.StudentStatusActive, loaded.Status)
	assert.True(t, loaded.MatriculationDate.Equal(s.MatriculationDate))
	assert.Equal(t, billing.ProfilePartialDiscount, loaded.Profile.Status)
	assert.True(t, loaded.Profile.DiscountPercentage.Equal(dec(25)))
	assert.Equal(t, []billing.ChargeType{billing.ChargeTypeMonthly}, loaded.Profile.AffectedTypes)

	require.Len(t, loaded.Payments, 2)
	assert.Equal(t, jan.ID, loaded.Payments[0].ID, "registration order is kept")
	assert.Equal(t, 1, *loaded.Payments[0].ReferenceMonth)
	assert.Equal(t, billing.PaymentMethodMobile, loaded.Payments[0].Method)
	assert.True(t, loaded.Payments[1].Amount.Equal(dec(1500)))
	assert.Len(t, loaded.Payments[1].Items, 2)
	assert.Equal(t, []uuid.UUID{charge.ID}, loaded.Payments[1].ExtraChargeIDs)

	require.Len(t, loaded.ExtraCharges, 1)
	assert.True(t, loaded.ExtraCharges[0].IsPaid)
	assert.Equal(t, "EXP-17", loaded.ExtraCharges[0].ExpenseRef)
}

func TestStudentRepository_SaveReplacesChildren(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormStudentRepository(db.DB)
	ctx := t.Context()

	s := newBillingStudent(t, "Bruno Neto", "5ª Classe")
	jan := monthlyPayment(t, 1, 750)
	require.NoError(t, s.AddPayment(jan))
	require.NoError(t, s.AddPayment(monthlyPayment(t, 2, 750)))
	require.NoError(t, repo.Save(ctx, s))

	require.NoError(t, s.RemovePayment(jan.ID))
	require.NoError(t, s.Suspend(day(2025, 3, 1)))
	require.NoError(t, repo.Save(ctx, s))

	loaded, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Payments, 1)
	assert.Equal(t, 2, *loaded.Payments[0].ReferenceMonth)
	assert.Equal(t, billing.StudentStatusSuspended, loaded.Status)
	require.NotNil(t, loaded.SuspensionDate())
	assert.True(t, loaded.SuspensionDate().Equal(day(2025, 3, 1)))

	require.NoError(t, loaded.Reactivate(day(2025, 5, 1)))
	require.NoError(t, loaded.Suspend(day(2025, 9, 1)))
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Suspensions, 2)
	require.NotNil(t, reloaded.Suspensions[0].To)
	assert.True(t, reloaded.Suspensions[0].To.Equal(day(2025, 5, 1)))
	assert.True(t, reloaded.Suspensions[1].IsOpen())
	assert.True(t, reloaded.Suspensions[1].From.Equal(day(2025, 9, 1)))
}

func TestStudentRepository_FindAllAndCount(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormStudentRepository(db.DB)
	ctx := t.Context()

	for _, name := range []string{"Carla Mateus", "Ana Domingos", "Anabela Sousa"} {
		require.NoError(t, repo.Save(ctx, newBillingStudent(t, name, "4ª Classe")))
	}
	other := newBillingStudent(t, "Ana Paula", "6ª Classe")
	require.NoError(t, other.Suspend(day(2025, 5, 1)))
	require.NoError(t, repo.Save(ctx, other))

	active := billing.StudentStatusActive
	students, err := repo.FindAll(ctx, billing.StudentFilter{Search: "ana", Status: &active})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ana Domingos", students[0].Name)
	assert.Equal(t, "Anabela Sousa", students[1].Name)

	n, err := repo.Count(ctx, billing.StudentFilter{DesiredClass: "4ª Classe"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	page, err := repo.FindAll(ctx, billing.StudentFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Carla Mateus", page[0].Name)
}

func TestStudentRepository_NotFound(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormStudentRepository(db.DB)

	_, err := repo.FindByID(t.Context(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(t.Context(), uuid.New()), shared.ErrNotFound)
}

func TestStudentRepository_Delete(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormStudentRepository(db.DB)
	ctx := t.Context()

	s := newBillingStudent(t, "Dário Luís", "1ª Classe")
	require.NoError(t, s.AddPayment(monthlyPayment(t, 1, 750)))
	require.NoError(t, repo.Save(ctx, s))

	require.NoError(t, repo.Delete(ctx, s.ID))

	var payments int64
	require.NoError(t, db.DB.Table("student_payments").Count(&payments).Error)
	assert.Zero(t, payments)
}

func TestSettingsRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormSettingsRepository(db.DB)
	ctx := t.Context()

	_, err := repo.Get(ctx)
	require.ErrorIs(t, err, shared.ErrNotFound)

	settings := &billing.FinancialSettings{
		Currency:      valueobject.AOA,
		EnrollmentFee: dec(5000),
		RenewalFee:    dec(4000),
		MonthlyFee:    dec(1000),
		ExamFee:       dec(2000),
		ClassSpecificFees: map[string]billing.ClassFeeRow{
			"12ª Classe": {billing.ChargeTypeMonthly: dec(1800)},
		},
		PaymentLimitDay:    10,
		LatePenaltyPercent: dec(10),
		Tolerances:         billing.DefaultTolerances(),
		DefaultStartMonth:  2,
		DefaultEndMonth:    11,
	}
	require.NoError(t, repo.Save(ctx, settings))

	settings.MonthlyFee = dec(1200)
	require.NoError(t, repo.Save(ctx, settings))

	loaded, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.MonthlyFee.Equal(dec(1200)))
	assert.Equal(t, valueobject.AOA, loaded.Currency)
	assert.Equal(t, 2, loaded.DefaultStartMonth)
	fee, ok := loaded.ClassFee("12ª Classe", billing.ChargeTypeMonthly)
	require.True(t, ok)
	assert.True(t, fee.Equal(dec(1800)))
	assert.True(t, loaded.Tolerances.DebtTolerance.Equal(billing.DefaultDebtTolerance))

	var rows int64
	require.NoError(t, db.DB.Table("financial_settings").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestAcademicYearRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormAcademicYearRepository(db.DB)
	ctx := t.Context()

	y2025, err := billing.NewAcademicYear(2025, 2, 11, billing.AcademicYearInProgress)
	require.NoError(t, err)
	y2024, err := billing.NewAcademicYear(2024, 2, 11, billing.AcademicYearClosed)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, &y2025))
	require.NoError(t, repo.Save(ctx, &y2024))

	y2025.EndMonth = 12
	require.NoError(t, repo.Save(ctx, &y2025))

	years, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, 2024, years[0].Year)
	assert.Equal(t, 12, years[1].EndMonth)

	found, err := repo.FindByYear(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, billing.AcademicYearClosed, found.Status)

	_, err = repo.FindByYear(ctx, 1999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
