package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Luanda")
	require.NoError(t, err)

	got, err := ParseDate("date", "2025-03-10", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), got)

	got, err = ParseDate("date", "", loc)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseDate("date", "10/03/2025", loc)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.Contains(t, err.Error(), "date must be a date")
}

func TestStudentListQuery_ToFilter(t *testing.T) {
	q := StudentListQuery{Status: "SUSPENDED", Class: "7A"}
	q.Search = "ana"

	filter := q.ToFilter()

	assert.Equal(t, 1, filter.Page)
	assert.Equal(t, 20, filter.PageSize)
	assert.Equal(t, "ana", filter.Search)
	assert.Equal(t, "7A", filter.DesiredClass)
	require.NotNil(t, filter.Status)
	assert.Equal(t, billing.StudentStatusSuspended, *filter.Status)

	assert.Nil(t, StudentListQuery{}.ToFilter().Status)
}

func TestFinancialSettingsRequest_ToDomain(t *testing.T) {
	req := FinancialSettingsRequest{
		Currency:        "AOA",
		MonthlyFee:      decimal.NewFromInt(15000),
		PaymentLimitDay: 10,
		ClassSpecificFees: map[string]map[string]decimal.Decimal{
			"12": {"MONTHLY": decimal.NewFromInt(20000)},
		},
	}

	settings := req.ToDomain()

	fee, ok := settings.ClassFee("12", billing.ChargeTypeMonthly)
	require.True(t, ok)
	assert.True(t, fee.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, billing.Tolerances{}, settings.Tolerances)

	req.Tolerances = &TolerancesRequest{PaidEpsilon: decimal.NewFromInt(2), DebtTolerance: decimal.NewFromInt(100)}
	settings = req.ToDomain()
	assert.True(t, settings.Tolerances.DebtTolerance.Equal(decimal.NewFromInt(100)))
}

func TestRecordPaymentRequest_ExtraChargeUUIDs(t *testing.T) {
	id := uuid.New()
	ids, err := RecordPaymentRequest{ExtraChargeIDs: []string{id.String()}}.ExtraChargeUUIDs()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)

	_, err = RecordPaymentRequest{ExtraChargeIDs: []string{"nope"}}.ExtraChargeUUIDs()
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestToStudentResponse(t *testing.T) {
	matriculation := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	student, err := billing.NewStudent("Ana", "7A", time.Time{}, matriculation, billing.NormalProfile())
	require.NoError(t, err)

	resp := ToStudentResponse(student)

	assert.Equal(t, student.ID, resp.ID)
	assert.Equal(t, "2023-02-01", resp.MatriculationDate)
	assert.Nil(t, resp.BirthDate)
	assert.Nil(t, resp.SuspensionDate)
	assert.NotNil(t, resp.Payments)
	assert.NotNil(t, resp.ExtraCharges)
	assert.Empty(t, resp.Suspensions)
}

func TestToStudentResponse_Suspensions(t *testing.T) {
	student, err := billing.NewStudent("Ana", "7A", time.Time{}, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), billing.NormalProfile())
	require.NoError(t, err)
	require.NoError(t, student.Suspend(time.Date(2023, 4, 3, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, student.Reactivate(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, student.Suspend(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))

	resp := ToStudentResponse(student)

	require.Len(t, resp.Suspensions, 2)
	assert.Equal(t, "2023-04-03", resp.Suspensions[0].From)
	require.NotNil(t, resp.Suspensions[0].To)
	assert.Equal(t, "2023-06-01", *resp.Suspensions[0].To)
	assert.Nil(t, resp.Suspensions[1].To)
	require.NotNil(t, resp.SuspensionDate)
	assert.Equal(t, "2024-03-04", *resp.SuspensionDate)
	assert.Nil(t, resp.ReactivationDate)
}
