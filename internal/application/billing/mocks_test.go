package billing

import (
	"context"
	"testing"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStudentRepository is a mock implementation of billing.StudentRepository
type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Student), args.Error(1)
}

func (m *MockStudentRepository) FindAll(ctx context.Context, filter billing.StudentFilter) ([]billing.Student, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.Student), args.Error(1)
}

func (m *MockStudentRepository) Count(ctx context.Context, filter billing.StudentFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStudentRepository) Save(ctx context.Context, student *billing.Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

func (m *MockStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSettingsRepository is a mock implementation of billing.SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*billing.FinancialSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.FinancialSettings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, settings *billing.FinancialSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockAcademicYearRepository is a mock implementation of billing.AcademicYearRepository
type MockAcademicYearRepository struct {
	mock.Mock
}

func (m *MockAcademicYearRepository) FindAll(ctx context.Context) ([]billing.AcademicYear, error) {
	args := m.Called(ctx)
	return args.Get(0).([]billing.AcademicYear), args.Error(1)
}

func (m *MockAcademicYearRepository) FindByYear(ctx context.Context, year int) (*billing.AcademicYear, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.AcademicYear), args.Error(1)
}

func (m *MockAcademicYearRepository) Save(ctx context.Context, year *billing.AcademicYear) error {
	args := m.Called(ctx, year)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n ReceiptNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

const testYear = 2025

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func testSettings() *billing.FinancialSettings {
	return &billing.FinancialSettings{
		Currency:           valueobject.AOA,
		EnrollmentFee:      dec(5000),
		RenewalFee:         dec(4000),
		MonthlyFee:         dec(1000),
		ExamFee:            dec(2000),
		ClassSpecificFees:  map[string]billing.ClassFeeRow{},
		PaymentLimitDay:    10,
		LatePenaltyPercent: dec(10),
		Tolerances:         billing.DefaultTolerances(),
		DefaultStartMonth:  1,
		DefaultEndMonth:    12,
	}
}

func newStudent(t *testing.T, matriculation time.Time) *billing.Student {
	t.Helper()
	s, err := billing.NewStudent("Ana Domingos", "4ª Classe", date(2015, 4, 2), matriculation, billing.NormalProfile())
	require.NoError(t, err)
	return s
}

type fixture struct {
	students  *MockStudentRepository
	settings  *MockSettingsRepository
	years     *MockAcademicYearRepository
	publisher *MockEventPublisher
	store     *MockIdempotencyStore
}

func newFixture() *fixture {
	return &fixture{
		students:  new(MockStudentRepository),
		settings:  new(MockSettingsRepository),
		years:     new(MockAcademicYearRepository),
		publisher: new(MockEventPublisher),
		store:     new(MockIdempotencyStore),
	}
}

func (f *fixture) withStudent(s *billing.Student, years ...billing.AcademicYear) {
	if years == nil {
		years = []billing.AcademicYear{}
	}
	f.students.On("FindByID", mock.Anything, s.ID).Return(s, nil)
	f.settings.On("Get", mock.Anything).Return(testSettings(), nil)
	f.years.On("FindAll", mock.Anything).Return(years, nil)
}

func (f *fixture) recorder(asOf time.Time) *PaymentRecorder {
	return NewPaymentRecorder(f.students, f.settings, f.years, billing.NewEngine(),
		WithClock(billing.FixedClock{At: asOf}),
		WithEventPublisher(f.publisher),
		WithIdempotencyStore(f.store, shared.DefaultIdempotencyConfig()),
	)
}

func monthPtr(m int) *int {
	return &m
}
