package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountService maintains the inputs of the engine: students, their extra
// charges, the price list and the academic calendar.
type AccountService struct {
	students billing.StudentRepository
	settings billing.SettingsRepository
	years    billing.AcademicYearRepository
	logger   *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	students billing.StudentRepository,
	settings billing.SettingsRepository,
	years billing.AcademicYearRepository,
	opts ...ServiceOption,
) *AccountService {
	o := applyOptions(opts)
	return &AccountService{
		students: students,
		settings: settings,
		years:    years,
		logger:   o.logger,
	}
}

// RegisterStudentRequest represents a request to open a student account
type RegisterStudentRequest struct {
	Name              string
	DesiredClass      string
	BirthDate         time.Time
	MatriculationDate time.Time
	Profile           billing.FinancialProfile
}

// RegisterStudent creates a student with an empty financial history
func (s *AccountService) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*billing.Student, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "register_student")
	defer span.End()

	student, err := billing.NewStudent(req.Name, req.DesiredClass, req.BirthDate, req.MatriculationDate, req.Profile)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.students.Save(ctx, student); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save student: %w", err)
	}
	s.logger.Info("student registered",
		zap.String("student_id", student.ID.String()),
		zap.String("class", student.DesiredClass),
	)
	return student, nil
}

// GetStudent returns a student by ID
func (s *AccountService) GetStudent(ctx context.Context, id uuid.UUID) (*billing.Student, error) {
	return s.students.FindByID(ctx, id)
}

// ListStudents returns a page of students and the total count
func (s *AccountService) ListStudents(ctx context.Context, filter billing.StudentFilter) ([]billing.Student, int64, error) {
	students, err := s.students.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.students.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// UpdateProfile replaces the financial profile of a student
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, profile billing.FinancialProfile) (*billing.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.AffectedTypes == nil {
		profile.AffectedTypes = []billing.ChargeType{}
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	student.Profile = profile
	student.Touch()
	if err := s.students.Save(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to save student: %w", err)
	}
	s.logger.Info("financial profile updated",
		zap.String("student_id", id.String()),
		zap.String("profile", string(profile.Status)),
	)
	return student, nil
}

// AddExtraChargeRequest represents a one-off charge against a student
type AddExtraChargeRequest struct {
	StudentID   uuid.UUID
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	ExpenseRef  string
}

// AddExtraCharge attaches an unpaid extra charge to a student
func (s *AccountService) AddExtraCharge(ctx context.Context, req AddExtraChargeRequest) (*billing.ExtraCharge, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "add_extra_charge",
		telemetry.WithAttribute(telemetry.SpanAttrStudentID, req.StudentID.String()),
	)
	defer span.End()

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	charge, err := billing.NewExtraCharge(req.Description, req.Amount, req.Date, req.ExpenseRef)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := student.AddExtraCharge(charge); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.students.Save(ctx, student); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save student: %w", err)
	}
	return charge, nil
}

// Suspend marks a student suspended from the given date
func (s *AccountService) Suspend(ctx context.Context, id uuid.UUID, at time.Time) (*billing.Student, error) {
	return s.changeStatus(ctx, id, func(st *billing.Student) error { return st.Suspend(at) })
}

// Reactivate ends a student's suspension
func (s *AccountService) Reactivate(ctx context.Context, id uuid.UUID, at time.Time) (*billing.Student, error) {
	return s.changeStatus(ctx, id, func(st *billing.Student) error { return st.Reactivate(at) })
}

func (s *AccountService) changeStatus(ctx context.Context, id uuid.UUID, change func(*billing.Student) error) (*billing.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(student); err != nil {
		return nil, err
	}
	if err := s.students.Save(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to save student: %w", err)
	}
	s.logger.Info("student status changed",
		zap.String("student_id", id.String()),
		zap.String("status", string(student.Status)),
	)
	return student, nil
}

// GetSettings returns the current price list
func (s *AccountService) GetSettings(ctx context.Context) (*billing.FinancialSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings validates and stores the price list
func (s *AccountService) SaveSettings(ctx context.Context, settings billing.FinancialSettings) (*billing.FinancialSettings, error) {
	settings.Normalize()
	if settings.Tolerances == (billing.Tolerances{}) {
		settings.Tolerances = billing.DefaultTolerances()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.settings.Save(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to save financial settings: %w", err)
	}
	s.logger.Info("financial settings saved",
		zap.String("currency", string(settings.Currency)),
		zap.String("monthly_fee", settings.MonthlyFee.String()),
	)
	return &settings, nil
}

// ListAcademicYears returns all configured calendars
func (s *AccountService) ListAcademicYears(ctx context.Context) ([]billing.AcademicYear, error) {
	return s.years.FindAll(ctx)
}

// SaveAcademicYear validates and stores a calendar
func (s *AccountService) SaveAcademicYear(ctx context.Context, year billing.AcademicYear) (*billing.AcademicYear, error) {
	if year.Status == "" {
		year.Status = billing.AcademicYearPlanned
	}
	if err := year.Validate(); err != nil {
		return nil, err
	}
	if err := s.years.Save(ctx, &year); err != nil {
		return nil, fmt.Errorf("failed to save academic year: %w", err)
	}
	return &year, nil
}
