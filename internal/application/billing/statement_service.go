package billing

import (
	"context"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatementService answers read-only billing queries for a student
type StatementService struct {
	loader *snapshotLoader
	engine *billing.Engine
	logger *zap.Logger
}

// NewStatementService creates a new StatementService
func NewStatementService(
	students billing.StudentRepository,
	settings billing.SettingsRepository,
	years billing.AcademicYearRepository,
	engine *billing.Engine,
	opts ...ServiceOption,
) *StatementService {
	o := applyOptions(opts)
	return &StatementService{
		loader: &snapshotLoader{
			students:   students,
			settings:   settings,
			years:      years,
			clock:      o.clock,
			tolerances: o.tolerances,
		},
		engine: engine,
		logger: o.logger,
	}
}

// MonthlyStatus returns the billing state of one month
func (s *StatementService) MonthlyStatus(ctx context.Context, studentID uuid.UUID, year, month int) (*billing.MonthlyStatus, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "monthly_status",
		telemetry.WithAttribute(telemetry.SpanAttrStudentID, studentID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAcademicYear, year),
	)
	defer span.End()

	snap, err := s.loader.load(ctx, studentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	status, err := s.engine.MonthlyStatus(snap, year, month)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &status, nil
}

// YearOverview returns the state of every month of a year
func (s *StatementService) YearOverview(ctx context.Context, studentID uuid.UUID, year int) (*billing.YearOverview, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "year_overview",
		telemetry.WithAttribute(telemetry.SpanAttrStudentID, studentID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAcademicYear, year),
	)
	defer span.End()

	snap, err := s.loader.load(ctx, studentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	overview, err := s.engine.YearOverview(snap, year)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return overview, nil
}

// AuditDebt checks whether a registration for targetYear would be blocked
func (s *StatementService) AuditDebt(ctx context.Context, studentID uuid.UUID, targetYear int) (*billing.DebtAudit, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "audit_debt",
		telemetry.WithAttribute(telemetry.SpanAttrStudentID, studentID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAcademicYear, targetYear),
	)
	defer span.End()

	snap, err := s.loader.load(ctx, studentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	audit, err := s.engine.AuditDebt(snap, targetYear)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, "blocked", audit.Blocked())
	if audit.Blocked() {
		s.logger.Debug("debt audit flagged years",
			zap.String("student_id", studentID.String()),
			zap.Int("target_year", targetYear),
			zap.Int("debt_years", len(audit.DebtYears)),
		)
	}
	return &audit, nil
}

// Ledger returns the chronological statement of a year
func (s *StatementService) Ledger(ctx context.Context, studentID uuid.UUID, year int) (*billing.Ledger, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "ledger",
		telemetry.WithAttribute(telemetry.SpanAttrStudentID, studentID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAcademicYear, year),
	)
	defer span.End()

	snap, err := s.loader.load(ctx, studentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ledger, err := s.engine.Ledger(snap, year)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, "entries", len(ledger.Entries))
	return ledger, nil
}

const overduePageSize = 200

// CountOverdueStudents counts active students with at least one late month in
// the current year. Students whose snapshot cannot be evaluated are skipped.
func (s *StatementService) CountOverdueStudents(ctx context.Context) (int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "count_overdue")
	defer span.End()

	active := billing.StudentStatusActive
	var count int64
	for page := 1; ; page++ {
		students, err := s.loader.students.FindAll(ctx, billing.StudentFilter{
			Status:   &active,
			Page:     page,
			PageSize: overduePageSize,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return 0, err
		}
		for i := range students {
			snap, err := s.loader.loadFor(ctx, &students[i])
			if err != nil {
				s.logger.Warn("skipping student in overdue count",
					zap.String("student_id", students[i].ID.String()),
					zap.Error(err),
				)
				continue
			}
			overview, err := s.engine.YearOverview(snap, snap.AsOf.Year())
			if err != nil {
				continue
			}
			if overview.LateMonths > 0 {
				count++
			}
		}
		if len(students) < overduePageSize {
			break
		}
	}
	telemetry.SetAttribute(span, "overdue", count)
	return count, nil
}
