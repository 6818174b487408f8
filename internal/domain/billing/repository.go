package billing

import (
	"context"

	"github.com/google/uuid"
)

// StudentFilter defines filtering options for student queries
type StudentFilter struct {
	Search       string         // Matches the student name
	Status       *StudentStatus // Filter by status
	DesiredClass string         // Filter by class level
	Page         int
	PageSize     int
}

// StudentRepository defines the interface for student persistence.
// Save replaces the whole student record, payments and extra charges included.
type StudentRepository interface {
	// FindByID finds a student by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Student, error)

	// FindAll finds students matching the filter
	FindAll(ctx context.Context, filter StudentFilter) ([]Student, error)

	// Count counts students matching the filter
	Count(ctx context.Context, filter StudentFilter) (int64, error)

	// Save creates or replaces a student record
	Save(ctx context.Context, student *Student) error

	// Delete removes a student
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsRepository stores the school-wide price list
type SettingsRepository interface {
	// Get returns the current settings
	Get(ctx context.Context) (*FinancialSettings, error)

	// Save replaces the current settings
	Save(ctx context.Context, settings *FinancialSettings) error
}

// AcademicYearRepository stores academic year calendars
type AcademicYearRepository interface {
	// FindAll returns every academic year ordered by year
	FindAll(ctx context.Context) ([]AcademicYear, error)

	// FindByYear finds the calendar of one year
	FindByYear(ctx context.Context, year int) (*AcademicYear, error)

	// Save creates or updates an academic year
	Save(ctx context.Context, year *AcademicYear) error
}
