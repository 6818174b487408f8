package billing

import (
	"fmt"

	"github.com/escola/backend/internal/domain/shared"
)

// AcademicYearStatus represents the lifecycle state of an academic year
type AcademicYearStatus string

const (
	AcademicYearPlanned    AcademicYearStatus = "PLANNED"
	AcademicYearInProgress AcademicYearStatus = "IN_PROGRESS"
	AcademicYearClosed     AcademicYearStatus = "CLOSED"
)

// IsValid returns true if the status is valid
func (s AcademicYearStatus) IsValid() bool {
	switch s {
	case AcademicYearPlanned, AcademicYearInProgress, AcademicYearClosed:
		return true
	}
	return false
}

// AcademicYear is the billing calendar of one school year.
// StartMonth and EndMonth are calendar months (1-12) within Year.
type AcademicYear struct {
	Year       int                `json:"year"`
	Status     AcademicYearStatus `json:"status"`
	StartMonth int                `json:"start_month"`
	EndMonth   int                `json:"end_month"`
}

// NewAcademicYear creates a validated academic year
func NewAcademicYear(year, startMonth, endMonth int, status AcademicYearStatus) (AcademicYear, error) {
	y := AcademicYear{
		Year:       year,
		Status:     status,
		StartMonth: startMonth,
		EndMonth:   endMonth,
	}
	if err := y.Validate(); err != nil {
		return AcademicYear{}, err
	}
	return y, nil
}

// Validate checks the calendar bounds
func (y AcademicYear) Validate() error {
	if y.Year < 1900 || y.Year > 9999 {
		return shared.InvalidInput(fmt.Sprintf("academic year %d is out of range", y.Year))
	}
	if !validMonth(y.StartMonth) || !validMonth(y.EndMonth) {
		return shared.InvalidInput("academic year months must be between 1 and 12")
	}
	if y.StartMonth > y.EndMonth {
		return shared.InvalidInput("academic year start month must not be after end month")
	}
	if y.Status != "" && !y.Status.IsValid() {
		return shared.InvalidInput(fmt.Sprintf("invalid academic year status %q", y.Status))
	}
	return nil
}

// Contains reports whether month belongs to the billing calendar
func (y AcademicYear) Contains(month int) bool {
	return month >= y.StartMonth && month <= y.EndMonth
}

// MonthCount returns the number of billable months in the year
func (y AcademicYear) MonthCount() int {
	return y.EndMonth - y.StartMonth + 1
}

func validMonth(m int) bool {
	return m >= 1 && m <= 12
}
