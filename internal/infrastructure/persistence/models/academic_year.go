package models

import (
	"time"

	"github.com/escola/backend/internal/domain/billing"
)

// AcademicYearModel stores the billing calendar of one school year
type AcademicYearModel struct {
	Year       int       `gorm:"primaryKey;autoIncrement:false"`
	Status     string    `gorm:"type:varchar(20);not null"`
	StartMonth int       `gorm:"not null"`
	EndMonth   int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AcademicYearModel) TableName() string {
	return "academic_years"
}

// AcademicYearModelFromDomain converts a domain academic year
func AcademicYearModelFromDomain(y billing.AcademicYear) *AcademicYearModel {
	return &AcademicYearModel{
		Year:       y.Year,
		Status:     string(y.Status),
		StartMonth: y.StartMonth,
		EndMonth:   y.EndMonth,
	}
}

// ToDomain converts the model to a domain academic year
func (m *AcademicYearModel) ToDomain() billing.AcademicYear {
	return billing.AcademicYear{
		Year:       m.Year,
		Status:     billing.AcademicYearStatus(m.Status),
		StartMonth: m.StartMonth,
		EndMonth:   m.EndMonth,
	}
}
