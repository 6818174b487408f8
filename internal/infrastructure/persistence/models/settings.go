package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SettingsSingletonID is the primary key of the only settings row
const SettingsSingletonID = 1

// FinancialSettingsModel stores the school price list in a single row
type FinancialSettingsModel struct {
	ID                 int             `gorm:"primaryKey;autoIncrement:false"`
	Currency           string          `gorm:"type:varchar(3);not null"`
	EnrollmentFee      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	RenewalFee         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	MonthlyFee         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ExamFee            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ClassSpecificFees  datatypes.JSON  `gorm:"not null"`
	PaymentLimitDay    int             `gorm:"not null"`
	LatePenaltyPercent decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	PaidEpsilon        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DebtTolerance      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DefaultStartMonth  int             `gorm:"not null"`
	DefaultEndMonth    int             `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FinancialSettingsModel) TableName() string {
	return "financial_settings"
}

// FinancialSettingsModelFromDomain converts domain settings into the singleton row
func FinancialSettingsModelFromDomain(s *billing.FinancialSettings) (*FinancialSettingsModel, error) {
	classFees, err := json.Marshal(s.ClassSpecificFees)
	if err != nil {
		return nil, fmt.Errorf("encode class specific fees: %w", err)
	}
	return &FinancialSettingsModel{
		ID:                 SettingsSingletonID,
		Currency:           string(s.Currency),
		EnrollmentFee:      s.EnrollmentFee,
		RenewalFee:         s.RenewalFee,
		MonthlyFee:         s.MonthlyFee,
		ExamFee:            s.ExamFee,
		ClassSpecificFees:  datatypes.JSON(classFees),
		PaymentLimitDay:    s.PaymentLimitDay,
		LatePenaltyPercent: s.LatePenaltyPercent,
		PaidEpsilon:        s.Tolerances.PaidEpsilon,
		DebtTolerance:      s.Tolerances.DebtTolerance,
		DefaultStartMonth:  s.DefaultStartMonth,
		DefaultEndMonth:    s.DefaultEndMonth,
	}, nil
}

// ToDomain converts the row to domain settings. Rows written before tolerances
// were stored fall back to the defaults.
func (m *FinancialSettingsModel) ToDomain() (*billing.FinancialSettings, error) {
	s := &billing.FinancialSettings{
		Currency:           valueobject.Currency(m.Currency),
		EnrollmentFee:      m.EnrollmentFee,
		RenewalFee:         m.RenewalFee,
		MonthlyFee:         m.MonthlyFee,
		ExamFee:            m.ExamFee,
		PaymentLimitDay:    m.PaymentLimitDay,
		LatePenaltyPercent: m.LatePenaltyPercent,
		Tolerances: billing.Tolerances{
			PaidEpsilon:   m.PaidEpsilon,
			DebtTolerance: m.DebtTolerance,
		},
		DefaultStartMonth: m.DefaultStartMonth,
		DefaultEndMonth:   m.DefaultEndMonth,
	}
	if err := decodeJSON(m.ClassSpecificFees, &s.ClassSpecificFees); err != nil {
		return nil, fmt.Errorf("decode class specific fees: %w", err)
	}
	if s.Tolerances.PaidEpsilon.IsZero() && s.Tolerances.DebtTolerance.IsZero() {
		s.Tolerances = billing.DefaultTolerances()
	}
	s.Normalize()
	return s, nil
}
