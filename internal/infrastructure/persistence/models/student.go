package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// StudentModel is the persistence model of the Student aggregate.
// Payments and extra charges live in child tables and are replaced as a whole on save.
type StudentModel struct {
	AggregateModel
	Name              string             `gorm:"type:varchar(200);not null;index"`
	BirthDate         time.Time          `gorm:"not null"`
	Status            string             `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	DesiredClass      string             `gorm:"type:varchar(100);not null;index"`
	MatriculationDate time.Time          `gorm:"not null"`
	Suspensions       datatypes.JSON     `gorm:"not null;default:'[]'"`
	Profile           datatypes.JSON     `gorm:"not null"`
	Payments          []PaymentModel     `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	ExtraCharges      []ExtraChargeModel `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// PaymentModel is one payment record of a student. Position keeps the order in
// which payments were registered.
type PaymentModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StudentID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_payment_student_year,priority:1"`
	Position       int             `gorm:"not null"`
	Date           time.Time       `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Type           string          `gorm:"type:varchar(20);not null"`
	Method         string          `gorm:"type:varchar(20);not null"`
	AcademicYear   int             `gorm:"not null;index:idx_payment_student_year,priority:2"`
	ReferenceMonth *int
	Items          datatypes.JSON `gorm:"not null"`
	ExtraChargeIDs datatypes.JSON `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "student_payments"
}

// ExtraChargeModel is a one-off charge against a student
type ExtraChargeModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StudentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Date        time.Time       `gorm:"not null"`
	ExpenseRef  string          `gorm:"type:varchar(100)"`
	IsPaid      bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ExtraChargeModel) TableName() string {
	return "student_extra_charges"
}

// StudentModelFromDomain converts a domain student to its persistence model
func StudentModelFromDomain(s *billing.Student) (*StudentModel, error) {
	profile, err := json.Marshal(s.Profile)
	if err != nil {
		return nil, fmt.Errorf("encode financial profile: %w", err)
	}
	suspensions, err := json.Marshal(s.Suspensions)
	if err != nil {
		return nil, fmt.Errorf("encode suspensions: %w", err)
	}

	m := &StudentModel{
		Name:              s.Name,
		BirthDate:         s.BirthDate,
		Status:            string(s.Status),
		DesiredClass:      s.DesiredClass,
		MatriculationDate: s.MatriculationDate,
		Suspensions:       datatypes.JSON(suspensions),
		Profile:           datatypes.JSON(profile),
		Payments:          make([]PaymentModel, 0, len(s.Payments)),
		ExtraCharges:      make([]ExtraChargeModel, 0, len(s.ExtraCharges)),
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)

	for i := range s.Payments {
		p, err := paymentModelFromDomain(s.ID, i, &s.Payments[i])
		if err != nil {
			return nil, err
		}
		m.Payments = append(m.Payments, p)
	}
	for i, c := range s.ExtraCharges {
		m.ExtraCharges = append(m.ExtraCharges, ExtraChargeModel{
			ID:          c.ID,
			StudentID:   s.ID,
			Position:    i,
			Description: c.Description,
			Amount:      c.Amount,
			Date:        c.Date,
			ExpenseRef:  c.ExpenseRef,
			IsPaid:      c.IsPaid,
		})
	}
	return m, nil
}

func paymentModelFromDomain(studentID uuid.UUID, position int, p *billing.PaymentRecord) (PaymentModel, error) {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return PaymentModel{}, fmt.Errorf("encode payment items: %w", err)
	}
	chargeIDs, err := json.Marshal(p.ExtraChargeIDs)
	if err != nil {
		return PaymentModel{}, fmt.Errorf("encode extra charge ids: %w", err)
	}
	return PaymentModel{
		ID:             p.ID,
		StudentID:      studentID,
		Position:       position,
		Date:           p.Date,
		Amount:         p.Amount,
		Type:           string(p.Type),
		Method:         string(p.Method),
		AcademicYear:   p.AcademicYear,
		ReferenceMonth: p.ReferenceMonth,
		Items:          datatypes.JSON(items),
		ExtraChargeIDs: datatypes.JSON(chargeIDs),
	}, nil
}

// ToDomain converts the model back to a domain student. Children are expected
// to be loaded in Position order.
func (m *StudentModel) ToDomain() (*billing.Student, error) {
	s := &billing.Student{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		BirthDate:         m.BirthDate,
		Status:            billing.StudentStatus(m.Status),
		DesiredClass:      m.DesiredClass,
		MatriculationDate: m.MatriculationDate,
		Payments:          make([]billing.PaymentRecord, 0, len(m.Payments)),
		ExtraCharges:      make([]billing.ExtraCharge, 0, len(m.ExtraCharges)),
	}
	if len(m.Profile) > 0 {
		if err := json.Unmarshal(m.Profile, &s.Profile); err != nil {
			return nil, fmt.Errorf("decode financial profile of student %s: %w", m.ID, err)
		}
	}
	if err := decodeJSON(m.Suspensions, &s.Suspensions); err != nil {
		return nil, fmt.Errorf("decode suspensions of student %s: %w", m.ID, err)
	}

	for _, p := range m.Payments {
		record := billing.PaymentRecord{
			ID:             p.ID,
			Date:           p.Date,
			Amount:         p.Amount,
			Type:           billing.PaymentType(p.Type),
			Method:         billing.PaymentMethod(p.Method),
			AcademicYear:   p.AcademicYear,
			ReferenceMonth: p.ReferenceMonth,
		}
		if err := decodeJSON(p.Items, &record.Items); err != nil {
			return nil, fmt.Errorf("decode items of payment %s: %w", p.ID, err)
		}
		if err := decodeJSON(p.ExtraChargeIDs, &record.ExtraChargeIDs); err != nil {
			return nil, fmt.Errorf("decode extra charge ids of payment %s: %w", p.ID, err)
		}
		s.Payments = append(s.Payments, record)
	}
	for _, c := range m.ExtraCharges {
		s.ExtraCharges = append(s.ExtraCharges, billing.ExtraCharge{
			ID:          c.ID,
			Description: c.Description,
			Amount:      c.Amount,
			Date:        c.Date,
			ExpenseRef:  c.ExpenseRef,
			IsPaid:      c.IsPaid,
		})
	}

	s.Normalize()
	return s, nil
}

func decodeJSON(raw datatypes.JSON, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
