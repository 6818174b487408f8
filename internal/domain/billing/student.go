package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StudentStatus represents the enrollment state of a student
type StudentStatus string

const (
	StudentStatusActive      StudentStatus = "ACTIVE"
	StudentStatusSuspended   StudentStatus = "SUSPENDED"
	StudentStatusTransferred StudentStatus = "TRANSFERRED"
	StudentStatusInactive    StudentStatus = "INACTIVE"
)

// IsValid returns true if the status is valid
func (s StudentStatus) IsValid() bool {
	switch s {
	case StudentStatusActive, StudentStatusSuspended, StudentStatusTransferred, StudentStatusInactive:
		return true
	}
	return false
}

// ProfileStatus selects how fees apply to a student
type ProfileStatus string

const (
	ProfileNormal          ProfileStatus = "NORMAL"
	ProfilePartialDiscount ProfileStatus = "PARTIAL_DISCOUNT"
	ProfileFullExempt      ProfileStatus = "FULL_EXEMPT"
	ProfileNoPenalty       ProfileStatus = "NO_PENALTY"
)

// IsValid returns true if the profile status is valid
func (s ProfileStatus) IsValid() bool {
	switch s {
	case ProfileNormal, ProfilePartialDiscount, ProfileFullExempt, ProfileNoPenalty:
		return true
	}
	return false
}

// FinancialProfile is a per-student override of discount, exemption or penalty
type FinancialProfile struct {
	Status             ProfileStatus   `json:"status"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	AffectedTypes      []ChargeType    `json:"affected_types"`
}

// NormalProfile returns the profile of a student without overrides
func NormalProfile() FinancialProfile {
	return FinancialProfile{Status: ProfileNormal, AffectedTypes: []ChargeType{}}
}

// Affects reports whether the discount applies to a charge type
func (p FinancialProfile) Affects(t ChargeType) bool {
	for _, affected := range p.AffectedTypes {
		if affected == t {
			return true
		}
	}
	return false
}

// IsPenaltyExempt reports whether late penalties are waived
func (p FinancialProfile) IsPenaltyExempt() bool {
	return p.Status == ProfileNoPenalty || p.Status == ProfileFullExempt
}

// Validate checks the profile's invariants
func (p FinancialProfile) Validate() error {
	if !p.Status.IsValid() {
		return shared.InvalidInput(fmt.Sprintf("invalid financial profile status %q", p.Status))
	}
	if p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundredPercent) {
		return shared.InvalidInput("discount percentage must be between 0 and 100")
	}
	for _, t := range p.AffectedTypes {
		if !t.IsValid() {
			return shared.InvalidInput(fmt.Sprintf("invalid affected charge type %q", t))
		}
	}
	return nil
}

var hundredPercent = decimal.NewFromInt(100)

// SuspensionPeriod is one interval in which the student was not enrolled.
// To is nil while the suspension is in force.
type SuspensionPeriod struct {
	From time.Time  `json:"from"`
	To   *time.Time `json:"to,omitempty"`
}

// IsOpen reports whether the student has not been reactivated yet
func (p SuspensionPeriod) IsOpen() bool {
	return p.To == nil
}

// Student is the aggregate root of the billing context
type Student struct {
	shared.BaseAggregateRoot
	Name              string
	BirthDate         time.Time
	Status            StudentStatus
	DesiredClass      string
	MatriculationDate time.Time
	Suspensions       []SuspensionPeriod
	Profile           FinancialProfile
	Payments          []PaymentRecord
	ExtraCharges      []ExtraCharge
}

// NewStudent creates a new active student with no financial history
func NewStudent(name, desiredClass string, birthDate, matriculationDate time.Time, profile FinancialProfile) (*Student, error) {
	s := &Student{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		BirthDate:         birthDate,
		Status:            StudentStatusActive,
		DesiredClass:      strings.TrimSpace(desiredClass),
		MatriculationDate: matriculationDate,
		Profile:           profile,
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Normalize replaces absent containers with empty ones so that the engine never
// has to check for nil lists.
func (s *Student) Normalize() {
	if s.Payments == nil {
		s.Payments = []PaymentRecord{}
	}
	if s.ExtraCharges == nil {
		s.ExtraCharges = []ExtraCharge{}
	}
	if s.Suspensions == nil {
		s.Suspensions = []SuspensionPeriod{}
	}
	if s.Profile.AffectedTypes == nil {
		s.Profile.AffectedTypes = []ChargeType{}
	}
	if s.Profile.Status == "" {
		s.Profile.Status = ProfileNormal
	}
	for i := range s.Payments {
		if s.Payments[i].Items == nil {
			s.Payments[i].Items = []PaymentItem{}
		}
		if s.Payments[i].ExtraChargeIDs == nil {
			s.Payments[i].ExtraChargeIDs = []uuid.UUID{}
		}
	}
}

// Validate checks the student data the engine relies on
func (s *Student) Validate() error {
	if s.Name == "" {
		return shared.InvalidInput("student name is required")
	}
	if !s.Status.IsValid() {
		return shared.InvalidInput(fmt.Sprintf("invalid student status %q", s.Status))
	}
	if s.DesiredClass == "" {
		return shared.InvalidInput("student class is required")
	}
	if s.MatriculationDate.IsZero() {
		return shared.InvalidInput("matriculation date is required")
	}
	if !s.BirthDate.IsZero() && s.BirthDate.After(s.MatriculationDate) {
		return shared.InvalidInput("birth date must precede matriculation date")
	}
	if err := s.validateSuspensions(); err != nil {
		return err
	}
	if err := s.Profile.Validate(); err != nil {
		return err
	}
	for i := range s.Payments {
		if err := s.Payments[i].Validate(); err != nil {
			return fmt.Errorf("payment %s: %w", s.Payments[i].ID, err)
		}
	}
	for i := range s.ExtraCharges {
		if err := s.ExtraCharges[i].Validate(); err != nil {
			return fmt.Errorf("extra charge %s: %w", s.ExtraCharges[i].ID, err)
		}
	}
	return nil
}

// Suspension periods are chronological and do not overlap; only the last one may be open.
func (s *Student) validateSuspensions() error {
	var previousEnd *time.Time
	for i, p := range s.Suspensions {
		if p.From.Before(s.MatriculationDate) {
			return shared.InvalidInput("suspension date must not precede matriculation date")
		}
		if p.To != nil && p.To.Before(p.From) {
			return shared.InvalidInput("reactivation date must follow the suspension date")
		}
		if p.IsOpen() && i < len(s.Suspensions)-1 {
			return shared.InvalidInput("only the latest suspension can be open")
		}
		if previousEnd != nil && p.From.Before(*previousEnd) {
			return shared.InvalidInput("suspension periods must not overlap")
		}
		previousEnd = p.To
	}
	return nil
}

// LastSuspension returns the most recent suspension period, nil if the student
// was never suspended.
func (s *Student) LastSuspension() *SuspensionPeriod {
	if len(s.Suspensions) == 0 {
		return nil
	}
	return &s.Suspensions[len(s.Suspensions)-1]
}

// SuspensionDate returns the start of the most recent suspension
func (s *Student) SuspensionDate() *time.Time {
	if last := s.LastSuspension(); last != nil {
		from := last.From
		return &from
	}
	return nil
}

// ReactivationDate returns the end of the most recent suspension, nil while it is open
func (s *Student) ReactivationDate() *time.Time {
	if last := s.LastSuspension(); last != nil {
		return last.To
	}
	return nil
}

// MatriculationYear returns the calendar year the student first enrolled
func (s *Student) MatriculationYear() int {
	return s.MatriculationDate.Year()
}

// PaymentsForYear returns the payments credited to an academic year, in record order
func (s *Student) PaymentsForYear(year int) []PaymentRecord {
	result := make([]PaymentRecord, 0)
	for _, p := range s.Payments {
		if p.AcademicYear == year {
			result = append(result, p)
		}
	}
	return result
}

// MonthlyPaymentsFor returns the monthly payments credited to (year, month)
func (s *Student) MonthlyPaymentsFor(year, month int) []PaymentRecord {
	result := make([]PaymentRecord, 0)
	for _, p := range s.Payments {
		if p.IsFor(year, month) {
			result = append(result, p)
		}
	}
	return result
}

// RegistrationPayment returns the enrollment or renewal payment of a year, if any
func (s *Student) RegistrationPayment(year int) *PaymentRecord {
	for i := range s.Payments {
		if s.Payments[i].AcademicYear == year && s.Payments[i].Type.IsRegistration() {
			return &s.Payments[i]
		}
	}
	return nil
}

// IsReturning reports whether the student registered in any year before targetYear
func (s *Student) IsReturning(targetYear int) bool {
	for _, p := range s.Payments {
		if p.Type.IsRegistration() && p.AcademicYear < targetYear {
			return true
		}
	}
	return false
}

// FindPayment returns the payment with the given ID
func (s *Student) FindPayment(id uuid.UUID) (*PaymentRecord, error) {
	for i := range s.Payments {
		if s.Payments[i].ID == id {
			return &s.Payments[i], nil
		}
	}
	return nil, shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("payment %s not found", id))
}

// FindExtraCharge returns the extra charge with the given ID
func (s *Student) FindExtraCharge(id uuid.UUID) (*ExtraCharge, error) {
	for i := range s.ExtraCharges {
		if s.ExtraCharges[i].ID == id {
			return &s.ExtraCharges[i], nil
		}
	}
	return nil, shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("extra charge %s not found", id))
}

// AddPayment appends a validated payment record and settles the extra charges it
// references. It refuses a second enrollment or renewal for the same year.
func (s *Student) AddPayment(p *PaymentRecord) error {
	if p == nil {
		return shared.InvalidInput("payment cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Type.IsRegistration() {
		if existing := s.RegistrationPayment(p.AcademicYear); existing != nil {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, fmt.Sprintf(
				"student already has a %s payment for %d", strings.ToLower(existing.Type.Label()), p.AcademicYear))
		}
	}
	// Check every referenced charge before touching any of them.
	charges := make([]*ExtraCharge, 0, len(p.ExtraChargeIDs))
	for _, id := range p.ExtraChargeIDs {
		c, err := s.FindExtraCharge(id)
		if err != nil {
			return err
		}
		if c.IsPaid {
			return shared.NewDomainError(shared.ErrInvalidState.Code, fmt.Sprintf("extra charge %s is already paid", id))
		}
		charges = append(charges, c)
	}
	for _, c := range charges {
		if err := c.MarkPaid(); err != nil {
			return err
		}
	}
	s.Payments = append(s.Payments, *p)
	s.Touch()
	s.AddDomainEvent(NewPaymentRecordedEvent(s, p))
	return nil
}

// EditPaymentItems replaces the items of a payment and recomputes its amount
func (s *Student) EditPaymentItems(id uuid.UUID, items []PaymentItem) (*PaymentRecord, error) {
	p, err := s.FindPayment(id)
	if err != nil {
		return nil, err
	}
	previous := p.Amount
	if err := p.ReplaceItems(items); err != nil {
		return nil, err
	}
	s.Touch()
	s.AddDomainEvent(NewPaymentEditedEvent(s, p, previous))
	return p, nil
}

// RemovePayment deletes a payment. Nothing else is recomputed or reverted:
// extra charges it settled stay paid.
func (s *Student) RemovePayment(id uuid.UUID) error {
	for i := range s.Payments {
		if s.Payments[i].ID == id {
			removed := s.Payments[i]
			s.Payments = append(s.Payments[:i], s.Payments[i+1:]...)
			s.Touch()
			s.AddDomainEvent(NewPaymentDeletedEvent(s, removed))
			return nil
		}
	}
	return shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("payment %s not found", id))
}

// AddExtraCharge attaches a new charge to the student
func (s *Student) AddExtraCharge(c *ExtraCharge) error {
	if c == nil {
		return shared.InvalidInput("extra charge cannot be nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	s.ExtraCharges = append(s.ExtraCharges, *c)
	s.Touch()
	return nil
}

// Suspend opens a new suspension period from the given date. Earlier periods
// are kept so their months stay inactive.
func (s *Student) Suspend(at time.Time) error {
	if s.Status == StudentStatusSuspended {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "student is already suspended")
	}
	if at.Before(s.MatriculationDate) {
		return shared.InvalidInput("suspension date must not precede matriculation date")
	}
	if last := s.LastSuspension(); last != nil {
		if last.IsOpen() {
			return shared.NewDomainError(shared.ErrInvalidState.Code, "student has an open suspension")
		}
		if at.Before(*last.To) {
			return shared.InvalidInput("suspension date must not precede the last reactivation")
		}
	}
	s.Status = StudentStatusSuspended
	s.Suspensions = append(s.Suspensions, SuspensionPeriod{From: at})
	s.Touch()
	return nil
}

// Reactivate closes the open suspension period
func (s *Student) Reactivate(at time.Time) error {
	last := s.LastSuspension()
	if s.Status != StudentStatusSuspended || last == nil || !last.IsOpen() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "only suspended students can be reactivated")
	}
	if at.Before(last.From) {
		return shared.InvalidInput("reactivation date must follow the suspension date")
	}
	s.Status = StudentStatusActive
	last.To = &at
	s.Touch()
	return nil
}
