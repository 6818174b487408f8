package dto

import (
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date in loc. An empty value yields the zero time.
func ParseDate(field, value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, shared.InvalidInput(fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
	}
	return t, nil
}

// =============================================================================
// Students
// =============================================================================

// FinancialProfileRequest carries a discount, exemption or penalty override
type FinancialProfileRequest struct {
	Status             string          `json:"status" binding:"required,oneof=NORMAL PARTIAL_DISCOUNT FULL_EXEMPT NO_PENALTY"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	AffectedTypes      []string        `json:"affected_types" binding:"omitempty,dive,oneof=ENROLLMENT RENEWAL MONTHLY EXAM UNIFORM MATERIAL FINE"`
}

// ToDomain converts the request to a financial profile
func (r FinancialProfileRequest) ToDomain() billing.FinancialProfile {
	types := make([]billing.ChargeType, 0, len(r.AffectedTypes))
	for _, t := range r.AffectedTypes {
		types = append(types, billing.ChargeType(t))
	}
	return billing.FinancialProfile{
		Status:             billing.ProfileStatus(r.Status),
		DiscountPercentage: r.DiscountPercentage,
		AffectedTypes:      types,
	}
}

// RegisterStudentRequest opens a student account
type RegisterStudentRequest struct {
	Name              string                   `json:"name" binding:"required,min=1,max=200"`
	DesiredClass      string                   `json:"desired_class" binding:"required,max=50"`
	BirthDate         string                   `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	MatriculationDate string                   `json:"matriculation_date" binding:"required,datetime=2006-01-02"`
	Profile           *FinancialProfileRequest `json:"profile"`
}

// StudentListQuery filters the student list
type StudentListQuery struct {
	ListRequest
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE SUSPENDED TRANSFERRED INACTIVE"`
	Class  string `form:"class" binding:"max=50"`
}

// ToFilter converts the query to a repository filter
func (q StudentListQuery) ToFilter() billing.StudentFilter {
	q.Normalize()
	filter := billing.StudentFilter{
		Search:       q.Search,
		DesiredClass: q.Class,
		Page:         q.Page,
		PageSize:     q.PageSize,
	}
	if q.Status != "" {
		status := billing.StudentStatus(q.Status)
		filter.Status = &status
	}
	return filter
}

// StatusChangeRequest suspends or reactivates a student on a date
type StatusChangeRequest struct {
	Date string `json:"date" binding:"required,datetime=2006-01-02"`
}

// ExtraChargeRequest adds a one-off charge to a student
type ExtraChargeRequest struct {
	Description string          `json:"description" binding:"required,max=200"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" binding:"required,datetime=2006-01-02"`
	ExpenseRef  string          `json:"expense_ref" binding:"max=100"`
}

// StudentResponse is the API view of a student account
type StudentResponse struct {
	ID                uuid.UUID                `json:"id"`
	Name              string                   `json:"name"`
	DesiredClass      string                   `json:"desired_class"`
	Status            billing.StudentStatus    `json:"status"`
	BirthDate         *string                  `json:"birth_date,omitempty"`
	MatriculationDate string                   `json:"matriculation_date"`
	SuspensionDate    *string                  `json:"suspension_date,omitempty"`
	ReactivationDate  *string                  `json:"reactivation_date,omitempty"`
	Suspensions       []SuspensionResponse     `json:"suspensions"`
	Profile           billing.FinancialProfile `json:"profile"`
	Payments          []billing.PaymentRecord  `json:"payments"`
	ExtraCharges      []billing.ExtraCharge    `json:"extra_charges"`
	Version           int                      `json:"version"`
	TimestampResponse
}

// SuspensionResponse is one suspension period; To is absent while it is open
type SuspensionResponse struct {
	From string  `json:"from"`
	To   *string `json:"to,omitempty"`
}

// StudentSummary is the list view of a student account
type StudentSummary struct {
	ID           uuid.UUID             `json:"id"`
	Name         string                `json:"name"`
	DesiredClass string                `json:"desired_class"`
	Status       billing.StudentStatus `json:"status"`
	Profile      billing.ProfileStatus `json:"profile"`
}

// TimestampResponse represents timestamps in response
type TimestampResponse struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToStudentResponse converts a student aggregate to its API view
func ToStudentResponse(s *billing.Student) StudentResponse {
	resp := StudentResponse{
		ID:                s.ID,
		Name:              s.Name,
		DesiredClass:      s.DesiredClass,
		Status:            s.Status,
		MatriculationDate: s.MatriculationDate.Format(DateLayout),
		SuspensionDate:    formatDatePtr(s.SuspensionDate()),
		ReactivationDate:  formatDatePtr(s.ReactivationDate()),
		Suspensions:       make([]SuspensionResponse, 0, len(s.Suspensions)),
		Profile:           s.Profile,
		Payments:          s.Payments,
		ExtraCharges:      s.ExtraCharges,
		Version:           s.GetVersion(),
		TimestampResponse: TimestampResponse{CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
	}
	for _, p := range s.Suspensions {
		resp.Suspensions = append(resp.Suspensions, SuspensionResponse{
			From: p.From.Format(DateLayout),
			To:   formatDatePtr(p.To),
		})
	}
	if !s.BirthDate.IsZero() {
		resp.BirthDate = formatDatePtr(&s.BirthDate)
	}
	return resp
}

// ToStudentSummaries converts a page of students to list views
func ToStudentSummaries(students []billing.Student) []StudentSummary {
	out := make([]StudentSummary, 0, len(students))
	for i := range students {
		out = append(out, StudentSummary{
			ID:           students[i].ID,
			Name:         students[i].Name,
			DesiredClass: students[i].DesiredClass,
			Status:       students[i].Status,
			Profile:      students[i].Profile.Status,
		})
	}
	return out
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// =============================================================================
// Payments
// =============================================================================

// PaymentItemRequest is one receipt line
type PaymentItemRequest struct {
	Label string          `json:"label" binding:"required,max=200"`
	Value decimal.Decimal `json:"value"`
}

// RecordPaymentRequest records money received from a student
type RecordPaymentRequest struct {
	Date           string               `json:"date" binding:"required,datetime=2006-01-02"`
	Amount         decimal.Decimal      `json:"amount"`
	Type           string               `json:"type" binding:"required,oneof=ENROLLMENT RENEWAL MONTHLY UNIFORM MATERIAL FINE"`
	Method         string               `json:"method" binding:"required,oneof=CASH BANK_TRANSFER CARD MOBILE"`
	AcademicYear   int                  `json:"academic_year" binding:"required,min=1900,max=9999"`
	ReferenceMonth *int                 `json:"reference_month" binding:"omitempty,min=1,max=12"`
	Items          []PaymentItemRequest `json:"items" binding:"omitempty,dive"`
	ExtraChargeIDs []string             `json:"extra_charge_ids" binding:"omitempty,dive,uuid"`
}

// ExtraChargeUUIDs parses the linked extra charge IDs
func (r RecordPaymentRequest) ExtraChargeUUIDs() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.ExtraChargeIDs))
	for _, raw := range r.ExtraChargeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, shared.InvalidInput(fmt.Sprintf("invalid extra charge id %q", raw))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EditPaymentRequest replaces the receipt lines of a payment
type EditPaymentRequest struct {
	Items []PaymentItemRequest `json:"items" binding:"required,min=1,dive"`
}

// DeletePaymentQuery carries the administrator's reason for removing a payment
type DeletePaymentQuery struct {
	Reason string `form:"reason" binding:"required,max=500"`
}

// =============================================================================
// Statements
// =============================================================================

// YearQuery selects an academic year
type YearQuery struct {
	Year int `form:"year" binding:"required,min=1900,max=9999"`
}

// MonthQuery selects one month of an academic year
type MonthQuery struct {
	Year  int `form:"year" binding:"required,min=1900,max=9999"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// =============================================================================
// Settings
// =============================================================================

// TolerancesRequest overrides the paid epsilon and debt tolerance
type TolerancesRequest struct {
	PaidEpsilon   decimal.Decimal `json:"paid_epsilon"`
	DebtTolerance decimal.Decimal `json:"debt_tolerance"`
}

// FinancialSettingsRequest replaces the school-wide price list
type FinancialSettingsRequest struct {
	Currency           string                                `json:"currency" binding:"omitempty,len=3"`
	EnrollmentFee      decimal.Decimal                       `json:"enrollment_fee"`
	RenewalFee         decimal.Decimal                       `json:"renewal_fee"`
	MonthlyFee         decimal.Decimal                       `json:"monthly_fee"`
	ExamFee            decimal.Decimal                       `json:"exam_fee"`
	ClassSpecificFees  map[string]map[string]decimal.Decimal `json:"class_specific_fees"`
	PaymentLimitDay    int                                   `json:"payment_limit_day" binding:"required,min=1,max=31"`
	LatePenaltyPercent decimal.Decimal                       `json:"late_penalty_percent"`
	Tolerances         *TolerancesRequest                    `json:"tolerances"`
	DefaultStartMonth  int                                   `json:"default_start_month" binding:"omitempty,min=1,max=12"`
	DefaultEndMonth    int                                   `json:"default_end_month" binding:"omitempty,min=1,max=12"`
}

// ToDomain converts the request to financial settings
func (r FinancialSettingsRequest) ToDomain() billing.FinancialSettings {
	classFees := make(map[string]billing.ClassFeeRow, len(r.ClassSpecificFees))
	for class, row := range r.ClassSpecificFees {
		fees := make(billing.ClassFeeRow, len(row))
		for t, v := range row {
			fees[billing.ChargeType(t)] = v
		}
		classFees[class] = fees
	}
	settings := billing.FinancialSettings{
		Currency:           valueobject.Currency(r.Currency),
		EnrollmentFee:      r.EnrollmentFee,
		RenewalFee:         r.RenewalFee,
		MonthlyFee:         r.MonthlyFee,
		ExamFee:            r.ExamFee,
		ClassSpecificFees:  classFees,
		PaymentLimitDay:    r.PaymentLimitDay,
		LatePenaltyPercent: r.LatePenaltyPercent,
		DefaultStartMonth:  r.DefaultStartMonth,
		DefaultEndMonth:    r.DefaultEndMonth,
	}
	if r.Tolerances != nil {
		settings.Tolerances = billing.Tolerances{
			PaidEpsilon:   r.Tolerances.PaidEpsilon,
			DebtTolerance: r.Tolerances.DebtTolerance,
		}
	}
	return settings
}

// AcademicYearRequest creates or updates the calendar of a year
type AcademicYearRequest struct {
	StartMonth int    `json:"start_month" binding:"required,min=1,max=12"`
	EndMonth   int    `json:"end_month" binding:"required,min=1,max=12"`
	Status     string `json:"status" binding:"omitempty,oneof=PLANNED IN_PROGRESS CLOSED"`
}
