package billing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtYear is a prior academic year whose obligation exceeds what was paid by
// more than the debt tolerance.
type DebtYear struct {
	Year             int             `json:"year"`
	RegistrationType ChargeType      `json:"registration_type"`
	ActiveMonths     int             `json:"active_months"`
	Obligation       decimal.Decimal `json:"obligation"`
	Paid             decimal.Decimal `json:"paid"`
	Shortfall        decimal.Decimal `json:"shortfall"`
}

// DebtAudit is the outcome of a debt check for a registration in TargetYear
type DebtAudit struct {
	StudentID  uuid.UUID            `json:"student_id"`
	TargetYear int                  `json:"target_year"`
	Currency   valueobject.Currency `json:"currency"`
	Tolerance  decimal.Decimal      `json:"tolerance"`
	Returning  bool                 `json:"returning"`
	DebtYears  []DebtYear           `json:"debt_years"`
}

// Blocked reports whether the registration must be refused
func (a DebtAudit) Blocked() bool {
	return len(a.DebtYears) > 0
}

// TotalShortfall sums the shortfall of every flagged year
func (a DebtAudit) TotalShortfall() decimal.Decimal {
	total := decimal.Zero
	for _, y := range a.DebtYears {
		total = total.Add(y.Shortfall)
	}
	return total
}

// Err returns a BLOCKED_BY_DEBT error when the audit flagged any year, nil otherwise
func (a DebtAudit) Err() error {
	if !a.Blocked() {
		return nil
	}
	years := make([]string, 0, len(a.DebtYears))
	for _, y := range a.DebtYears {
		years = append(years, strconv.Itoa(y.Year))
	}
	return shared.NewDomainError(shared.ErrBlockedByDebt.Code, fmt.Sprintf(
		"registration for %d blocked: unresolved debt of %s %s in %s",
		a.TargetYear, a.TotalShortfall().StringFixed(2), a.Currency, strings.Join(years, ", ")))
}

// DebtAuditor scans prior academic years for unpaid obligations
type DebtAuditor struct {
	fees FeeResolver
}

// NewDebtAuditor creates a DebtAuditor
func NewDebtAuditor(fees FeeResolver) DebtAuditor {
	return DebtAuditor{fees: fees}
}

// Audit checks every year from the matriculation year up to, but excluding,
// targetYear. Only returning students are audited and FULL_EXEMPT students never
// owe anything. The snapshot must already be validated.
func (a DebtAuditor) Audit(snap Snapshot, targetYear int) DebtAudit {
	s, settings := snap.Student, snap.Settings
	audit := DebtAudit{
		StudentID:  s.ID,
		TargetYear: targetYear,
		Currency:   settings.Currency,
		Tolerance:  settings.Tolerances.DebtTolerance,
		Returning:  s.IsReturning(targetYear),
		DebtYears:  []DebtYear{},
	}
	if !audit.Returning || s.Profile.Status == ProfileFullExempt {
		return audit
	}

	for y := s.MatriculationYear(); y < targetYear; y++ {
		dy := a.auditYear(s, settings, snap.Calendar(y))
		if dy.Shortfall.GreaterThan(audit.Tolerance) {
			audit.DebtYears = append(audit.DebtYears, dy)
		}
	}
	return audit
}

func (a DebtAuditor) auditYear(s *Student, settings FinancialSettings, cal AcademicYear) DebtYear {
	dy := DebtYear{
		Year:             cal.Year,
		RegistrationType: registrationTypeFor(s, cal.Year),
		ActiveMonths:     activeMonths(s, cal),
		Obligation:       decimal.Zero,
		Paid:             decimal.Zero,
	}
	for _, p := range s.PaymentsForYear(cal.Year) {
		if p.Type.IsRegistration() || p.Type == PaymentTypeMonthly {
			dy.Paid = dy.Paid.Add(p.Amount)
		}
	}

	if dy.ActiveMonths > 0 {
		// Unconfigured fees count as zero.
		if reg, err := a.fees.Resolve(s, dy.RegistrationType, settings); err == nil {
			dy.Obligation = dy.Obligation.Add(reg.Amount())
		}
		if monthly, err := a.fees.Resolve(s, ChargeTypeMonthly, settings); err == nil {
			dy.Obligation = dy.Obligation.Add(monthly.Times(dy.ActiveMonths).Amount())
		}
	}
	dy.Shortfall = dy.Obligation.Sub(dy.Paid)
	return dy
}

// registrationTypeFor is ENROLLMENT in the matriculation year or when the student
// paid an enrollment that year, RENEWAL otherwise.
func registrationTypeFor(s *Student, year int) ChargeType {
	if year == s.MatriculationYear() {
		return ChargeTypeEnrollment
	}
	if reg := s.RegistrationPayment(year); reg != nil && reg.Type == PaymentTypeEnrollment {
		return ChargeTypeEnrollment
	}
	return ChargeTypeRenewal
}

// activeMonths counts the billable months of a year in which the student was
// not suspended.
func activeMonths(s *Student, cal AcademicYear) int {
	start, exemptYear := effectiveStartMonth(s, cal)
	if exemptYear {
		return 0
	}
	count := 0
	for m := start; m <= cal.EndMonth; m++ {
		if isActiveMonth(s, cal.Year, m) {
			count++
		}
	}
	return count
}
