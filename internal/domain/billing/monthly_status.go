package billing

import (
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthState is the derived billing state of one month
type MonthState string

const (
	MonthStateExempt  MonthState = "EXEMPT"
	MonthStatePending MonthState = "PENDING"
	MonthStatePartial MonthState = "PARTIAL"
	MonthStatePaid    MonthState = "PAID"
	MonthStateLate    MonthState = "LATE"
	MonthStateFuture  MonthState = "FUTURE"
)

// String returns the string representation of MonthState
func (s MonthState) String() string {
	return string(s)
}

// IsSettled reports whether nothing more is owed for the month
func (s MonthState) IsSettled() bool {
	return s == MonthStatePaid || s == MonthStateExempt
}

// MonthlyStatus is the billing state of (student, year, month). It is never stored.
type MonthlyStatus struct {
	Year           int                  `json:"year"`
	Month          int                  `json:"month"`
	State          MonthState           `json:"state"`
	Currency       valueobject.Currency `json:"currency"`
	Fee            decimal.Decimal      `json:"fee"`
	Penalty        decimal.Decimal      `json:"penalty"`
	TotalRequired  decimal.Decimal      `json:"total_required"`
	TotalPaid      decimal.Decimal      `json:"total_paid"`
	Remaining      decimal.Decimal      `json:"remaining"`
	PenaltyApplied bool                 `json:"penalty_applied"`
	DueDate        time.Time            `json:"due_date"`
}

// YearOverview lists the status of every billable month of a year
type YearOverview struct {
	StudentID      uuid.UUID            `json:"student_id"`
	Year           int                  `json:"year"`
	Currency       valueobject.Currency `json:"currency"`
	Months         []MonthlyStatus      `json:"months"`
	TotalRequired  decimal.Decimal      `json:"total_required"`
	TotalPaid      decimal.Decimal      `json:"total_paid"`
	TotalRemaining decimal.Decimal      `json:"total_remaining"`
	LateMonths     int                  `json:"late_months"`
}

// MonthlyStatus computes the state of one month as of snap.AsOf
func (e *Engine) MonthlyStatus(snap Snapshot, year, month int) (MonthlyStatus, error) {
	if err := snap.Validate(); err != nil {
		return MonthlyStatus{}, err
	}
	return e.monthlyStatus(snap, year, month)
}

// YearOverview computes the status of every month StartMonth..EndMonth of a year
func (e *Engine) YearOverview(snap Snapshot, year int) (*YearOverview, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	cal := snap.Calendar(year)
	overview := &YearOverview{
		StudentID:      snap.Student.ID,
		Year:           year,
		Currency:       snap.Settings.Currency,
		Months:         make([]MonthlyStatus, 0, cal.MonthCount()),
		TotalRequired:  decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalRemaining: decimal.Zero,
	}
	for m := cal.StartMonth; m <= cal.EndMonth; m++ {
		st, err := e.monthlyStatus(snap, year, m)
		if err != nil {
			return nil, err
		}
		overview.Months = append(overview.Months, st)
		overview.TotalRequired = overview.TotalRequired.Add(st.TotalRequired)
		overview.TotalPaid = overview.TotalPaid.Add(st.TotalPaid)
		overview.TotalRemaining = overview.TotalRemaining.Add(st.Remaining)
		if st.State == MonthStateLate {
			overview.LateMonths++
		}
	}
	return overview, nil
}

func (e *Engine) monthlyStatus(snap Snapshot, year, month int) (MonthlyStatus, error) {
	cal := snap.Calendar(year)
	if !cal.Contains(month) {
		return MonthlyStatus{}, shared.InvalidInput(fmt.Sprintf(
			"month %d is outside academic year %d (%d-%d)", month, year, cal.StartMonth, cal.EndMonth))
	}
	s, settings, asOf := snap.Student, snap.Settings, snap.AsOf

	status := MonthlyStatus{
		Year:      year,
		Month:     month,
		Currency:  settings.Currency,
		Fee:       decimal.Zero,
		Penalty:   decimal.Zero,
		TotalPaid: monthlyPaid(s, year, month),
		DueDate:   limitDate(year, month, settings.PaymentLimitDay, snap.location()),
	}

	start, exemptYear := effectiveStartMonth(s, cal)
	if exemptYear || month < start {
		status.State = MonthStateExempt
		status.TotalRequired = decimal.Zero
		status.Remaining = decimal.Zero
		return status, nil
	}

	fee, err := e.fees.Resolve(s, ChargeTypeMonthly, settings)
	if err != nil {
		return MonthlyStatus{}, err
	}
	eps := settings.Tolerances.PaidEpsilon
	status.Fee = fee.Amount()

	// A fee settled by payments dated on or before the limit date owes no penalty.
	if e.penalties.IsLate(s, month, year, settings, asOf) &&
		paidBy(s, year, month, endOfDay(status.DueDate)).LessThan(status.Fee.Sub(eps)) {
		surcharge, err := e.penalties.Surcharge(s, settings)
		if err != nil {
			return MonthlyStatus{}, err
		}
		status.Penalty = surcharge.Amount()
		status.PenaltyApplied = true
	}
	status.TotalRequired = status.Fee.Add(status.Penalty)
	status.Remaining = decimal.Max(decimal.Zero, status.TotalRequired.Sub(status.TotalPaid))

	switch {
	case status.TotalPaid.GreaterThanOrEqual(status.TotalRequired.Sub(eps)):
		status.State = MonthStatePaid
	case status.TotalPaid.IsPositive():
		status.State = MonthStatePartial
	case isFutureMonth(year, month, asOf):
		status.State = MonthStateFuture
	case e.penalties.IsPastDue(month, year, settings, asOf):
		status.State = MonthStateLate
	default:
		status.State = MonthStatePending
	}
	return status, nil
}

func monthlyPaid(s *Student, year, month int) decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.MonthlyPaymentsFor(year, month) {
		total = total.Add(p.Amount)
	}
	return total
}
