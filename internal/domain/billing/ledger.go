package billing

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/escola/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind is the side of a ledger entry
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

// EntryCategory tags what a ledger entry represents
type EntryCategory string

const (
	EntryCategoryMonthlyFee  EntryCategory = "MONTHLY_FEE"
	EntryCategoryPenalty     EntryCategory = "PENALTY"
	EntryCategoryExtraCharge EntryCategory = "EXTRA_CHARGE"
	EntryCategoryEnrollment  EntryCategory = "ENROLLMENT"
	EntryCategoryRenewal     EntryCategory = "RENEWAL"
	EntryCategoryUniform     EntryCategory = "UNIFORM"
	EntryCategoryMaterial    EntryCategory = "MATERIAL"
	EntryCategoryPayment     EntryCategory = "PAYMENT"
)

// itemCategories maps the payment types whose items appear as charges
var itemCategories = map[PaymentType]EntryCategory{
	PaymentTypeEnrollment: EntryCategoryEnrollment,
	PaymentTypeRenewal:    EntryCategoryRenewal,
	PaymentTypeUniform:    EntryCategoryUniform,
	PaymentTypeMaterial:   EntryCategoryMaterial,
}

// LedgerEntry is one line of a student statement
type LedgerEntry struct {
	Date           time.Time       `json:"date"`
	Kind           EntryKind       `json:"kind"`
	Category       EntryCategory   `json:"category"`
	Description    string          `json:"description"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Balance        decimal.Decimal `json:"balance"`
	ReferenceMonth *int            `json:"reference_month,omitempty"`
	SourceID       *uuid.UUID      `json:"source_id,omitempty"`
}

// Amount returns the non-zero side of the entry
func (e LedgerEntry) Amount() decimal.Decimal {
	if e.Kind == EntryKindCredit {
		return e.Credit
	}
	return e.Debit
}

// Ledger is the chronological statement of one student for one year.
// A positive Balance is outstanding debt.
type Ledger struct {
	StudentID   uuid.UUID            `json:"student_id"`
	Year        int                  `json:"year"`
	Currency    valueobject.Currency `json:"currency"`
	Entries     []LedgerEntry        `json:"entries"`
	TotalDebit  decimal.Decimal      `json:"total_debit"`
	TotalCredit decimal.Decimal      `json:"total_credit"`
	Balance     decimal.Decimal      `json:"balance"`
	AsOf        time.Time            `json:"as_of"`
}

// LedgerBuilder assembles statements. It never mutates the snapshot.
type LedgerBuilder struct {
	fees      FeeResolver
	penalties PenaltyCalculator
}

// NewLedgerBuilder creates a LedgerBuilder
func NewLedgerBuilder(fees FeeResolver, penalties PenaltyCalculator) LedgerBuilder {
	return LedgerBuilder{fees: fees, penalties: penalties}
}

// Build produces the statement of a year as of snap.AsOf. The snapshot must
// already be validated.
func (b LedgerBuilder) Build(snap Snapshot, year int) (*Ledger, error) {
	entries, err := b.monthlyEntries(snap, year)
	if err != nil {
		return nil, err
	}
	entries = append(entries, extraChargeEntries(snap.Student, year)...)
	entries = append(entries, paymentEntries(snap.Student, year)...)

	slices.SortStableFunc(entries, func(a, b LedgerEntry) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(kindOrder(a.Kind), kindOrder(b.Kind))
	})

	ledger := &Ledger{
		StudentID:   snap.Student.ID,
		Year:        year,
		Currency:    snap.Settings.Currency,
		Entries:     entries,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Balance:     decimal.Zero,
		AsOf:        snap.AsOf,
	}
	for i := range ledger.Entries {
		e := &ledger.Entries[i]
		ledger.TotalDebit = ledger.TotalDebit.Add(e.Debit)
		ledger.TotalCredit = ledger.TotalCredit.Add(e.Credit)
		ledger.Balance = ledger.Balance.Add(e.Debit).Sub(e.Credit)
		e.Balance = ledger.Balance
	}
	return ledger, nil
}

// monthlyEntries charges every elapsed billable month and a penalty for each
// month not covered by payments dated on or before its limit date.
func (b LedgerBuilder) monthlyEntries(snap Snapshot, year int) ([]LedgerEntry, error) {
	s, settings, asOf := snap.Student, snap.Settings, snap.AsOf
	cal := snap.Calendar(year)

	start, exemptYear := effectiveStartMonth(s, cal)
	last := lastElapsedMonth(cal, asOf)
	if exemptYear || start > last {
		return []LedgerEntry{}, nil
	}

	fee, err := b.fees.Resolve(s, ChargeTypeMonthly, settings)
	if err != nil {
		return nil, err
	}
	surcharge, err := b.penalties.Surcharge(s, settings)
	if err != nil {
		return nil, err
	}

	loc := snap.location()
	entries := make([]LedgerEntry, 0, last-start+1)
	for m := start; m <= last; m++ {
		month := m
		entries = append(entries, LedgerEntry{
			Date:           monthStart(year, m, loc),
			Kind:           EntryKindDebit,
			Category:       EntryCategoryMonthlyFee,
			Description:    fmt.Sprintf("Monthly fee - %s %d", time.Month(m), year),
			Debit:          fee.Amount(),
			Credit:         decimal.Zero,
			ReferenceMonth: &month,
		})

		if !surcharge.IsPositive() || !b.penalties.IsLate(s, m, year, settings, asOf) {
			continue
		}
		due := limitDate(year, m, settings.PaymentLimitDay, loc)
		onTime := paidBy(s, year, m, endOfDay(due))
		if onTime.GreaterThanOrEqual(fee.Amount().Sub(settings.Tolerances.PaidEpsilon)) {
			continue
		}
		entries = append(entries, LedgerEntry{
			Date:           due.AddDate(0, 0, 1),
			Kind:           EntryKindDebit,
			Category:       EntryCategoryPenalty,
			Description:    fmt.Sprintf("Late payment penalty - %s %d", time.Month(m), year),
			Debit:          surcharge.Amount(),
			Credit:         decimal.Zero,
			ReferenceMonth: &month,
		})
	}
	return entries, nil
}

func extraChargeEntries(s *Student, year int) []LedgerEntry {
	entries := make([]LedgerEntry, 0)
	for _, c := range s.ExtraCharges {
		if c.Date.Year() != year {
			continue
		}
		id := c.ID
		entries = append(entries, LedgerEntry{
			Date:        c.Date,
			Kind:        EntryKindDebit,
			Category:    EntryCategoryExtraCharge,
			Description: c.Description,
			Debit:       c.Amount,
			Credit:      decimal.Zero,
			SourceID:    &id,
		})
	}
	return entries
}

// paymentEntries credits every payment of the year. Registration, uniform and
// material payments also show their items as the charges they settle.
func paymentEntries(s *Student, year int) []LedgerEntry {
	entries := make([]LedgerEntry, 0)
	for _, p := range s.PaymentsForYear(year) {
		id := p.ID
		if category, ok := itemCategories[p.Type]; ok {
			if len(p.Items) == 0 {
				entries = append(entries, LedgerEntry{
					Date:        p.Date,
					Kind:        EntryKindDebit,
					Category:    category,
					Description: p.Type.Label(),
					Debit:       p.Amount,
					Credit:      decimal.Zero,
					SourceID:    &id,
				})
			}
			for _, item := range p.Items {
				entries = append(entries, LedgerEntry{
					Date:        p.Date,
					Kind:        EntryKindDebit,
					Category:    category,
					Description: item.Label,
					Debit:       item.Value,
					Credit:      decimal.Zero,
					SourceID:    &id,
				})
			}
		}
		entries = append(entries, LedgerEntry{
			Date:           p.Date,
			Kind:           EntryKindCredit,
			Category:       EntryCategoryPayment,
			Description:    p.Description(),
			Debit:          decimal.Zero,
			Credit:         p.Amount,
			ReferenceMonth: p.ReferenceMonth,
			SourceID:       &id,
		})
	}
	return entries
}

// lastElapsedMonth is the last month of the calendar charged as of asOf.
// Future years return a month before StartMonth.
func lastElapsedMonth(cal AcademicYear, asOf time.Time) int {
	switch {
	case cal.Year < asOf.Year():
		return cal.EndMonth
	case cal.Year > asOf.Year():
		return cal.StartMonth - 1
	}
	return min(int(asOf.Month()), cal.EndMonth)
}

func paidBy(s *Student, year, month int, cutoff time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.MonthlyPaymentsFor(year, month) {
		if !p.Date.After(cutoff) {
			total = total.Add(p.Amount)
		}
	}
	return total
}

func kindOrder(k EntryKind) int {
	if k == EntryKindDebit {
		return 0
	}
	return 1
}
