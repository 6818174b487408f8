package billing

import (
	"fmt"
	"time"

	"github.com/escola/backend/internal/domain/shared"
)

// Snapshot is everything the engine reads for one computation. Every call
// recomputes from the snapshot; the engine keeps no state between calls.
type Snapshot struct {
	Student  *Student
	Settings FinancialSettings
	Years    []AcademicYear
	AsOf     time.Time
}

// Validate normalizes the snapshot's containers and rejects data the engine
// cannot reason about. It is the single boundary check for external data.
func (s *Snapshot) Validate() error {
	if s.Student == nil {
		return shared.InvalidInput("student is required")
	}
	if s.AsOf.IsZero() {
		return shared.InvalidInput("reference date is required")
	}
	s.Student.Normalize()
	s.Settings.Normalize()
	if s.Years == nil {
		s.Years = []AcademicYear{}
	}
	if err := s.Student.Validate(); err != nil {
		return err
	}
	if err := s.Settings.Validate(); err != nil {
		return err
	}
	seen := make(map[int]struct{}, len(s.Years))
	for _, y := range s.Years {
		if err := y.Validate(); err != nil {
			return err
		}
		if _, dup := seen[y.Year]; dup {
			return shared.InvalidInput(fmt.Sprintf("academic year %d is defined twice", y.Year))
		}
		seen[y.Year] = struct{}{}
	}
	return nil
}

// Calendar returns the billing calendar of a year
func (s Snapshot) Calendar(year int) AcademicYear {
	return s.Settings.CalendarFor(year, s.Years)
}

func (s Snapshot) location() *time.Location {
	return s.AsOf.Location()
}

// Engine is the entry point of the billing computation
type Engine struct {
	fees      FeeResolver
	penalties PenaltyCalculator
	auditor   DebtAuditor
	ledger    LedgerBuilder
}

// NewEngine wires the engine components
func NewEngine() *Engine {
	fees := NewFeeResolver()
	penalties := NewPenaltyCalculator(fees)
	return &Engine{
		fees:      fees,
		penalties: penalties,
		auditor:   NewDebtAuditor(fees),
		ledger:    NewLedgerBuilder(fees, penalties),
	}
}

// Fees returns the engine's fee resolver
func (e *Engine) Fees() FeeResolver {
	return e.fees
}

// Penalties returns the engine's penalty calculator
func (e *Engine) Penalties() PenaltyCalculator {
	return e.penalties
}

// AuditDebt runs the debt auditor for a registration in targetYear
func (e *Engine) AuditDebt(snap Snapshot, targetYear int) (DebtAudit, error) {
	if err := snap.Validate(); err != nil {
		return DebtAudit{}, err
	}
	return e.auditor.Audit(snap, targetYear), nil
}

// Ledger builds the statement of a year
func (e *Engine) Ledger(snap Snapshot, year int) (*Ledger, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return e.ledger.Build(snap, year)
}
