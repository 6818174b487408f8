package billing

import "time"

// Clock supplies the current date to the engine
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant. Used by tests and by statement
// reprints that must reproduce a past view.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return c.At
}

func monthStart(year, month int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// limitDate is the last day a monthly fee can be paid without penalty. The
// configured day is clamped to the length of the month.
func limitDate(year, month, limitDay int, loc *time.Location) time.Time {
	day := min(limitDay, daysIn(year, month))
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// monthIndex orders (year, month) pairs on a single axis
func monthIndex(year, month int) int {
	return year*12 + month - 1
}

func isFutureMonth(year, month int, asOf time.Time) bool {
	return monthIndex(year, month) > monthIndex(asOf.Year(), int(asOf.Month()))
}

// effectiveStartMonth returns the first billable month of the student in the
// given calendar. exemptYear is true when the student matriculated after it.
func effectiveStartMonth(s *Student, cal AcademicYear) (start int, exemptYear bool) {
	matYear := s.MatriculationDate.Year()
	switch {
	case matYear > cal.Year:
		return cal.EndMonth + 1, true
	case matYear == cal.Year:
		return max(cal.StartMonth, int(s.MatriculationDate.Month())), false
	default:
		return cal.StartMonth, false
	}
}

// isActiveMonth reports whether the student was enrolled (not suspended) in the
// given month. A month is inactive when any suspension period covers it, so
// months skipped during a suspension stay inactive after reactivation.
func isActiveMonth(s *Student, year, month int) bool {
	for _, p := range s.Suspensions {
		if p.covers(year, month) {
			return false
		}
	}
	return true
}

// covers reports whether the month falls inside the period. The suspension
// month is inactive; the reactivation month is active again.
func (p SuspensionPeriod) covers(year, month int) bool {
	current := monthIndex(year, month)
	if current < monthIndex(p.From.Year(), int(p.From.Month())) {
		return false
	}
	if p.To == nil || p.To.Before(p.From) {
		return true
	}
	return current < monthIndex(p.To.Year(), int(p.To.Month()))
}
