package ledger

import "time"

// =============================================================================
// PERIOD - Pool validity window and spend aggregation boundary
// =============================================================================

// Period is a closed date range [Start, End]. Pools always span a full
// calendar year in current usage, but the model allows arbitrary ranges.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t falls within the period (day granularity).
func (p Period) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(DateOf(p.Start)) && !d.After(DateOf(p.End))
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// YearPeriod returns the Jan 1 - Dec 31 window for a year.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DateOf truncates t to UTC midnight. All ledger dates are day-granular.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func StartOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfYear(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// MonthsRemaining counts calendar months left in now's year, the current
// month included, floored at 1 so projections never divide by zero.
func MonthsRemaining(now time.Time) int {
	remaining := 12 - int(now.Month()) + 1
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}
