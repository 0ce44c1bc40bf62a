/*
summary.go - Aggregation engine for running and projected balances

PURPOSE:
  Pure, read-only computation layer. Given a pool, the orders attached to
  it and an explicit current date, derives total allocated, spent-to-date,
  remaining balance and the recommended monthly spend. Never reads the
  ambient clock, so every figure is reproducible in tests.

KEY RULES:
  - spentToDate sums order amounts whose own date falls inside the
    requested year; attachment linkage is not re-validated against the
    pool's period.
  - remaining may go negative and is surfaced as-is so over-spend is
    visible, never clamped.
  - recommendedMonthly spreads a positive remainder over the calendar
    months left in the current year (current month included, floored at 1).

SEE ALSO:
  - period.go: MonthsRemaining
  - api/handlers.go: GetPoolSummary consumes these figures
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HEALTH - Reporting classification, never stored
// =============================================================================

type Health string

const (
	HealthNeutral  Health = "neutral"  // no allocation at all
	HealthCritical Health = "critical" // remaining < 25% of total
	HealthWarning  Health = "warning"  // remaining < 50% of total
	HealthHealthy  Health = "healthy"
)

// classify maps remaining/total to a reporting color.
func classify(total, remaining decimal.Decimal) Health {
	if total.IsZero() {
		return HealthNeutral
	}
	ratio := remaining.Div(total)
	switch {
	case ratio.LessThan(decimal.NewFromFloat(0.25)):
		return HealthCritical
	case ratio.LessThan(decimal.NewFromFloat(0.5)):
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// =============================================================================
// SUMMARY - Derived figures for one (department, year, category)
// =============================================================================

type Summary struct {
	DepartmentID DepartmentID
	Category     Category
	Year         int

	TotalAllocated     decimal.Decimal
	SpentToDate        decimal.Decimal
	Remaining          decimal.Decimal
	MonthsRemaining    int
	RecommendedMonthly decimal.Decimal
	Health             Health
}

// Summarize computes the full figure set for one category. pool may be nil
// when the department has no pool of that category for the year; every
// monetary figure is then zero and health is neutral.
func Summarize(pool *Pool, orders []Order, departmentID DepartmentID, category Category, year int, now time.Time) Summary {
	s := Summary{
		DepartmentID:       departmentID,
		Category:           category,
		Year:               year,
		TotalAllocated:     decimal.Zero,
		SpentToDate:        SpentToDate(orders, year),
		MonthsRemaining:    MonthsRemaining(now),
		RecommendedMonthly: decimal.Zero,
	}
	if pool != nil {
		s.TotalAllocated = pool.Amount
	}
	s.Remaining = s.TotalAllocated.Sub(s.SpentToDate)

	if s.Remaining.IsPositive() {
		s.RecommendedMonthly = s.Remaining.
			Div(decimal.NewFromInt(int64(s.MonthsRemaining))).
			Round(2)
	}
	s.Health = classify(s.TotalAllocated, s.Remaining)
	return s
}

// SpentToDate sums order amounts dated within the year. Orders attached to
// the pool but dated outside the year are excluded.
func SpentToDate(orders []Order, year int) decimal.Decimal {
	window := YearPeriod(year)
	total := decimal.Zero
	for _, o := range orders {
		if window.Contains(o.Date) {
			total = total.Add(o.Amount)
		}
	}
	return total
}

// SpentInMonth sums order amounts dated within one month of the year.
func SpentInMonth(orders []Order, year int, month time.Month) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		d := DateOf(o.Date)
		if d.Year() == year && d.Month() == month {
			total = total.Add(o.Amount)
		}
	}
	return total
}

// MonthlyAvailable is the recommended monthly spend minus what the
// selected month has already consumed.
func (s Summary) MonthlyAvailable(orders []Order, month time.Month) decimal.Decimal {
	return s.RecommendedMonthly.Sub(SpentInMonth(orders, s.Year, month))
}
