package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-ledger/ledger"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func order(amount int64, date time.Time) ledger.Order {
	return ledger.Order{Amount: decimal.NewFromInt(amount), Quantity: 1, Date: date}
}

func TestYearPeriodContains(t *testing.T) {
	p := ledger.YearPeriod(2026)

	for _, in := range []time.Time{day(2026, time.January, 1), day(2026, time.December, 31)} {
		if !p.Contains(in) {
			t.Errorf("Contains(%s) = false, want true", in.Format("2006-01-02"))
		}
	}
	for _, out := range []time.Time{day(2025, time.December, 31), day(2027, time.January, 1)} {
		if p.Contains(out) {
			t.Errorf("Contains(%s) = true, want false", out.Format("2006-01-02"))
		}
	}
}

func TestMonthsRemaining(t *testing.T) {
	cases := []struct {
		month time.Month
		want  int
	}{
		{time.January, 12},
		{time.June, 7},
		{time.November, 2},
		{time.December, 1},
	}
	for _, c := range cases {
		got := ledger.MonthsRemaining(day(2026, c.month, 15))
		if got != c.want {
			t.Errorf("MonthsRemaining(%s) = %d, want %d", c.month, got, c.want)
		}
	}
}

func TestSummarize_MidYear(t *testing.T) {
	pool := ledger.NewYearPool(1, ledger.CategoryBudget, 2026, decimal.NewFromInt(12000))
	pool.ID = 7

	orders := []ledger.Order{
		order(1500, day(2026, time.February, 3)),
		order(500, day(2026, time.May, 20)),
		order(9999, day(2025, time.December, 30)), // outside the year
	}

	s := ledger.Summarize(&pool, orders, 1, ledger.CategoryBudget, 2026, day(2026, time.June, 10))

	if !s.TotalAllocated.Equal(decimal.NewFromInt(12000)) {
		t.Errorf("TotalAllocated = %s, want 12000", s.TotalAllocated)
	}
	if !s.SpentToDate.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("SpentToDate = %s, want 2000", s.SpentToDate)
	}
	if !s.Remaining.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Remaining = %s, want 10000", s.Remaining)
	}
	if s.MonthsRemaining != 7 {
		t.Errorf("MonthsRemaining = %d, want 7", s.MonthsRemaining)
	}
	// 10000 / 7 rounded to cents
	if !s.RecommendedMonthly.Equal(decimal.RequireFromString("1428.57")) {
		t.Errorf("RecommendedMonthly = %s, want 1428.57", s.RecommendedMonthly)
	}
	if s.Health != ledger.HealthHealthy {
		t.Errorf("Health = %s, want healthy", s.Health)
	}
}

func TestSummarize_DecemberUsesOneMonth(t *testing.T) {
	pool := ledger.NewYearPool(1, ledger.CategoryBudget, 2026, decimal.NewFromInt(1200))
	pool.ID = 3

	s := ledger.Summarize(&pool, nil, 1, ledger.CategoryBudget, 2026, day(2026, time.December, 1))

	if s.MonthsRemaining != 1 {
		t.Fatalf("MonthsRemaining = %d, want 1", s.MonthsRemaining)
	}
	if !s.RecommendedMonthly.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("RecommendedMonthly = %s, want 1200", s.RecommendedMonthly)
	}
}

func TestSummarize_NoPoolIsNeutral(t *testing.T) {
	s := ledger.Summarize(nil, nil, 1, ledger.CategoryInvestment, 2026, day(2026, time.March, 1))

	if !s.TotalAllocated.IsZero() || !s.SpentToDate.IsZero() || !s.Remaining.IsZero() {
		t.Errorf("expected all-zero figures, got total=%s spent=%s remaining=%s",
			s.TotalAllocated, s.SpentToDate, s.Remaining)
	}
	if s.Health != ledger.HealthNeutral {
		t.Errorf("Health = %s, want neutral", s.Health)
	}
	if !s.RecommendedMonthly.IsZero() {
		t.Errorf("RecommendedMonthly = %s, want 0", s.RecommendedMonthly)
	}
}

func TestSummarize_OverspentPoolSuggestsNothing(t *testing.T) {
	pool := ledger.NewYearPool(1, ledger.CategoryBudget, 2026, decimal.NewFromInt(1000))
	pool.ID = 5

	orders := []ledger.Order{order(1500, day(2026, time.April, 1))}
	s := ledger.Summarize(&pool, orders, 1, ledger.CategoryBudget, 2026, day(2026, time.July, 1))

	if !s.Remaining.Equal(decimal.NewFromInt(-500)) {
		t.Errorf("Remaining = %s, want -500", s.Remaining)
	}
	if !s.RecommendedMonthly.IsZero() {
		t.Errorf("RecommendedMonthly = %s, want 0 for overspent pool", s.RecommendedMonthly)
	}
	if s.Health != ledger.HealthCritical {
		t.Errorf("Health = %s, want critical", s.Health)
	}
}

func TestSummarize_HealthThresholds(t *testing.T) {
	cases := []struct {
		spent int64
		want  ledger.Health
	}{
		{400, ledger.HealthHealthy},  // remaining 600, 60%
		{501, ledger.HealthWarning},  // remaining 499, just under 50%
		{760, ledger.HealthCritical}, // remaining 240, under 25%
	}
	for _, c := range cases {
		pool := ledger.NewYearPool(1, ledger.CategoryBudget, 2026, decimal.NewFromInt(1000))
		orders := []ledger.Order{order(c.spent, day(2026, time.March, 5))}
		s := ledger.Summarize(&pool, orders, 1, ledger.CategoryBudget, 2026, day(2026, time.August, 1))
		if s.Health != c.want {
			t.Errorf("spent %d: Health = %s, want %s", c.spent, s.Health, c.want)
		}
	}
}

func TestMonthlyAvailable(t *testing.T) {
	pool := ledger.NewYearPool(1, ledger.CategoryBudget, 2026, decimal.NewFromInt(12000))
	orders := []ledger.Order{
		order(300, day(2026, time.September, 2)),
		order(200, day(2026, time.September, 18)),
		order(400, day(2026, time.August, 30)), // different month
	}

	s := ledger.Summarize(&pool, orders, 1, ledger.CategoryBudget, 2026, day(2026, time.September, 1))

	// remaining 11100 over 4 months = 2775; September already spent 500
	got := s.MonthlyAvailable(orders, time.September)
	if !got.Equal(decimal.RequireFromString("2275")) {
		t.Errorf("MonthlyAvailable = %s, want 2275", got)
	}
}
