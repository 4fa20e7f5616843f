package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

var plannerToday = time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)

// spyPlanCache counts cache traffic around a real in-memory plan cache.
type spyPlanCache struct {
	inner         cache.PlanCache
	hits          int
	sets          int
	invalidations int
}

func newSpyPlanCache() *spyPlanCache {
	return &spyPlanCache{inner: cache.NewMemoryPlanCache(16, time.Minute)}
}

func (s *spyPlanCache) GetPlan(ctx context.Context, key string) ([]byte, bool) {
	payload, ok := s.inner.GetPlan(ctx, key)
	if ok {
		s.hits++
	}
	return payload, ok
}

func (s *spyPlanCache) SetPlan(ctx context.Context, key string, payload []byte) error {
	s.sets++
	return s.inner.SetPlan(ctx, key, payload)
}

func (s *spyPlanCache) InvalidateAll(ctx context.Context) error {
	s.invalidations++
	return s.inner.InvalidateAll(ctx)
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	items := []core.RecurringItem{
		{
			Name:      "Paycheck",
			Kind:      core.Income,
			Amount:    core.Money{Cents: 300000},
			Frequency: core.Monthly,
			Anchor:    core.StartAnchor(core.NewDate(2023, 1, 1)),
		},
		{
			Name:      "Rent",
			Kind:      core.FixedExpense,
			Amount:    core.Money{Cents: 100000},
			Frequency: core.Monthly,
			Anchor:    core.StartAnchor(core.NewDate(2023, 1, 1)),
		},
		{
			Name:      "Streaming",
			Kind:      core.Subscription,
			Amount:    core.Money{Cents: 1599},
			Frequency: core.Monthly,
			Anchor:    core.RenewalAnchor(core.NewDate(2023, 12, 20), core.Date{}),
		},
	}
	for _, item := range items {
		if _, err := s.CreateRecurringItem(ctx, item); err != nil {
			t.Fatalf("seed recurring item: %v", err)
		}
	}

	debts := []core.DebtAccount{
		{
			Name:             "Visa",
			Kind:             core.CreditCard,
			Balance:          core.Money{Cents: 50000},
			APR:              19.99,
			MinimumPayment:   core.Money{Cents: 5000},
			PaymentDay:       10,
			PaymentFrequency: core.PayMonthly,
			CreatedAt:        time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Name:             "Old loan",
			Kind:             core.PersonalLoan,
			MinimumPayment:   core.Money{Cents: 9999},
			PaymentDay:       1,
			PaymentFrequency: core.PayMonthly,
			CreatedAt:        time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, d := range debts {
		if _, err := s.CreateDebt(ctx, d); err != nil {
			t.Fatalf("seed debt: %v", err)
		}
	}

	if _, err := s.CreateGoal(ctx, core.FinancialGoal{
		Name:                "Emergency fund",
		TargetAmount:        core.Money{Cents: 1000000},
		MonthlyContribution: core.Money{Cents: 20000},
	}); err != nil {
		t.Fatalf("seed goal: %v", err)
	}

	if _, err := s.UpsertAllocation(ctx, core.BudgetAllocation{
		Category: "groceries",
		Year:     2024,
		Month:    3,
		Planned:  core.Money{Cents: 50000},
	}); err != nil {
		t.Fatalf("seed allocation: %v", err)
	}
	return s
}

func TestMonthlySummary(t *testing.T) {
	planner := NewPlannerService(seedStore(t), nil, nil, 12)

	got, err := planner.MonthlySummary(context.Background(), 2024, time.March)
	if err != nil {
		t.Fatalf("MonthlySummary() error = %v", err)
	}

	if got.Income.Cents != 300000 {
		t.Errorf("Income = %d, want 300000", got.Income.Cents)
	}
	if got.FixedExpenses.Cents != 100000 {
		t.Errorf("FixedExpenses = %d, want 100000", got.FixedExpenses.Cents)
	}
	if got.Subscriptions.Cents != 1599 {
		t.Errorf("Subscriptions = %d, want 1599", got.Subscriptions.Cents)
	}
	// The zero-balance loan's minimum does not count.
	if got.DebtMinimums.Cents != 5000 {
		t.Errorf("DebtMinimums = %d, want 5000", got.DebtMinimums.Cents)
	}
	if got.GoalContributions.Cents != 20000 {
		t.Errorf("GoalContributions = %d, want 20000", got.GoalContributions.Cents)
	}
	if got.VariableBudgeted.Cents != 50000 {
		t.Errorf("VariableBudgeted = %d, want 50000", got.VariableBudgeted.Cents)
	}
	if want := int64(300000 - 100000 - 1599 - 5000 - 20000 - 50000); got.LeftToAllocate().Cents != want {
		t.Errorf("LeftToAllocate = %d, want %d", got.LeftToAllocate().Cents, want)
	}
}

func TestUpcomingOccurrences(t *testing.T) {
	planner := NewPlannerService(seedStore(t), nil, nil, 12)

	got, err := planner.UpcomingOccurrences(context.Background(), plannerToday)
	if err != nil {
		t.Fatalf("UpcomingOccurrences() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	byName := map[string]UpcomingItem{}
	for _, u := range got {
		byName[u.Name] = u
	}
	if d := byName["Paycheck"].Date; !d.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Paycheck next = %v, want 2024-04-01", d)
	}
	// The renewal series from Dec 20 lands exactly on today.
	if d := byName["Streaming"].Date; !d.Equal(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Streaming next = %v, want 2024-03-20", d)
	}
}

func TestUpcomingDebtPayments(t *testing.T) {
	planner := NewPlannerService(seedStore(t), nil, nil, 12)

	got, err := planner.UpcomingDebtPayments(context.Background(), plannerToday)
	if err != nil {
		t.Fatalf("UpcomingDebtPayments() error = %v", err)
	}
	// The zero-balance loan is excluded.
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Name != "Visa" {
		t.Errorf("debt = %q, want Visa", got[0].Name)
	}
	if !got[0].Date.Equal(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("next payment = %v, want 2024-04-10", got[0].Date)
	}
}

func TestPayoffPlanCaching(t *testing.T) {
	spy := newSpyPlanCache()
	planner := NewPlannerService(seedStore(t), spy, nil, 12)
	ctx := context.Background()

	first, err := planner.PayoffPlan(ctx, core.Snowball, plannerToday)
	if err != nil {
		t.Fatalf("PayoffPlan() error = %v", err)
	}
	if spy.sets != 1 {
		t.Errorf("sets after first call = %d, want 1", spy.sets)
	}
	if spy.hits != 0 {
		t.Errorf("hits after first call = %d, want 0", spy.hits)
	}

	second, err := planner.PayoffPlan(ctx, core.Snowball, plannerToday)
	if err != nil {
		t.Fatalf("PayoffPlan() second call error = %v", err)
	}
	if spy.hits != 1 {
		t.Errorf("hits after second call = %d, want 1", spy.hits)
	}
	if spy.sets != 1 {
		t.Errorf("sets after second call = %d, want 1", spy.sets)
	}
	if second.TotalMonths != first.TotalMonths {
		t.Errorf("cached TotalMonths = %d, want %d", second.TotalMonths, first.TotalMonths)
	}

	// A different strategy misses and recomputes.
	if _, err := planner.PayoffPlan(ctx, core.Avalanche, plannerToday); err != nil {
		t.Fatalf("PayoffPlan(avalanche) error = %v", err)
	}
	if spy.sets != 2 {
		t.Errorf("sets after avalanche = %d, want 2", spy.sets)
	}

	// Invalidation drops everything; the next call recomputes.
	if err := planner.InvalidatePlans(ctx); err != nil {
		t.Fatalf("InvalidatePlans() error = %v", err)
	}
	if _, err := planner.PayoffPlan(ctx, core.Snowball, plannerToday); err != nil {
		t.Fatalf("PayoffPlan() after invalidation error = %v", err)
	}
	if spy.sets != 3 {
		t.Errorf("sets after invalidation = %d, want 3", spy.sets)
	}
}

func TestNotifyChangeInvalidates(t *testing.T) {
	spy := newSpyPlanCache()
	planner := NewPlannerService(seedStore(t), spy, nil, 12)

	planner.NotifyChange(context.Background(), "debt", 1, "updated")
	if spy.invalidations != 1 {
		t.Errorf("invalidations = %d, want 1", spy.invalidations)
	}
}

func TestCachedForecast(t *testing.T) {
	st := seedStore(t)
	planner := NewPlannerService(st, nil, nil, 6)
	ctx := context.Background()

	// No snapshot yet: the first read computes and persists one.
	forecast, generatedAt, err := planner.CachedForecast(ctx, plannerToday)
	if err != nil {
		t.Fatalf("CachedForecast() error = %v", err)
	}
	if len(forecast) != 6 {
		t.Fatalf("len(forecast) = %d, want 6", len(forecast))
	}
	if !generatedAt.Equal(plannerToday) {
		t.Errorf("generatedAt = %v, want %v", generatedAt, plannerToday)
	}
	if forecast[0].Month != time.March || forecast[0].Year != 2024 {
		t.Errorf("first month = %d-%s, want 2024-March", forecast[0].Year, forecast[0].Month)
	}
	if want := int64(300000 - 100000 - 1599 - 5000); forecast[0].Net.Cents != want {
		t.Errorf("net = %d, want %d", forecast[0].Net.Cents, want)
	}

	// A later read serves the stored snapshot, not a fresh computation.
	later := plannerToday.AddDate(0, 0, 3)
	_, againAt, err := planner.CachedForecast(ctx, later)
	if err != nil {
		t.Fatalf("CachedForecast() second read error = %v", err)
	}
	if !againAt.Equal(plannerToday) {
		t.Errorf("second generatedAt = %v, want original %v", againAt, plannerToday)
	}

	// An explicit refresh replaces it.
	if err := planner.RefreshForecastSnapshot(ctx, later); err != nil {
		t.Fatalf("RefreshForecastSnapshot() error = %v", err)
	}
	_, refreshedAt, err := planner.CachedForecast(ctx, later)
	if err != nil {
		t.Fatalf("CachedForecast() after refresh error = %v", err)
	}
	if !refreshedAt.Equal(later) {
		t.Errorf("refreshed generatedAt = %v, want %v", refreshedAt, later)
	}
}
