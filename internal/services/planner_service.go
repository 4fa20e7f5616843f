// Package services wires the planning engine to storage, the plan cache
// and the message bus.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/payoff"
	"fintrack/internal/projection"
	"fintrack/internal/store"
)

// PlannerService exposes the read-side planning operations: monthly
// summaries, upcoming occurrences, payoff plans and forecasts.
type PlannerService struct {
	store          store.Store
	plans          cache.PlanCache
	bus            *amqp.Client
	forecastMonths int
}

// NewPlannerService creates a planner. The bus may be nil when running
// without a message broker; change notifications are then local only.
func NewPlannerService(st store.Store, plans cache.PlanCache, bus *amqp.Client, forecastMonths int) *PlannerService {
	if plans == nil {
		plans = cache.NewMemoryPlanCache(64, 10*time.Minute)
	}
	if forecastMonths <= 0 {
		forecastMonths = 12
	}
	return &PlannerService{
		store:          st,
		plans:          plans,
		bus:            bus,
		forecastMonths: forecastMonths,
	}
}

// UpcomingItem is one projected occurrence for display.
type UpcomingItem struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Kind   core.ItemKind `json:"kind"`
	Amount core.Money    `json:"amount"`
	Date   core.Date     `json:"date"`
	Ended  bool          `json:"ended"`
}

// DebtPayment is the next scheduled payment for one debt.
type DebtPayment struct {
	DebtID  int64      `json:"debtId"`
	Name    string     `json:"name"`
	Minimum core.Money `json:"minimum"`
	Date    core.Date  `json:"date"`
}

// UpcomingOccurrences projects the next occurrence of every recurring
// item on or after today. Items whose anchor is missing are skipped;
// they cannot be projected and validation should have rejected them.
func (s *PlannerService) UpcomingOccurrences(ctx context.Context, today time.Time) ([]UpcomingItem, error) {
	items, err := s.store.ListRecurringItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring items: %w", err)
	}

	out := make([]UpcomingItem, 0, len(items))
	for _, item := range items {
		occ, err := projection.NextOccurrence(item, today)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unprojectable recurring item",
				"id", item.ID,
				"name", item.Name,
				"error", err)
			continue
		}
		out = append(out, UpcomingItem{
			ID:     item.ID,
			Name:   item.Name,
			Kind:   item.Kind,
			Amount: item.Amount,
			Date:   core.Date{Time: occ.Date},
			Ended:  occ.Ended,
		})
	}
	return out, nil
}

// UpcomingDebtPayments lists the next payment date for every debt still
// carrying a balance.
func (s *PlannerService) UpcomingDebtPayments(ctx context.Context, today time.Time) ([]DebtPayment, error) {
	debts, err := s.store.ListDebts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}

	out := make([]DebtPayment, 0, len(debts))
	for _, d := range debts {
		if d.Balance.Cents <= 0 {
			continue
		}
		out = append(out, DebtPayment{
			DebtID:  d.ID,
			Name:    d.Name,
			Minimum: d.MinimumPayment,
			Date:    core.Date{Time: projection.DebtNextPayment(d, today)},
		})
	}
	return out, nil
}

// MonthlySummary assembles the zero-based budget view for one calendar
// month: projected income and outflows, goal contributions and planned
// variable spending.
func (s *PlannerService) MonthlySummary(ctx context.Context, year int, month time.Month) (budget.Summary, error) {
	items, err := s.store.ListRecurringItems(ctx)
	if err != nil {
		return budget.Summary{}, fmt.Errorf("list recurring items: %w", err)
	}
	debts, err := s.store.ListDebts(ctx)
	if err != nil {
		return budget.Summary{}, fmt.Errorf("list debts: %w", err)
	}
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return budget.Summary{}, fmt.Errorf("list goals: %w", err)
	}
	allocs, err := s.store.ListAllocations(ctx, year, int(month))
	if err != nil {
		return budget.Summary{}, fmt.Errorf("list allocations: %w", err)
	}

	start, end := projection.MonthWindow(year, month)
	var summary budget.Summary
	for _, item := range items {
		c := projection.MonthContribution(item, start, end)
		switch item.Kind {
		case core.Income:
			summary.Income = summary.Income.Add(c)
		case core.Subscription:
			summary.Subscriptions = summary.Subscriptions.Add(c)
		case core.FixedExpense:
			summary.FixedExpenses = summary.FixedExpenses.Add(c)
		}
	}
	for _, d := range debts {
		if d.Balance.Cents > 0 {
			summary.DebtMinimums = summary.DebtMinimums.Add(d.MinimumPayment)
		}
	}
	for _, g := range goals {
		summary.GoalContributions = summary.GoalContributions.Add(g.MonthlyContribution)
	}
	for _, a := range allocs {
		summary.VariableBudgeted = summary.VariableBudgeted.Add(a.Planned)
	}
	return summary, nil
}

// PayoffPlan simulates the payoff of all stored debts under strategy.
// Results are cached keyed on the debts, the strategy and the day; any
// data change invalidates the cache through NotifyChange.
func (s *PlannerService) PayoffPlan(ctx context.Context, strategy core.Strategy, today time.Time) (payoff.Plan, error) {
	debts, err := s.store.ListDebts(ctx)
	if err != nil {
		return payoff.Plan{}, fmt.Errorf("list debts: %w", err)
	}

	key := planCacheKey(debts, string(strategy), today)
	if cached, ok := s.plans.GetPlan(ctx, key); ok {
		var plan payoff.Plan
		if err := json.Unmarshal(cached, &plan); err == nil {
			return plan, nil
		}
		// A corrupt entry falls through to recomputation.
	}

	plan := payoff.Simulate(debts, strategy, today)

	if payload, err := json.Marshal(plan); err == nil {
		if err := s.plans.SetPlan(ctx, key, payload); err != nil {
			slog.WarnContext(ctx, "Failed to cache payoff plan", "error", err)
		}
	}
	return plan, nil
}

// ComparePlans runs snowball and avalanche over the stored debts.
func (s *PlannerService) ComparePlans(ctx context.Context, today time.Time) (payoff.Comparison, error) {
	debts, err := s.store.ListDebts(ctx)
	if err != nil {
		return payoff.Comparison{}, fmt.Errorf("list debts: %w", err)
	}
	return payoff.Compare(debts, today), nil
}

// Forecast projects cash flow for the configured number of months.
func (s *PlannerService) Forecast(ctx context.Context, from time.Time) ([]projection.MonthForecast, error) {
	items, err := s.store.ListRecurringItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring items: %w", err)
	}
	debts, err := s.store.ListDebts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	return projection.Forecast(items, debts, from, s.forecastMonths), nil
}

// RefreshForecastSnapshot recomputes the forecast and persists it so
// dashboards can read the latest projection without recomputing.
func (s *PlannerService) RefreshForecastSnapshot(ctx context.Context, now time.Time) error {
	forecast, err := s.Forecast(ctx, now)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(forecast)
	if err != nil {
		return fmt.Errorf("marshal forecast: %w", err)
	}
	if err := s.store.SaveForecastSnapshot(ctx, now, payload); err != nil {
		return fmt.Errorf("save forecast snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Refreshed forecast snapshot",
		"months", len(forecast),
		"generated_at", now.Format(time.RFC3339))
	return nil
}

// CachedForecast returns the stored forecast snapshot, or recomputes and
// stores one when none exists yet.
func (s *PlannerService) CachedForecast(ctx context.Context, now time.Time) ([]projection.MonthForecast, time.Time, error) {
	payload, generatedAt, err := s.store.ForecastSnapshot(ctx)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.RefreshForecastSnapshot(ctx, now); err != nil {
			return nil, time.Time{}, err
		}
		payload, generatedAt, err = s.store.ForecastSnapshot(ctx)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load forecast snapshot: %w", err)
	}

	var forecast []projection.MonthForecast
	if err := json.Unmarshal(payload, &forecast); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshal forecast snapshot: %w", err)
	}
	return forecast, generatedAt, nil
}

// InvalidatePlans drops every cached payoff plan.
func (s *PlannerService) InvalidatePlans(ctx context.Context) error {
	return s.plans.InvalidateAll(ctx)
}

// NotifyChange invalidates cached plans and, when a bus is configured,
// tells the planner worker to refresh the forecast snapshot.
func (s *PlannerService) NotifyChange(ctx context.Context, entity string, id int64, reason string) {
	if err := s.plans.InvalidateAll(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate plan cache", "error", err)
	}
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishPlanRefresh(ctx, entity, id, reason); err != nil {
		slog.WarnContext(ctx, "Failed to publish plan refresh",
			"entity", entity,
			"id", id,
			"error", err)
	}
}

// planCacheKey digests everything the simulation depends on: the day,
// the strategy and every debt field that feeds the math.
func planCacheKey(debts []core.DebtAccount, strategy string, today time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", strategy, today.Format("2006-01-02"))
	for _, d := range debts {
		fmt.Fprintf(h, "|%d:%d:%f:%d", d.ID, d.Balance.Cents, d.APR, d.MinimumPayment.Cents)
	}
	return hex.EncodeToString(h.Sum(nil))
}
