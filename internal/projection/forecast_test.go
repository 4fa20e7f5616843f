package projection

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestForecast(t *testing.T) {
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
	debts := []core.DebtAccount{
		{
			Name:             "Visa",
			Kind:             core.CreditCard,
			Balance:          core.Money{Cents: 50000},
			APR:              19.99,
			MinimumPayment:   core.Money{Cents: 5000},
			PaymentDay:       10,
			PaymentFrequency: core.PayMonthly,
		},
		{
			Name:             "Old loan",
			Kind:             core.PersonalLoan,
			Balance:          core.Money{},
			MinimumPayment:   core.Money{Cents: 9999},
			PaymentDay:       1,
			PaymentFrequency: core.PayMonthly,
		},
	}

	from := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	got := Forecast(items, debts, from, 3)

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Year != 2024 || got[0].Month != time.January {
		t.Errorf("first month = %d-%s, want 2024-January", got[0].Year, got[0].Month)
	}
	if got[2].Month != time.March {
		t.Errorf("third month = %s, want March", got[2].Month)
	}

	for i, mf := range got {
		if mf.Income.Cents != 300000 {
			t.Errorf("month %d income = %d, want 300000", i, mf.Income.Cents)
		}
		if mf.FixedExpenses.Cents != 100000 {
			t.Errorf("month %d fixed = %d, want 100000", i, mf.FixedExpenses.Cents)
		}
		if mf.Subscriptions.Cents != 1599 {
			t.Errorf("month %d subscriptions = %d, want 1599", i, mf.Subscriptions.Cents)
		}
		// Only the debt carrying a balance counts.
		if mf.DebtMinimums.Cents != 5000 {
			t.Errorf("month %d debt minimums = %d, want 5000", i, mf.DebtMinimums.Cents)
		}
		if want := int64(300000 - 100000 - 1599 - 5000); mf.Net.Cents != want {
			t.Errorf("month %d net = %d, want %d", i, mf.Net.Cents, want)
		}
	}
}

func TestForecastNoMonths(t *testing.T) {
	if got := Forecast(nil, nil, time.Now(), 0); got != nil {
		t.Errorf("Forecast(0 months) = %v, want nil", got)
	}
	if got := Forecast(nil, nil, time.Now(), -1); got != nil {
		t.Errorf("Forecast(-1 months) = %v, want nil", got)
	}
}
