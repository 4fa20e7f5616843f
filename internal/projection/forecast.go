package projection

import (
	"time"

	"fintrack/internal/core"
)

// MonthForecast aggregates projected cash flow for one calendar month.
type MonthForecast struct {
	Year          int        `json:"year"`
	Month         time.Month `json:"month"`
	Income        core.Money `json:"income"`
	FixedExpenses core.Money `json:"fixedExpenses"`
	Subscriptions core.Money `json:"subscriptions"`
	DebtMinimums  core.Money `json:"debtMinimums"`
	Net           core.Money `json:"net"`
}

// Forecast projects months consecutive calendar months starting with the
// month containing from. Debt minimum payments are counted once per month
// for debts still carrying a balance, matching how the budget balancer
// treats them.
func Forecast(items []core.RecurringItem, debts []core.DebtAccount, from time.Time, months int) []MonthForecast {
	if months <= 0 {
		return nil
	}

	var debtMinimums int64
	for _, d := range debts {
		if d.Balance.Cents > 0 {
			debtMinimums += d.MinimumPayment.Cents
		}
	}

	out := make([]MonthForecast, 0, months)
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < months; i++ {
		start, end := MonthWindow(cursor.Year(), cursor.Month())
		mf := MonthForecast{
			Year:         cursor.Year(),
			Month:        cursor.Month(),
			DebtMinimums: core.Money{Cents: debtMinimums},
		}
		for _, item := range items {
			c := MonthContribution(item, start, end)
			switch item.Kind {
			case core.Income:
				mf.Income = mf.Income.Add(c)
			case core.Subscription:
				mf.Subscriptions = mf.Subscriptions.Add(c)
			case core.FixedExpense:
				mf.FixedExpenses = mf.FixedExpenses.Add(c)
			}
		}
		mf.Net = mf.Income.Sub(mf.FixedExpenses).Sub(mf.Subscriptions).Sub(mf.DebtMinimums)
		out = append(out, mf)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}
