// Package budget implements the zero-based budget equation: income minus
// every planned outflow should land on exactly zero.
package budget

import "fintrack/internal/core"

// Summary collects the monthly totals the balancer subtracts from income.
// The projection package supplies the recurring sums, the payoff side
// supplies debt minimums; the balancer itself is pure arithmetic.
type Summary struct {
	Income            core.Money `json:"income"`
	FixedExpenses     core.Money `json:"fixedExpenses"`
	Subscriptions     core.Money `json:"subscriptions"`
	DebtMinimums      core.Money `json:"debtMinimums"`
	GoalContributions core.Money `json:"goalContributions"`
	VariableBudgeted  core.Money `json:"variableBudgeted"`
}

// LeftToAllocate is the income not yet assigned to any bucket. Negative
// means the month is over-allocated.
func (s Summary) LeftToAllocate() core.Money {
	return s.Income.
		Sub(s.FixedExpenses).
		Sub(s.Subscriptions).
		Sub(s.DebtMinimums).
		Sub(s.GoalContributions).
		Sub(s.VariableBudgeted)
}

// Balanced reports whether every cent of income is assigned. The tolerance
// is anything below one currency cent, which in integer cents is exactly
// zero.
func (s Summary) Balanced() bool {
	return s.LeftToAllocate().Cents == 0
}
