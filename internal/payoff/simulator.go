// Package payoff simulates month-by-month debt amortization under the
// snowball and avalanche strategies.
//
// The simulation is a pure "what if" over caller-supplied snapshots: debt
// records are copied into working state and never mutated. Amounts are
// decimals and no rounding happens mid-simulation; presentation decides
// how to round.
package payoff

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// MaxMonths caps the simulation horizon. A debt whose minimum payment
// never outruns accruing interest would otherwise loop forever; hitting
// the cap is surfaced through Plan.Capped and a MonthsToPayoff equal to
// MaxMonths on every unpaid debt.
const MaxMonths = 360

var monthsPerYear = decimal.NewFromInt(12)
var hundred = decimal.NewFromInt(100)

// ScheduleRow is one month of a debt's amortization schedule.
type ScheduleRow struct {
	Month            int             `json:"month"`
	Payment          decimal.Decimal `json:"payment"`
	Interest         decimal.Decimal `json:"interest"`
	Principal        decimal.Decimal `json:"principal"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
}

// DebtPlan is the per-debt outcome of a simulation run.
type DebtPlan struct {
	DebtID          int64           `json:"debtId"`
	Name            string          `json:"name"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
	Schedule        []ScheduleRow   `json:"schedule"`
	PaidOff         bool            `json:"paidOff"`
	PayoffDate      time.Time       `json:"payoffDate"`
	MonthsToPayoff  int             `json:"monthsToPayoff"`
	InterestPaid    decimal.Decimal `json:"interestPaid"`
}

// Plan is the full result of one simulation run.
type Plan struct {
	Strategy            core.Strategy   `json:"strategy"`
	Debts               []DebtPlan      `json:"debts"` // in strategy order
	TotalMonths         int             `json:"totalMonths"`
	TotalInterest       decimal.Decimal `json:"totalInterest"`
	EstimatedPayoffDate time.Time       `json:"estimatedPayoffDate"`
	// Capped is set when the month cap was reached with debts still
	// unpaid; the schedules then hold the last computed state rather
	// than a real payoff.
	Capped bool `json:"capped"`
}

// Comparison runs both strategies over the same debts and reports what
// avalanche saves relative to snowball.
type Comparison struct {
	Snowball      Plan            `json:"snowball"`
	Avalanche     Plan            `json:"avalanche"`
	InterestSaved decimal.Decimal `json:"interestSaved"`
	MonthsSaved   int             `json:"monthsSaved"`
}

// working state for one debt during a run; discarded afterwards.
type debtState struct {
	debt         core.DebtAccount
	balance      decimal.Decimal
	minimum      decimal.Decimal
	monthlyRate  decimal.Decimal
	paidOff      bool
	payoffDate   time.Time
	months       int
	interestPaid decimal.Decimal
	schedule     []ScheduleRow
}

// Simulate produces the complete payoff plan for debts under strategy.
// The ordering rule is applied once up front and stays fixed: snowball
// sorts ascending by balance, avalanche descending by APR. today anchors
// payoff dates; time of day is ignored.
func Simulate(debts []core.DebtAccount, strategy core.Strategy, today time.Time) Plan {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	states := make([]*debtState, 0, len(debts))
	for _, d := range debts {
		ws := &debtState{
			debt:        d,
			balance:     d.Balance.Decimal(),
			minimum:     d.MinimumPayment.Decimal(),
			monthlyRate: decimal.NewFromFloat(d.APR).Div(hundred).Div(monthsPerYear),
		}
		if ws.balance.LessThanOrEqual(decimal.Zero) {
			// Already paid; contributes nothing and frees nothing.
			ws.balance = decimal.Zero
			ws.paidOff = true
			ws.payoffDate = day
		}
		states = append(states, ws)
	}

	switch strategy {
	case core.Avalanche:
		sort.SliceStable(states, func(i, j int) bool {
			return states[i].debt.APR > states[j].debt.APR
		})
	default:
		strategy = core.Snowball
		sort.SliceStable(states, func(i, j int) bool {
			return states[i].debt.Balance.Cents < states[j].debt.Balance.Cents
		})
	}

	capped := false
	freed := decimal.Zero
	for month := 1; month <= MaxMonths; month++ {
		if allPaid(states) {
			break
		}

		// Minimum payments first. A debt reaching zero frees its minimum
		// permanently: it joins the pool this same month and every month
		// after, which is what makes the strategies snowball.
		pool := freed
		for _, ws := range states {
			if ws.paidOff {
				continue
			}
			interest := ws.balance.Mul(ws.monthlyRate)
			payment := ws.minimum
			if maxPayment := ws.balance.Add(interest); payment.GreaterThan(maxPayment) {
				payment = maxPayment
			}
			principal := payment.Sub(interest)
			ws.balance = ws.balance.Sub(principal)
			if ws.balance.IsNegative() {
				ws.balance = decimal.Zero
			}
			ws.interestPaid = ws.interestPaid.Add(interest)
			ws.schedule = append(ws.schedule, ScheduleRow{
				Month:            month,
				Payment:          payment,
				Interest:         interest,
				Principal:        principal,
				RemainingBalance: ws.balance,
			})
			if ws.balance.IsZero() {
				markPaid(ws, day, month)
				pool = pool.Add(ws.minimum)
				freed = freed.Add(ws.minimum)
			}
		}

		// The pool goes to unpaid debts in strategy order, amending each
		// debt's row for this month. A debt killed by the pool frees its
		// minimum too, and the remainder cascades onward.
		for _, ws := range states {
			if !pool.IsPositive() {
				break
			}
			if ws.paidOff {
				continue
			}
			applied := pool
			if applied.GreaterThan(ws.balance) {
				applied = ws.balance
			}
			pool = pool.Sub(applied)
			ws.balance = ws.balance.Sub(applied)
			last := len(ws.schedule) - 1
			if last >= 0 && ws.schedule[last].Month == month {
				ws.schedule[last].Payment = ws.schedule[last].Payment.Add(applied)
				ws.schedule[last].Principal = ws.schedule[last].Principal.Add(applied)
				ws.schedule[last].RemainingBalance = ws.balance
			}
			if ws.balance.IsZero() {
				markPaid(ws, day, month)
				freed = freed.Add(ws.minimum)
			}
		}

		if month == MaxMonths && !allPaid(states) {
			capped = true
		}
	}

	plan := Plan{
		Strategy:      strategy,
		Debts:         make([]DebtPlan, 0, len(states)),
		TotalInterest: decimal.Zero,
		Capped:        capped,
	}
	for _, ws := range states {
		months := ws.months
		if !ws.paidOff {
			months = MaxMonths
		}
		plan.Debts = append(plan.Debts, DebtPlan{
			DebtID:          ws.debt.ID,
			Name:            ws.debt.Name,
			StartingBalance: ws.debt.Balance.Decimal(),
			Schedule:        ws.schedule,
			PaidOff:         ws.paidOff,
			PayoffDate:      ws.payoffDate,
			MonthsToPayoff:  months,
			InterestPaid:    ws.interestPaid,
		})
		plan.TotalInterest = plan.TotalInterest.Add(ws.interestPaid)
		if months > plan.TotalMonths {
			plan.TotalMonths = months
		}
	}
	plan.EstimatedPayoffDate = day.AddDate(0, plan.TotalMonths, 0)
	return plan
}

// Compare runs both strategies over the same input. Avalanche never pays
// more interest than snowball, so the saving is floored at zero to absorb
// decimal noise.
func Compare(debts []core.DebtAccount, today time.Time) Comparison {
	snowball := Simulate(debts, core.Snowball, today)
	avalanche := Simulate(debts, core.Avalanche, today)
	saved := snowball.TotalInterest.Sub(avalanche.TotalInterest)
	if saved.IsNegative() {
		saved = decimal.Zero
	}
	return Comparison{
		Snowball:      snowball,
		Avalanche:     avalanche,
		InterestSaved: saved,
		MonthsSaved:   snowball.TotalMonths - avalanche.TotalMonths,
	}
}

func allPaid(states []*debtState) bool {
	for _, ws := range states {
		if !ws.paidOff {
			return false
		}
	}
	return true
}

func markPaid(ws *debtState, day time.Time, month int) {
	ws.paidOff = true
	ws.months = month
	ws.payoffDate = day.AddDate(0, month, 0)
}
