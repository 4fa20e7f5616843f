package projection

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func monthlyIncome(startY, startM, startD int) core.RecurringItem {
	return core.RecurringItem{
		ID:        1,
		Name:      "Paycheck",
		Kind:      core.Income,
		Amount:    core.Money{Cents: 300000},
		Frequency: core.Monthly,
		Anchor:    core.StartAnchor(core.NewDate(startY, startM, startD)),
	}
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		item      core.RecurringItem
		today     time.Time
		want      time.Time
		wantEnded bool
	}{
		{
			name:  "monthly steps past today",
			item:  monthlyIncome(2024, 1, 15),
			today: date(2024, 3, 20),
			want:  date(2024, 4, 15),
		},
		{
			name:  "occurrence on today counts",
			item:  monthlyIncome(2024, 1, 15),
			today: date(2024, 2, 15),
			want:  date(2024, 2, 15),
		},
		{
			name:  "today before anchor returns anchor",
			item:  monthlyIncome(2024, 6, 1),
			today: date(2024, 1, 1),
			want:  date(2024, 6, 1),
		},
		{
			name: "end of month clamps in february",
			item: core.RecurringItem{
				Kind:      core.FixedExpense,
				Amount:    core.Money{Cents: 100000},
				Frequency: core.Monthly,
				Anchor:    core.StartAnchor(core.NewDate(2024, 1, 31)),
			},
			today: date(2024, 2, 1),
			want:  date(2024, 2, 29),
		},
		{
			name: "subscription renews one step after last renewal",
			item: core.RecurringItem{
				Kind:      core.Subscription,
				Amount:    core.Money{Cents: 1599},
				Frequency: core.Monthly,
				Anchor:    core.RenewalAnchor(core.NewDate(2024, 1, 10), core.Date{}),
			},
			today: date(2024, 1, 11),
			want:  date(2024, 2, 10),
		},
		{
			name: "subscription clamps to end date",
			item: core.RecurringItem{
				Kind:      core.Subscription,
				Amount:    core.Money{Cents: 1599},
				Frequency: core.Monthly,
				Anchor:    core.RenewalAnchor(core.NewDate(2024, 1, 10), core.NewDate(2024, 3, 1)),
			},
			today: date(2024, 2, 20),
			want:  date(2024, 3, 1),
		},
		{
			name: "subscription past end reports ended",
			item: core.RecurringItem{
				Kind:      core.Subscription,
				Amount:    core.Money{Cents: 1599},
				Frequency: core.Monthly,
				Anchor:    core.RenewalAnchor(core.NewDate(2024, 1, 10), core.NewDate(2024, 3, 1)),
			},
			today:     date(2024, 6, 1),
			want:      date(2024, 3, 1),
			wantEnded: true,
		},
		{
			name: "semi-monthly picks earlier upcoming date",
			item: core.RecurringItem{
				Kind:      core.Income,
				Amount:    core.Money{Cents: 150000},
				Frequency: core.SemiMonthly,
				Anchor:    core.SemiMonthlyAnchor(core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 15)),
			},
			today: date(2024, 1, 10),
			want:  date(2024, 1, 15),
		},
		{
			name: "semi-monthly cycles into next month when both passed",
			item: core.RecurringItem{
				Kind:      core.Income,
				Amount:    core.Money{Cents: 150000},
				Frequency: core.SemiMonthly,
				Anchor:    core.SemiMonthlyAnchor(core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 15)),
			},
			today: date(2024, 1, 20),
			want:  date(2024, 2, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.item, tt.today)
			if err != nil {
				t.Fatalf("NextOccurrence() error = %v", err)
			}
			if !got.Date.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got.Date, tt.want)
			}
			if got.Ended != tt.wantEnded {
				t.Errorf("NextOccurrence() ended = %v, want %v", got.Ended, tt.wantEnded)
			}
		})
	}
}

func TestNextOccurrenceMissingAnchor(t *testing.T) {
	item := core.RecurringItem{
		Kind:      core.Income,
		Amount:    core.Money{Cents: 100},
		Frequency: core.Monthly,
		Anchor:    core.Anchor{Kind: core.AnchorStart},
	}
	if _, err := NextOccurrence(item, date(2024, 1, 1)); err != ErrMissingAnchor {
		t.Errorf("NextOccurrence() error = %v, want ErrMissingAnchor", err)
	}
}

func TestNextOccurrenceUnknownFrequency(t *testing.T) {
	item := monthlyIncome(2020, 1, 1)
	item.Frequency = "fortnightly"

	got, err := NextOccurrence(item, date(2024, 6, 1))
	if err != nil {
		t.Fatalf("NextOccurrence() error = %v", err)
	}
	// The sentinel stepper pushes unknown frequencies a century out.
	if got.Date.Year() != 2120 {
		t.Errorf("NextOccurrence() = %v, want year 2120", got.Date)
	}
}

func TestMonthContribution(t *testing.T) {
	tests := []struct {
		name      string
		item      core.RecurringItem
		year      int
		month     time.Month
		wantCents int64
	}{
		{
			name:      "monthly item contributes once",
			item:      monthlyIncome(2024, 1, 15),
			year:      2024,
			month:     time.February,
			wantCents: 300000,
		},
		{
			name:      "month before anchor contributes nothing",
			item:      monthlyIncome(2024, 3, 15),
			year:      2024,
			month:     time.February,
			wantCents: 0,
		},
		{
			name: "bi-weekly can land three times",
			item: core.RecurringItem{
				Kind:      core.Income,
				Amount:    core.Money{Cents: 100000},
				Frequency: core.BiWeekly,
				Anchor:    core.StartAnchor(core.NewDate(2024, 1, 5)),
			},
			year:  2024,
			month: time.March,
			// Mar 1, Mar 15, Mar 29.
			wantCents: 300000,
		},
		{
			name: "semi-monthly contributes twice",
			item: core.RecurringItem{
				Kind:      core.Income,
				Amount:    core.Money{Cents: 150000},
				Frequency: core.SemiMonthly,
				Anchor:    core.SemiMonthlyAnchor(core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 15)),
			},
			year:      2024,
			month:     time.April,
			wantCents: 300000,
		},
		{
			name: "semi-monthly 30th clamps in february",
			item: core.RecurringItem{
				Kind:      core.Income,
				Amount:    core.Money{Cents: 150000},
				Frequency: core.SemiMonthly,
				Anchor:    core.SemiMonthlyAnchor(core.NewDate(2024, 1, 15), core.NewDate(2024, 1, 30)),
			},
			year:      2024,
			month:     time.February,
			wantCents: 300000,
		},
		{
			name: "subscription skips its renewal month anchor",
			item: core.RecurringItem{
				Kind:      core.Subscription,
				Amount:    core.Money{Cents: 1599},
				Frequency: core.Monthly,
				Anchor:    core.RenewalAnchor(core.NewDate(2024, 1, 31), core.Date{}),
			},
			year:      2024,
			month:     time.January,
			wantCents: 0,
		},
		{
			name: "subscription contributes the month after renewal",
			item: core.RecurringItem{
				Kind:      core.Subscription,
				Amount:    core.Money{Cents: 1599},
				Frequency: core.Monthly,
				Anchor:    core.RenewalAnchor(core.NewDate(2024, 1, 31), core.Date{}),
			},
			year:      2024,
			month:     time.February,
			wantCents: 1599,
		},
		{
			name: "subscription past end contributes nothing",
			item: core.RecurringItem{
				Kind:      core.Subscription,
				Amount:    core.Money{Cents: 1599},
				Frequency: core.Monthly,
				Anchor:    core.RenewalAnchor(core.NewDate(2024, 1, 10), core.NewDate(2024, 3, 15)),
			},
			year:      2024,
			month:     time.April,
			wantCents: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthWindow(tt.year, tt.month)
			got := MonthContribution(tt.item, start, end)
			if got.Cents != tt.wantCents {
				t.Errorf("MonthContribution() = %d cents, want %d", got.Cents, tt.wantCents)
			}
		})
	}
}

// Twelve consecutive monthly windows of a monthly item must sum to
// exactly twelve occurrences; windows neither drop nor double-count.
func TestMonthContributionAdditivity(t *testing.T) {
	item := monthlyIncome(2024, 1, 15)

	var total int64
	cursor := date(2024, 2, 1)
	for i := 0; i < 12; i++ {
		start, end := MonthWindow(cursor.Year(), cursor.Month())
		total += MonthContribution(item, start, end).Cents
		cursor = cursor.AddDate(0, 1, 0)
	}

	if want := int64(12 * 300000); total != want {
		t.Errorf("12 windows sum = %d cents, want %d", total, want)
	}
}

func TestDebtNextPayment(t *testing.T) {
	baseDebt := core.DebtAccount{
		Name:             "Visa",
		Kind:             core.CreditCard,
		Balance:          core.Money{Cents: 50000},
		APR:              19.99,
		MinimumPayment:   core.Money{Cents: 2500},
		PaymentFrequency: core.PayMonthly,
		CreatedAt:        date(2023, 6, 1),
	}

	tests := []struct {
		name       string
		paymentDay int
		frequency  core.PaymentFrequency
		created    time.Time
		today      time.Time
		want       time.Time
	}{
		{
			name:       "later this month",
			paymentDay: 15,
			today:      date(2024, 3, 10),
			want:       date(2024, 3, 15),
		},
		{
			name:       "already passed rolls to next month",
			paymentDay: 15,
			today:      date(2024, 3, 20),
			want:       date(2024, 4, 15),
		},
		{
			name:       "day 31 clamps in february",
			paymentDay: 31,
			today:      date(2024, 2, 10),
			want:       date(2024, 2, 29),
		},
		{
			name:       "clamped day restores in march",
			paymentDay: 31,
			today:      date(2024, 3, 1),
			want:       date(2024, 3, 31),
		},
		{
			name:       "bi-weekly advances in 14 day cycles",
			paymentDay: 5,
			frequency:  core.PayBiWeekly,
			today:      date(2024, 1, 20),
			want:       date(2024, 2, 2),
		},
		{
			name:       "annual advances a year",
			paymentDay: 15,
			frequency:  core.PayAnnually,
			today:      date(2024, 3, 20),
			want:       date(2025, 3, 15),
		},
		{
			name:       "never before creation date",
			paymentDay: 10,
			created:    date(2024, 5, 1),
			today:      date(2024, 1, 1),
			want:       date(2024, 5, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debt := baseDebt
			debt.PaymentDay = tt.paymentDay
			if tt.frequency != "" {
				debt.PaymentFrequency = tt.frequency
			}
			if !tt.created.IsZero() {
				debt.CreatedAt = tt.created
			}
			got := DebtNextPayment(debt, tt.today)
			if !got.Equal(tt.want) {
				t.Errorf("DebtNextPayment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(2024, time.February)
	if !start.Equal(date(2024, 2, 1)) {
		t.Errorf("start = %v, want 2024-02-01", start)
	}
	if !end.Equal(date(2024, 2, 29)) {
		t.Errorf("end = %v, want 2024-02-29", end)
	}
}
