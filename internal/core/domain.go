package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily       Frequency = "daily"
	Weekly      Frequency = "weekly"
	BiWeekly    Frequency = "bi-weekly"
	SemiMonthly Frequency = "semi-monthly"
	Monthly     Frequency = "monthly"
	Quarterly   Frequency = "quarterly"
	Yearly      Frequency = "yearly"
)

const (
	Income       ItemKind = "income"
	Subscription ItemKind = "subscription"
	FixedExpense ItemKind = "fixed-expense"
)

const (
	CreditCard   DebtKind = "credit-card"
	StudentLoan  DebtKind = "student-loan"
	PersonalLoan DebtKind = "personal-loan"
	Mortgage     DebtKind = "mortgage"
	AutoLoan     DebtKind = "auto-loan"
	OtherDebt    DebtKind = "other"
)

const (
	PayMonthly  PaymentFrequency = "monthly"
	PayBiWeekly PaymentFrequency = "bi-weekly"
	PayWeekly   PaymentFrequency = "weekly"
	PayAnnually PaymentFrequency = "annually"
	PayOther    PaymentFrequency = "other"
)

const (
	Snowball  Strategy = "snowball"
	Avalanche Strategy = "avalanche"
)

type (
	Frequency        string
	ItemKind         string
	DebtKind         string
	PaymentFrequency string
	Strategy         string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// RecurringItem is a regularly occurring cash-flow event: a paycheck,
	// a subscription renewal, or a fixed expense. Which anchor variant it
	// carries is decided at construction time from (Kind, Frequency).
	RecurringItem struct {
		ID        int64
		Name      string
		Kind      ItemKind
		Amount    Money
		Frequency Frequency
		Anchor    Anchor
		Category  string
		Notes     string
	}

	// DebtAccount is an amortizing liability. The payoff simulator treats
	// it as an immutable snapshot; balances are never mutated in place.
	DebtAccount struct {
		ID               int64
		Name             string
		Kind             DebtKind
		Balance          Money
		APR              float64 // annual percentage rate, 0-100
		MinimumPayment   Money
		PaymentDay       int // day of month, 1-31
		PaymentFrequency PaymentFrequency
		CreatedAt        time.Time
	}

	FinancialGoal struct {
		ID                  int64
		Name                string
		TargetAmount        Money
		SavedAmount         Money
		MonthlyContribution Money
		TargetDate          Date // zero when open-ended
	}

	// BudgetAllocation is a planned variable-spending bucket for one
	// calendar month.
	BudgetAllocation struct {
		ID       int64
		Category string
		Year     int
		Month    int // 1-12
		Planned  Money
		Spent    Money
	}

	Transaction struct {
		ID          int64
		Date        Date
		Description string
		Amount      Money
		Category    string
		RecurringID int64 // 0 when entered manually
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidAPR       = errors.New("invalid APR")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidStrategy  = errors.New("invalid strategy")
	ErrEmptyName        = errors.New("empty name")
	ErrAnchorMismatch   = errors.New("anchor does not match item kind and frequency")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf strips the time-of-day from t.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// IsEmpty reports whether the date is unset (used for optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, BiWeekly, SemiMonthly, Monthly, Quarterly, Yearly:
		return true
	default:
		return false
	}
}

func (k ItemKind) IsValid() bool {
	switch k {
	case Income, Subscription, FixedExpense:
		return true
	default:
		return false
	}
}

func (k DebtKind) IsValid() bool {
	switch k {
	case CreditCard, StudentLoan, PersonalLoan, Mortgage, AutoLoan, OtherDebt:
		return true
	default:
		return false
	}
}

func (f PaymentFrequency) IsValid() bool {
	switch f {
	case PayMonthly, PayBiWeekly, PayWeekly, PayAnnually, PayOther:
		return true
	default:
		return false
	}
}

func (s Strategy) IsValid() bool {
	return s == Snowball || s == Avalanche
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (ri RecurringItem) Validate() error {
	if len(strings.TrimSpace(ri.Name)) == 0 {
		return ErrEmptyName
	}
	if len(ri.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if !ri.Kind.IsValid() {
		return errors.New("invalid item kind")
	}
	if !ri.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if err := ri.Amount.Validate(); err != nil {
		return err
	}
	if err := ri.Anchor.Validate(); err != nil {
		return errors.New("invalid anchor: " + err.Error())
	}
	if ri.Anchor.Kind != AnchorKindFor(ri.Kind, ri.Frequency) {
		return ErrAnchorMismatch
	}
	return nil
}

func (d DebtAccount) Validate() error {
	if len(strings.TrimSpace(d.Name)) == 0 {
		return ErrEmptyName
	}
	if !d.Kind.IsValid() {
		return errors.New("invalid debt kind")
	}
	if d.Balance.Cents < 0 {
		return ErrInvalidAmount
	}
	if d.APR < 0 || d.APR > 100 {
		return ErrInvalidAPR
	}
	if err := d.MinimumPayment.Validate(); err != nil {
		return errors.New("invalid minimum payment: " + err.Error())
	}
	if d.PaymentDay < 1 || d.PaymentDay > 31 {
		return ErrInvalidDay
	}
	if !d.PaymentFrequency.IsValid() {
		return ErrInvalidFrequency
	}
	return nil
}

func (g FinancialGoal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return errors.New("invalid target amount: " + err.Error())
	}
	if g.SavedAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if g.MonthlyContribution.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b BudgetAllocation) Validate() error {
	if len(strings.TrimSpace(b.Category)) == 0 {
		return errors.New("empty category")
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1970 {
		return errors.New("invalid year")
	}
	if b.Planned.Cents < 0 || b.Spent.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return errors.New("empty description")
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return t.Amount.Validate()
}
