package core

import (
	"errors"
	"testing"
)

func TestAnchorKindFor(t *testing.T) {
	tests := []struct {
		name string
		kind ItemKind
		freq Frequency
		want AnchorKind
	}{
		{
			name: "subscription uses renewal",
			kind: Subscription,
			freq: Monthly,
			want: AnchorRenewal,
		},
		{
			name: "subscription stays renewal even semi-monthly",
			kind: Subscription,
			freq: SemiMonthly,
			want: AnchorRenewal,
		},
		{
			name: "semi-monthly income carries two pay dates",
			kind: Income,
			freq: SemiMonthly,
			want: AnchorSemiMonthly,
		},
		{
			name: "fixed expense uses start",
			kind: FixedExpense,
			freq: Monthly,
			want: AnchorStart,
		},
		{
			name: "income uses start",
			kind: Income,
			freq: BiWeekly,
			want: AnchorStart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnchorKindFor(tt.kind, tt.freq); got != tt.want {
				t.Errorf("AnchorKindFor(%s, %s) = %s, want %s", tt.kind, tt.freq, got, tt.want)
			}
		})
	}
}

func TestAnchorValidate(t *testing.T) {
	tests := []struct {
		name    string
		anchor  Anchor
		wantErr bool
	}{
		{
			name:   "valid start",
			anchor: StartAnchor(NewDate(2024, 1, 15)),
		},
		{
			name:    "start without date",
			anchor:  StartAnchor(Date{}),
			wantErr: true,
		},
		{
			name:   "valid open-ended renewal",
			anchor: RenewalAnchor(NewDate(2024, 1, 10), Date{}),
		},
		{
			name:   "valid bounded renewal",
			anchor: RenewalAnchor(NewDate(2024, 1, 10), NewDate(2024, 12, 10)),
		},
		{
			name:    "renewal end before last renewal",
			anchor:  RenewalAnchor(NewDate(2024, 6, 10), NewDate(2024, 1, 10)),
			wantErr: true,
		},
		{
			name:   "valid semi-monthly",
			anchor: SemiMonthlyAnchor(NewDate(2024, 1, 1), NewDate(2024, 1, 15)),
		},
		{
			name:    "semi-monthly second before first",
			anchor:  SemiMonthlyAnchor(NewDate(2024, 1, 15), NewDate(2024, 1, 1)),
			wantErr: true,
		},
		{
			name:    "unknown kind",
			anchor:  Anchor{Kind: "weird"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.anchor.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringItemValidate(t *testing.T) {
	valid := RecurringItem{
		Name:      "Paycheck",
		Kind:      Income,
		Amount:    Money{Cents: 300000},
		Frequency: Monthly,
		Anchor:    StartAnchor(NewDate(2024, 1, 15)),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	mismatched := valid
	mismatched.Anchor = RenewalAnchor(NewDate(2024, 1, 15), Date{})
	if err := mismatched.Validate(); !errors.Is(err, ErrAnchorMismatch) {
		t.Errorf("Validate() error = %v, want ErrAnchorMismatch", err)
	}

	unnamed := valid
	unnamed.Name = "   "
	if err := unnamed.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Validate() error = %v, want ErrEmptyName", err)
	}

	badFreq := valid
	badFreq.Frequency = "fortnightly"
	if err := badFreq.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("Validate() error = %v, want ErrInvalidFrequency", err)
	}
}

func TestDebtAccountValidate(t *testing.T) {
	valid := DebtAccount{
		Name:             "Visa",
		Kind:             CreditCard,
		Balance:          Money{Cents: 50000},
		APR:              19.99,
		MinimumPayment:   Money{Cents: 2500},
		PaymentDay:       15,
		PaymentFrequency: PayMonthly,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	badAPR := valid
	badAPR.APR = 120
	if err := badAPR.Validate(); !errors.Is(err, ErrInvalidAPR) {
		t.Errorf("Validate() error = %v, want ErrInvalidAPR", err)
	}

	badDay := valid
	badDay.PaymentDay = 32
	if err := badDay.Validate(); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("Validate() error = %v, want ErrInvalidDay", err)
	}

	zeroBalance := valid
	zeroBalance.Balance = Money{}
	if err := zeroBalance.Validate(); err != nil {
		t.Errorf("Validate() with zero balance error = %v, want nil", err)
	}
}
