package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCents int64
		wantErr   bool
	}{
		{
			name:      "plain integer",
			input:     "10",
			wantCents: 1000,
		},
		{
			name:      "dot separator",
			input:     "12.34",
			wantCents: 1234,
		},
		{
			name:      "comma separator",
			input:     "12,34",
			wantCents: 1234,
		},
		{
			name:      "single decimal digit",
			input:     "5.5",
			wantCents: 550,
		},
		{
			name:      "third decimal rounds half up",
			input:     "1.999",
			wantCents: 200,
		},
		{
			name:      "third decimal rounds down",
			input:     "1.994",
			wantCents: 199,
		},
		{
			name:      "surrounding whitespace",
			input:     "  7.25  ",
			wantCents: 725,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "zero",
			input:   "0",
			wantErr: true,
		},
		{
			name:    "negative",
			input:   "-5",
			wantErr: true,
		},
		{
			name:    "explicit plus sign",
			input:   "+5",
			wantErr: true,
		},
		{
			name:    "not a number",
			input:   "abc",
			wantErr: true,
		},
		{
			name:    "two separators",
			input:   "1.2.3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAmount(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) error = %v", tt.input, err)
			}
			if got.Cents != tt.wantCents {
				t.Errorf("ParseAmount(%q) = %d cents, want %d", tt.input, got.Cents, tt.wantCents)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{name: "whole and fraction", cents: 123450, want: "1234.50"},
		{name: "zero", cents: 0, want: "0.00"},
		{name: "cents only", cents: 5, want: "0.05"},
		{name: "negative", cents: -5, want: "-0.05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Money{Cents: tt.cents}.String()
			if got != tt.want {
				t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
			}
		})
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 1234, -5, -193401} {
		m := Money{Cents: cents}
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("Marshal(%d) error = %v", cents, err)
		}
		var back Money
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", data, err)
		}
		if back.Cents != cents {
			t.Errorf("round trip of %d cents = %d", cents, back.Cents)
		}
	}
}

func TestMoneyDecimalRoundTrip(t *testing.T) {
	m := Money{Cents: 123456}
	if got := MoneyFromDecimal(m.Decimal()); got != m {
		t.Errorf("MoneyFromDecimal(Decimal()) = %v, want %v", got, m)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 3, 15)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(data) != `"2024-03-15"` {
		t.Errorf("Marshal = %s, want %q", data, `"2024-03-15"`)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip = %v, want %v", back, d)
	}

	var zero Date
	data, err = json.Marshal(zero)
	if err != nil {
		t.Fatalf("Marshal zero error = %v", err)
	}
	if string(data) != "null" {
		t.Errorf("Marshal zero = %s, want null", data)
	}
}
