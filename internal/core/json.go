package core

import (
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// MarshalJSON encodes a Date as "YYYY-MM-DD"; a zero Date becomes null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = Date{Time: t}
	return nil
}

// MarshalJSON encodes Money as a decimal string, e.g. "1234.50".
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts the string form produced by MarshalJSON. Unlike
// ParseAmount it allows zero and negative values, which appear in
// computed fields such as forecast nets.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*m = Money{}
		return nil
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		if len(fracPart) > 2 {
			fracPart = fracPart[:2]
		}
		for len(fracPart) < 2 {
			fracPart += "0"
		}
		fracCents, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return ErrInvalidAmount
		}
	}
	cents := units*100 + fracCents
	if neg {
		cents = -cents
	}
	*m = Money{Cents: cents}
	return nil
}
