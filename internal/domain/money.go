package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is a fixed-point amount in minor units (cents).
type Money int64

func (m Money) Mul(n int64) Money {
	return m * Money(n)
}

func (m Money) Cents() int64 {
	return int64(m)
}

// String renders the amount with two decimals, e.g. 4500 -> "45.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseMoney accepts "15", "15.5" and "15.00". More than two decimals is rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse money: empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("parse money %q: more than two decimals", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseUint(whole, 10, 53)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	cents, err := strconv.ParseUint(frac, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	v := int64(units*100 + cents)
	if neg {
		v = -v
	}
	return Money(v), nil
}
