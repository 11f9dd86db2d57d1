package model

import (
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in minor currency units, the representation the
// platform uses for every price field ("centAmount" + ISO currency code).
type Money struct {
	CurrencyCode string `json:"currencyCode"`
	CentAmount   int64  `json:"centAmount"`
}

// Cents constructs a Money value from an amount already in minor units.
func Cents(currency string, amount int64) Money {
	return Money{CurrencyCode: currency, CentAmount: amount}
}

// String formats the amount in major units, e.g. "EUR 89.00".
func (m Money) String() string {
	sign := ""
	a := m.CentAmount
	if a < 0 {
		sign, a = "-", -a
	}
	return fmt.Sprintf("%s %s%d.%02d", m.CurrencyCode, sign, a/100, a%100)
}

// ParseCents converts decimal string amounts (major units) to minor units.
// Handles edge cases: empty strings, missing decimals, large values.
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0
func ParseCents(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// math.Round handles both positive and negative numbers correctly
	return int64(math.Round(f * 100))
}
