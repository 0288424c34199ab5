package domain

import "github.com/shopspring/decimal"

// Amount is a fixed-point token amount. Stakes, slashes and payouts never go
// through float64.
type Amount = decimal.Decimal

// Zero is the zero Amount.
var Zero = decimal.Zero

// ParseAmount parses a decimal string such as "100" or "12.5".
func ParseAmount(s string) (Amount, error) {
	a, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount.WithMsg("cannot parse amount " + s)
	}
	return a, nil
}

// MustAmount is ParseAmount for constants and tests.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromInt builds a whole-unit Amount.
func AmountFromInt(v int64) Amount {
	return decimal.NewFromInt(v)
}
