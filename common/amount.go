package common

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Number of decimal places of one coin.
	CoinDecimals = 8
)

var (
	SatoshiPerCoin = big.NewInt(100_000_000)

	ErrEmptyAmount    = errors.New("expected non-empty amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// ParseAmount parses a base-unit (satoshi) decimal string.
// Amounts cross process boundaries only in this form.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, ErrEmptyAmount
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", s)
	}
	if x.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	return x, nil
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) *big.Int {
	x, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return x
}

// ToSatoshi converts a coin-denominated decimal string ("12.5") into
// satoshi. Digits beyond the eighth decimal place are truncated.
func ToSatoshi(coins string) (*big.Int, error) {
	if coins == "" {
		return nil, ErrEmptyAmount
	}
	if strings.HasPrefix(coins, "-") {
		return nil, ErrNegativeAmount
	}

	whole, frac, _ := strings.Cut(coins, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > CoinDecimals {
		frac = frac[:CoinDecimals]
	}
	frac += strings.Repeat("0", CoinDecimals-len(frac))

	x, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid coin amount: %q", coins)
	}
	return x, nil
}

// MustToSatoshi is ToSatoshi for constants and tests.
func MustToSatoshi(coins string) *big.Int {
	x, err := ToSatoshi(coins)
	if err != nil {
		panic(err)
	}
	return x
}

// FromSatoshi renders satoshi as a coin-denominated decimal string without
// trailing zeros, e.g. 1250000000 -> "12.5".
func FromSatoshi(x *big.Int) string {
	if x == nil {
		return ""
	}
	sign := ""
	abs := new(big.Int).Abs(x)
	if x.Sign() < 0 {
		sign = "-"
	}

	q, r := new(big.Int).QuoRem(abs, SatoshiPerCoin, new(big.Int))
	if r.Sign() == 0 {
		return sign + q.String()
	}
	frac := r.String()
	frac = strings.Repeat("0", CoinDecimals-len(frac)) + frac
	return sign + q.String() + "." + strings.TrimRight(frac, "0")
}

// SumAmounts adds up base-unit strings. The first invalid entry aborts.
func SumAmounts(amounts []string) (*big.Int, error) {
	total := big.NewInt(0)
	for _, a := range amounts {
		x, err := ParseAmount(a)
		if err != nil {
			return nil, err
		}
		total.Add(total, x)
	}
	return total, nil
}
