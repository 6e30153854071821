// Package amount implements exact token amounts and their packed network form.
package amount

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"l2-tipbot/internal/domain"
)

var plainDecimal = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// Amount is an exact quantity of one token. Values are immutable.
type Amount struct {
	token domain.Token
	value decimal.Decimal
}

// FromText parses user-entered amount text.
// Exponent notation, whitespace, signs and words are malformed, except that
// a leading minus on a value below zero reports ErrNegativeAmount.
func FromText(token domain.Token, text string) (Amount, error) {
	if strings.HasPrefix(text, "-") {
		body := text[1:]
		if plainDecimal.MatchString(body) {
			v, err := parseDecimal(body)
			if err == nil && v.IsPositive() {
				return Amount{}, fmt.Errorf("%w: %q", ErrNegativeAmount, text)
			}
		}
		return Amount{}, fmt.Errorf("%w: %q", ErrMalformed, text)
	}

	if !plainDecimal.MatchString(text) {
		return Amount{}, fmt.Errorf("%w: %q", ErrMalformed, text)
	}

	v, err := parseDecimal(text)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrMalformed, text)
	}
	return Amount{token: token, value: v}, nil
}

func parseDecimal(text string) (decimal.Decimal, error) {
	text = strings.TrimSuffix(text, ".")
	if strings.HasPrefix(text, ".") {
		text = "0" + text
	}
	return decimal.NewFromString(text)
}

// FromBaseUnits builds an amount from integer base units.
func FromBaseUnits(token domain.Token, units *big.Int) Amount {
	if units == nil {
		return Zero(token)
	}
	return Amount{token: token, value: decimal.NewFromBigInt(units, -token.Decimals)}
}

// FromDecimal builds an amount from an exact decimal value.
func FromDecimal(token domain.Token, value decimal.Decimal) Amount {
	return Amount{token: token, value: value}
}

// Zero returns the zero amount of a token.
func Zero(token domain.Token) Amount {
	return Amount{token: token, value: decimal.Zero}
}

// Token returns the token the amount is denominated in.
func (a Amount) Token() domain.Token { return a.token }

// Ticker returns the token ticker.
func (a Amount) Ticker() string { return a.token.Ticker }

// Value returns the exact decimal value in display units.
func (a Amount) Value() decimal.Decimal { return a.value }

// BaseUnits returns the value in integer base units, truncating fractions
// of a base unit.
func (a Amount) BaseUnits() *big.Int {
	return a.value.Shift(a.token.Decimals).BigInt()
}

func (a Amount) IsZero() bool     { return a.value.IsZero() }
func (a Amount) IsPositive() bool { return a.value.IsPositive() }
func (a Amount) IsNegative() bool { return a.value.IsNegative() }

// Cmp compares values. Tickers are not compared.
func (a Amount) Cmp(b Amount) int { return a.value.Cmp(b.value) }

// Add returns a+b. Fails with ErrTickerMismatch across tickers.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.token.Ticker != b.token.Ticker {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrTickerMismatch, a.token.Ticker, b.token.Ticker)
	}
	return Amount{token: a.token, value: a.value.Add(b.value)}, nil
}

// Sub returns a-b. Fails with ErrTickerMismatch across tickers.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.token.Ticker != b.token.Ticker {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrTickerMismatch, a.token.Ticker, b.token.Ticker)
	}
	return Amount{token: a.token, value: a.value.Sub(b.value)}, nil
}

// Mul scales the amount by a unit price, e.g. to get a USD value.
func (a Amount) Mul(price decimal.Decimal) decimal.Decimal {
	return a.value.Mul(price)
}

// GetClosestPackable rounds down to the closest transaction-packable amount.
func (a Amount) GetClosestPackable() Packed {
	return a.pack(TransactionFormat)
}

// GetClosestPackableFee rounds down to the closest fee-packable amount.
func (a Amount) GetClosestPackableFee() Packed {
	return a.pack(FeeFormat)
}

func (a Amount) pack(f Format) Packed {
	m, e := f.Pack(a.BaseUnits())
	return Packed{
		Amount:   FromBaseUnits(a.token, f.Unpack(m, e)),
		Mantissa: m,
		Exponent: e,
		Format:   f,
	}
}

// GetStringValue renders the value truncated to the token decimals, with
// trailing zeros removed and at least one fractional digit ("0.0", "0.2").
func (a Amount) GetStringValue() string {
	s := a.value.Truncate(a.token.Decimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// String renders "<value> <TICKER>".
func (a Amount) String() string {
	return a.GetStringValue() + " " + a.token.Ticker
}

// Packed is an amount exactly representable in a network packing format.
type Packed struct {
	Amount
	Mantissa uint64
	Exponent uint8
	Format   Format
}
