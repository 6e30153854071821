package amount

import "errors"

var (
	// ErrMalformed is returned when amount text is not a plain non-negative decimal.
	ErrMalformed = errors.New("malformed amount")

	// ErrNegativeAmount is returned when amount text parses to a value below zero.
	ErrNegativeAmount = errors.New("negative amount")

	// ErrTickerMismatch is returned by arithmetic across different tickers.
	ErrTickerMismatch = errors.New("ticker mismatch")
)
