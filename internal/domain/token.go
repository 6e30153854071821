package domain

import "strings"

// Token is an entry of the supported-token registry.
// Corresponds to the tokens table in PostgreSQL.
type Token struct {
	Ticker    string // upper-case symbol, registry key
	Name      string // display name
	Decimals  int32  // base-unit decimals on the network
	NetworkID uint32 // token id assigned by the L2 network
	Position  int    // registry order (insertion order)
}

// NormalizeTicker upper-cases and trims a user-supplied ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
