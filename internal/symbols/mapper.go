// Package symbols converts between the user-facing pair format (BTCUSDT)
// and OKX perpetual swap instrument ids (BTC-USDT-SWAP).
package symbols

import (
	"fmt"
	"regexp"
	"strings"

	"contextgate/internal/models"
)

var pairPattern = regexp.MustCompile(`^[A-Z0-9]+USDT$`)

// NormalizePair upper-cases and trims the input and checks it is a USDT
// pair with a non-empty base.
func NormalizePair(raw string) (string, error) {
	pair := strings.ToUpper(strings.TrimSpace(raw))
	if !pairPattern.MatchString(pair) || pair == "USDT" {
		return "", fmt.Errorf("%q: %w", raw, models.ErrInvalidPair)
	}
	return pair, nil
}

// Base strips the USDT quote from a normalized pair.
func Base(pair string) string {
	return strings.TrimSuffix(pair, "USDT")
}

// OKXCandidates lists the instrument ids to try for a pair, in order: the
// USDT-margined swap first, then the coin-margined swap.
func OKXCandidates(pair string) []string {
	base := Base(pair)
	return []string{
		base + "-USDT-SWAP",
		base + "-USD-SWAP",
	}
}

// FromOKX converts an OKX instrument id back to the pair format. Both swap
// flavours map to the USDT pair.
func FromOKX(instID string) string {
	sym := strings.ToUpper(strings.TrimSpace(instID))
	sym = strings.TrimSuffix(sym, "-SWAP")
	parts := strings.Split(sym, "-")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return parts[0] + "USDT"
}
