package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrUnsupportedSymbol = errors.New("unsupported symbol")

var symbolRx = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// NormalizeSymbol upper-cases a ticker, strips a leading cashtag and rejects
// anything that cannot be an exchange symbol.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if !symbolRx.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSymbol, raw)
	}
	return symbol, nil
}
