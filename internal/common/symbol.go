// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// Symbol represents a parsed exchange-qualified stock symbol.
// Format: EXCHANGE:CODE (e.g., "NASDAQ:AAPL", "KOSPI:005930")
type Symbol struct {
	// Exchange is the exchange code (e.g., "NYSE", "NASDAQ", "KOSPI")
	Exchange string
	// Code is the stock/security code (e.g., "AAPL", "005930")
	Code string
	// Raw is the original symbol string
	Raw string
}

// ExchangeToSuffix maps exchange codes to EODHD API suffixes.
var ExchangeToSuffix = map[string]string{
	"NYSE":   ".US",
	"NASDAQ": ".US",
	"AMEX":   ".US",
	"KOSPI":  ".KS",
	"KOSDAQ": ".KQ",
	"LSE":    ".LSE",
	"TSX":    ".TO",
	"ASX":    ".AU",
	"XETRA":  ".XETRA",
}

// DefaultExchange is the default exchange used when parsing symbols without
// an exchange prefix or provider suffix.
var DefaultExchange = "NASDAQ"

// SetDefaultExchange sets the default exchange for parsing symbols.
// Called during app initialization from config.
func SetDefaultExchange(exchange string) {
	if exchange != "" {
		DefaultExchange = strings.ToUpper(exchange)
	}
}

// ParseSymbol parses an exchange-qualified symbol string.
// Supports formats:
//   - "NASDAQ:AAPL" -> Exchange="NASDAQ", Code="AAPL" (colon separator)
//   - "005930.KS"   -> Exchange="KOSPI", Code="005930" (provider suffix)
//   - "AAPL"        -> Exchange=DefaultExchange, Code="AAPL"
//   - "aapl"        -> Exchange=DefaultExchange, Code="AAPL" (normalized to uppercase)
func ParseSymbol(symbol string) Symbol {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Symbol{}
	}

	// Exchange prefix with colon separator (EXCHANGE:CODE)
	if idx := strings.Index(symbol, ":"); idx > 0 {
		return Symbol{
			Exchange: strings.ToUpper(symbol[:idx]),
			Code:     strings.ToUpper(symbol[idx+1:]),
			Raw:      symbol,
		}
	}

	// Provider suffix (CODE.SUFFIX). Use the last dot because codes can
	// contain dots (e.g., "BRK.B.US").
	if idx := strings.LastIndex(symbol, "."); idx > 0 && idx < len(symbol)-1 {
		suffix := "." + strings.ToUpper(symbol[idx+1:])
		for exchange, s := range ExchangeToSuffix {
			if s == suffix {
				return Symbol{
					Exchange: exchange,
					Code:     strings.ToUpper(symbol[:idx]),
					Raw:      symbol,
				}
			}
		}
	}

	// No exchange qualifier - use default exchange
	return Symbol{
		Exchange: DefaultExchange,
		Code:     strings.ToUpper(symbol),
		Raw:      symbol,
	}
}

// String returns the full exchange-qualified symbol string.
func (s Symbol) String() string {
	if s.Exchange == "" || s.Code == "" {
		return s.Code
	}
	return s.Exchange + ":" + s.Code
}

// ProviderSymbol returns the EODHD API symbol format.
// Example: "KOSPI:005930" -> "005930.KS"
func (s Symbol) ProviderSymbol() string {
	if s.Code == "" {
		return ""
	}
	suffix, ok := ExchangeToSuffix[s.Exchange]
	if !ok {
		// Default to US for unknown exchanges
		suffix = ".US"
	}
	return s.Code + suffix
}

// IsKorean reports whether the symbol trades on a Korean exchange.
// Korean listings need localized news queries and numeric-code display names.
func (s Symbol) IsKorean() bool {
	return s.Exchange == "KOSPI" || s.Exchange == "KOSDAQ"
}

// NewsQuery returns the search phrase used for headline lookups.
// Korean listings search by company name with a localized qualifier,
// everything else searches by code with a "stock" qualifier.
func (s Symbol) NewsQuery(companyName string) string {
	name := strings.TrimSpace(companyName)
	if s.IsKorean() {
		if name == "" {
			name = s.Code
		}
		return name + " 주가"
	}
	if name != "" {
		return name + " stock"
	}
	return s.Code + " stock"
}

// ParseSymbols parses a list of symbol strings.
func ParseSymbols(symbols []string) []Symbol {
	result := make([]Symbol, 0, len(symbols))
	for _, s := range symbols {
		if parsed := ParseSymbol(s); parsed.Code != "" {
			result = append(result, parsed)
		}
	}
	return result
}
