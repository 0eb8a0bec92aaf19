package common

import (
	"testing"
)

func TestParseSymbol(t *testing.T) {
	originalDefault := DefaultExchange
	DefaultExchange = "NASDAQ"
	defer func() { DefaultExchange = originalDefault }()

	tests := []struct {
		input        string
		wantExchange string
		wantCode     string
		wantString   string
		wantProvider string
	}{
		// Exchange-qualified format with colon separator
		{"NASDAQ:AAPL", "NASDAQ", "AAPL", "NASDAQ:AAPL", "AAPL.US"},
		{"NYSE:KO", "NYSE", "KO", "NYSE:KO", "KO.US"},
		{"KOSPI:005930", "KOSPI", "005930", "KOSPI:005930", "005930.KS"},
		{"KOSDAQ:035420", "KOSDAQ", "035420", "KOSDAQ:035420", "035420.KQ"},

		// Provider suffix format
		{"005930.KS", "KOSPI", "005930", "KOSPI:005930", "005930.KS"},
		{"035720.KQ", "KOSDAQ", "035720", "KOSDAQ:035720", "035720.KQ"},
		{"VOD.LSE", "LSE", "VOD", "LSE:VOD", "VOD.LSE"},

		// Bare code - defaults to NASDAQ
		{"AAPL", "NASDAQ", "AAPL", "NASDAQ:AAPL", "AAPL.US"},
		{"MSFT", "NASDAQ", "MSFT", "NASDAQ:MSFT", "MSFT.US"},

		// Case normalization
		{"nasdaq:aapl", "NASDAQ", "AAPL", "NASDAQ:AAPL", "AAPL.US"},
		{"aapl", "NASDAQ", "AAPL", "NASDAQ:AAPL", "AAPL.US"},

		// Whitespace handling
		{"  NASDAQ:AAPL  ", "NASDAQ", "AAPL", "NASDAQ:AAPL", "AAPL.US"},
		{"  AAPL  ", "NASDAQ", "AAPL", "NASDAQ:AAPL", "AAPL.US"},

		// Empty input
		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseSymbol(tt.input)

			if result.Exchange != tt.wantExchange {
				t.Errorf("Exchange = %q, want %q", result.Exchange, tt.wantExchange)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.String() != tt.wantString {
				t.Errorf("String() = %q, want %q", result.String(), tt.wantString)
			}
			if result.ProviderSymbol() != tt.wantProvider {
				t.Errorf("ProviderSymbol() = %q, want %q", result.ProviderSymbol(), tt.wantProvider)
			}
		})
	}
}

func TestSymbol_IsKorean(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"KOSPI:005930", true},
		{"005930.KS", true},
		{"035720.KQ", true},
		{"NASDAQ:AAPL", false},
		{"AAPL", false},
		{"VOD.LSE", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSymbol(tt.input).IsKorean(); got != tt.want {
				t.Errorf("IsKorean() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSymbol_NewsQuery(t *testing.T) {
	tests := []struct {
		symbol      string
		companyName string
		want        string
	}{
		{"005930.KS", "삼성전자", "삼성전자 주가"},
		{"005930.KS", "", "005930 주가"},
		{"NASDAQ:AAPL", "Apple Inc", "Apple Inc stock"},
		{"NASDAQ:AAPL", "", "AAPL stock"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			result := ParseSymbol(tt.symbol).NewsQuery(tt.companyName)
			if result != tt.want {
				t.Errorf("NewsQuery(%q) = %q, want %q", tt.companyName, result, tt.want)
			}
		})
	}
}

func TestParseSymbols(t *testing.T) {
	input := []string{"NASDAQ:AAPL", "005930.KS", "MSFT", "  ", ""}
	result := ParseSymbols(input)

	if len(result) != 3 {
		t.Errorf("ParseSymbols returned %d symbols, want 3", len(result))
	}

	expected := []string{"AAPL", "005930", "MSFT"}
	for i, sym := range result {
		if sym.Code != expected[i] {
			t.Errorf("result[%d].Code = %q, want %q", i, sym.Code, expected[i])
		}
	}
}
