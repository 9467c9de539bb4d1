package sources

import (
	"strings"
	"testing"
)

func TestExtractTickers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single ticker", "how is NVDA doing", []string{"NVDA"}},
		{"dedup", "NVDA vs NVDA and MSFT", []string{"NVDA", "MSFT"}},
		{"skips common words", "WHY is AI the future", nil},
		{"none", "what should I do today", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTickers(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestFormatMarket(t *testing.T) {
	out := FormatMarket(MarketSnapshot{
		Indices: []Quote{{Symbol: "^GSPC", Name: "S&P 500", Price: 6400, ChangePct: 0.8}},
		Tickers: []Quote{{Symbol: "NVDA", Name: "NVIDIA", Price: 181.55, ChangePct: -1.2}},
	})
	if !strings.Contains(out, "S&P 500: 6400 (+0.8%)") {
		t.Errorf("missing index line: %q", out)
	}
	if !strings.Contains(out, "NVIDIA: $181.55 (-1.2%)") {
		t.Errorf("missing ticker line: %q", out)
	}
	if !strings.Contains(out, "▲") || !strings.Contains(out, "▼") {
		t.Errorf("missing trend marks: %q", out)
	}
}

func TestFormatMarket_Empty(t *testing.T) {
	if out := FormatMarket(MarketSnapshot{}); out != "" {
		t.Errorf("expected empty string, got %q", out)
	}
}

func TestSplitSymbols(t *testing.T) {
	got := splitSymbols(" NVDA, MSFT ,,GOOGL ")
	want := []string{"NVDA", "MSFT", "GOOGL"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}
