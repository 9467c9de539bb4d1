package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

var displayNames = map[string]string{
	"^GSPC":     "S&P 500",
	"^IXIC":     "NASDAQ",
	"^TA125.TA": "TA-125",
	"NVDA":      "NVIDIA",
	"MSFT":      "Microsoft",
	"GOOGL":     "Google",
	"META":      "Meta",
	"AAPL":      "Apple",
	"AMZN":      "Amazon",
	"PLTR":      "Palantir",
}

// Quote is one symbol's daily snapshot.
type Quote struct {
	Symbol    string
	Name      string
	Price     float64
	ChangePct float64
}

// MarketSnapshot groups quotes by kind.
type MarketSnapshot struct {
	Indices []Quote
	Tickers []Quote
}

// MarketFetcher pulls daily quotes from Yahoo Finance's chart API for the
// configured indices and watchlist.
type MarketFetcher struct {
	indices    []string
	watchlist  []string
	httpClient *http.Client
}

// NewMarketFetcher creates a fetcher. watchlist and indices are
// comma-separated symbol lists.
func NewMarketFetcher(watchlist, indices string) *MarketFetcher {
	return &MarketFetcher{
		indices:    splitSymbols(indices),
		watchlist:  splitSymbols(watchlist),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch returns quotes for the configured symbols plus any extras mentioned
// in the query. Failing symbols are logged and skipped.
func (m *MarketFetcher) Fetch(ctx context.Context, extras []string) (MarketSnapshot, error) {
	watch := m.watchlist
	for _, e := range extras {
		if !containsSymbol(watch, e) {
			watch = append(watch, e)
		}
	}

	symbols := append(append([]string{}, m.indices...), watch...)
	quotes := make([]*Quote, len(symbols))

	var g errgroup.Group
	for i, sym := range symbols {
		g.Go(func() error {
			q, err := m.fetchSymbol(ctx, sym)
			if err != nil {
				slog.Warn("failed to fetch symbol", "symbol", sym, "error", err)
				return nil
			}
			quotes[i] = q
			return nil
		})
	}
	g.Wait()

	var snapshot MarketSnapshot
	for i, q := range quotes {
		if q == nil {
			continue
		}
		if i < len(m.indices) {
			snapshot.Indices = append(snapshot.Indices, *q)
		} else {
			snapshot.Tickers = append(snapshot.Tickers, *q)
		}
	}
	return snapshot, nil
}

func (m *MarketFetcher) fetchSymbol(ctx context.Context, symbol string) (*Quote, error) {
	u := yahooChartURL + url.PathEscape(symbol) + "?range=1d&interval=1d"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart api status %d", resp.StatusCode)
	}

	var parsed struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					ChartPreviousClose float64 `json:"chartPreviousClose"`
					PreviousClose      float64 `json:"previousClose"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding chart response: %w", err)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart result for %s", symbol)
	}

	meta := parsed.Chart.Result[0].Meta
	prev := meta.ChartPreviousClose
	if prev == 0 {
		prev = meta.PreviousClose
	}
	q := &Quote{
		Symbol: symbol,
		Name:   displayName(symbol),
		Price:  meta.RegularMarketPrice,
	}
	if prev != 0 {
		q.ChangePct = (meta.RegularMarketPrice - prev) / prev * 100
	}
	return q, nil
}

// FormatMarket renders a snapshot as a context block. Empty string when no
// quotes survived.
func FormatMarket(s MarketSnapshot) string {
	var lines []string
	for _, q := range s.Indices {
		lines = append(lines, fmt.Sprintf("%s %s: %.0f (%+.1f%%)", trendMark(q.ChangePct), q.Name, q.Price, q.ChangePct))
	}
	for _, q := range s.Tickers {
		lines = append(lines, fmt.Sprintf("%s %s: $%.2f (%+.1f%%)", trendMark(q.ChangePct), q.Name, q.Price, q.ChangePct))
	}
	return strings.Join(lines, "\n")
}

var tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// commonWords are uppercase tokens that look like tickers but aren't.
var commonWords = map[string]bool{
	"AI": true, "THE": true, "AND": true, "FOR": true, "WHAT": true,
	"HOW": true, "WHY": true, "USA": true, "CEO": true, "IPO": true,
}

// ExtractTickers pulls likely stock symbols out of free text.
func ExtractTickers(text string) []string {
	var tickers []string
	seen := make(map[string]bool)
	for _, m := range tickerPattern.FindAllString(text, -1) {
		if commonWords[m] || seen[m] {
			continue
		}
		seen[m] = true
		tickers = append(tickers, m)
	}
	return tickers
}

func displayName(symbol string) string {
	if name, ok := displayNames[symbol]; ok {
		return name
	}
	return symbol
}

func trendMark(changePct float64) string {
	if changePct >= 0 {
		return "▲"
	}
	return "▼"
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsSymbol(symbols []string, s string) bool {
	for _, sym := range symbols {
		if sym == s {
			return true
		}
	}
	return false
}
