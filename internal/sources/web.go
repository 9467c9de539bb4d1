package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	braveURL = "https://api.search.brave.com/res/v1/web/search"
	ddgURL   = "https://html.duckduckgo.com/html/"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string
	Snippet string
	URL     string
}

// WebSearcher queries Brave Search when an API key is configured and falls
// back to scraping DuckDuckGo's HTML endpoint otherwise.
type WebSearcher struct {
	braveKey   string
	searchURL  string
	httpClient *http.Client
}

// NewWebSearcher creates a searcher. An empty braveKey disables the Brave
// tier.
func NewWebSearcher(braveKey string) *WebSearcher {
	return &WebSearcher{
		braveKey:   braveKey,
		searchURL:  braveURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Search returns up to max results, trying Brave first.
func (w *WebSearcher) Search(ctx context.Context, query string, max int) ([]SearchResult, error) {
	if w.braveKey != "" {
		results, err := w.braveSearch(ctx, query, max)
		if err != nil {
			slog.Warn("brave search failed, falling back to ddg", "error", err)
		} else if len(results) > 0 {
			return results, nil
		}
	}
	return w.ddgSearch(ctx, query, max)
}

func (w *WebSearcher) braveSearch(ctx context.Context, query string, max int) ([]SearchResult, error) {
	u := fmt.Sprintf("%s?q=%s&count=%d", w.searchURL, url.QueryEscape(query), max)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", w.braveKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search status %d", resp.StatusCode)
	}

	var parsed struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				URL         string `json:"url"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding brave response: %w", err)
	}

	var results []SearchResult
	for _, item := range parsed.Web.Results {
		results = append(results, SearchResult{Title: item.Title, Snippet: item.Description, URL: item.URL})
		if len(results) == max {
			break
		}
	}
	return results, nil
}

func (w *WebSearcher) ddgSearch(ctx context.Context, query string, max int) ([]SearchResult, error) {
	form := url.Values{"q": {query}, "b": {""}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ddgURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)")
	req.Header.Set("Referer", "https://duckduckgo.com/")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ddg search status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing ddg html: %w", err)
	}
	return parseDDGResults(doc, max), nil
}

// parseDDGResults walks the result blocks of DuckDuckGo's HTML page.
func parseDDGResults(doc *html.Node, max int) []SearchResult {
	var results []SearchResult
	for _, block := range findAllByClass(doc, "result") {
		link := firstByClass(block, "result__a")
		snippet := firstByClass(block, "result__snippet")
		if link == nil {
			continue
		}

		r := SearchResult{
			Title: strings.TrimSpace(textContent(link)),
			URL:   attrValue(link, "href"),
		}
		if snippet != nil {
			r.Snippet = strings.TrimSpace(textContent(snippet))
		}
		if r.Title == "" || r.Snippet == "" {
			continue
		}
		results = append(results, r)
		if len(results) == max {
			break
		}
	}
	return results
}

// FormatSearchResults renders hits as a numbered context block.
func FormatSearchResults(results []SearchResult) string {
	var lines []string
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%d. %s\n   %s\n   %s", i+1, r.Title, r.Snippet, r.URL))
	}
	return strings.Join(lines, "\n\n")
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func findAllByClass(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && hasClass(node, class) {
			out = append(out, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func firstByClass(n *html.Node, class string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if found != nil {
			return
		}
		if node.Type == html.ElementNode && hasClass(node, class) {
			found = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return found
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
