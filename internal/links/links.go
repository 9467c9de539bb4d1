// Package links intercepts messages carrying a URL: the page is fetched,
// boiled down to readable text, summarized and tagged by the model, and
// saved to the archive as a knowledge entry.
package links

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/naborsk/adjutant/internal/llm"
	"github.com/naborsk/adjutant/internal/persona"
	"github.com/naborsk/adjutant/internal/storage"
)

const (
	fetchTimeout     = 15 * time.Second
	summarizeTimeout = 10 * time.Second
	maxContentRunes  = 3000
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// ExtractURLs pulls http(s) URLs out of free text.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// Page is the readable extraction of a fetched URL.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Analysis is the model's summary of a page.
type Analysis struct {
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	KeyPoints []string `json:"key_points"`
}

// Completer runs a chat completion through the provider chain.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Archiver saves a note with tags and metadata.
type Archiver interface {
	SaveNote(n storage.Note) error
}

// Service handles the URL capture flow.
type Service struct {
	chain      Completer
	archive    Archiver
	httpClient *http.Client
	newID      func() string
}

func NewService(chain Completer, archive Archiver) *Service {
	return &Service{
		chain:      chain,
		archive:    archive,
		httpClient: &http.Client{Timeout: fetchTimeout},
		newID:      uuid.NewString,
	}
}

// Process fetches, summarizes, and archives the first URL in a message.
// It always returns a user-facing reply; a fetch failure still saves the
// bare link.
func (s *Service) Process(ctx context.Context, userID int64, url string) string {
	page, err := s.Fetch(ctx, url)
	if err != nil || page.Content == "" {
		if saveErr := s.archive.SaveNote(storage.Note{
			ID:      s.newID(),
			UserID:  userID,
			Content: "Saved link: " + url,
			Metadata: map[string]any{
				"type": "url",
				"url":  url,
			},
		}); saveErr != nil {
			return "Couldn't process that link. Please try again."
		}
		return "Couldn't read the page, saved the URL instead: " + url
	}

	analysis := s.summarize(ctx, page)
	if err := s.archive.SaveNote(storage.Note{
		ID:      s.newID(),
		UserID:  userID,
		Content: analysis.Summary,
		Tags:    analysis.Tags,
		Metadata: map[string]any{
			"type":                     "url",
			"url":                      url,
			"title":                    page.Title,
			"key_points":               analysis.KeyPoints,
			"original_content_preview": clipRunes(page.Content, 500),
		},
	}); err != nil {
		return "Couldn't save that link. Please try again."
	}

	return formatReply(page.Title, analysis)
}

// Fetch downloads the URL and extracts the title plus paragraph text,
// skipping chrome elements.
func (s *Service) Fetch(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return Page{}, fmt.Errorf("parsing %s: %w", url, err)
	}

	page := Page{URL: url, Title: url}
	if title := pageTitle(doc); title != "" {
		page.Title = title
	}
	page.Content = clipRunes(readableText(doc), maxContentRunes)
	return page, nil
}

func (s *Service) summarize(ctx context.Context, page Page) Analysis {
	fallback := Analysis{Summary: "Saved the link: " + page.Title}

	prompt := fmt.Sprintf(
		"You are a content analyst. You received an article/page from the web.\n"+
			"Return JSON with:\n"+
			"- \"summary\": summary in English (2-3 sentences)\n"+
			"- \"tags\": list of English tags (3-5 relevant tags)\n"+
			"- \"key_points\": 2-3 key points in English\n\n"+
			"Title: %s\nURL: %s\n\nContent:\n%s",
		page.Title, page.URL, page.Content)

	ctx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	resp, err := s.chain.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: persona.Identity + "\n\nYou are a content analyst. Return only valid JSON."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return fallback
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(resp), &analysis); err != nil || analysis.Summary == "" {
		return fallback
	}
	return analysis
}

func formatReply(title string, a Analysis) string {
	var b strings.Builder
	b.WriteString("Saved: " + title + "\n\n" + a.Summary)
	if len(a.KeyPoints) > 0 {
		b.WriteString("\n")
		for _, kp := range a.KeyPoints {
			b.WriteString("\n- " + kp)
		}
	}
	if len(a.Tags) > 0 {
		b.WriteString("\n\n")
		for i, tag := range a.Tags {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#" + tag)
		}
	}
	return b.String()
}

var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "form": true,
}

func pageTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(nodeText(n))
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// readableText joins the text of all paragraph elements outside chrome
// sections.
func readableText(doc *html.Node) string {
	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if n.Data == "p" {
				if text := strings.TrimSpace(nodeText(n)); text != "" {
					paragraphs = append(paragraphs, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(paragraphs, "\n")
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
