package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/naborsk/adjutant/internal/cache"
)

const newsCacheTTL = 5 * time.Minute

// feed is one curated RSS source.
type feed struct {
	url    string
	source string
}

var newsFeeds = []feed{
	{"https://techcrunch.com/category/artificial-intelligence/feed/", "TechCrunch"},
	{"https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", "The Verge"},
	{"https://www.technologyreview.com/feed/", "MIT Tech Review"},
	{"https://openai.com/blog/rss.xml", "OpenAI Blog"},
}

// NewsItem is one headline.
type NewsItem struct {
	Title   string
	Source  string
	Link    string
	Summary string
}

// NewsFetcher pulls AI headlines from curated RSS feeds, with a short cache
// so repeated queries don't hammer the feeds.
type NewsFetcher struct {
	parser *gofeed.Parser
	cache  *cache.Cache
	feeds  []feed
	now    func() time.Time
}

// NewNewsFetcher creates a fetcher over the curated feed list.
func NewNewsFetcher(c *cache.Cache) *NewsFetcher {
	return &NewsFetcher{
		parser: gofeed.NewParser(),
		cache:  c,
		feeds:  newsFeeds,
		now:    time.Now,
	}
}

// Fetch returns up to maxItems headlines published within the window. All
// feeds are fetched in parallel; a failing feed is logged and skipped.
func (n *NewsFetcher) Fetch(ctx context.Context, maxItems int, window time.Duration) ([]NewsItem, error) {
	key := fmt.Sprintf("ai_news:%d:%s", maxItems, window)
	if cached, ok := n.cache.Get(key); ok {
		return cached.([]NewsItem), nil
	}

	cutoff := n.now().UTC().Add(-window)
	perFeed := make([][]NewsItem, len(n.feeds))

	var g errgroup.Group
	for i, f := range n.feeds {
		g.Go(func() error {
			items, err := n.fetchFeed(ctx, f, cutoff)
			if err != nil {
				slog.Warn("failed to fetch feed", "source", f.source, "error", err)
				return nil
			}
			perFeed[i] = items
			return nil
		})
	}
	g.Wait()

	var all []NewsItem
	for _, items := range perFeed {
		all = append(all, items...)
	}
	if len(all) > maxItems {
		all = all[:maxItems]
	}

	n.cache.Set(key, all, newsCacheTTL)
	return all, nil
}

func (n *NewsFetcher) fetchFeed(ctx context.Context, f feed, cutoff time.Time) ([]NewsItem, error) {
	parsed, err := n.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, err
	}

	var items []NewsItem
	for _, entry := range parsed.Items {
		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		if published != nil && published.Before(cutoff) {
			continue
		}
		items = append(items, NewsItem{
			Title:   entry.Title,
			Source:  f.source,
			Link:    entry.Link,
			Summary: clip(entry.Description, 200),
		})
	}
	return items, nil
}
