package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

// DefaultPerFeed is how many entries are read from each feed.
const DefaultPerFeed = 15

// GoogleNewsSearchURL is the base of Google News RSS search feeds.
const GoogleNewsSearchURL = "https://news.google.com/rss/search"

// Feed is a labelled RSS/Atom feed URL.
type Feed struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

// DefaultWorldFeeds returns the stock world news feeds.
func DefaultWorldFeeds() []Feed {
	return []Feed{
		{"Reuters — World", "https://feeds.reuters.com/reuters/worldNews"},
		{"Reuters — Business", "https://feeds.reuters.com/reuters/businessNews"},
		{"Reuters — Tech", "https://feeds.reuters.com/reuters/technologyNews"},
		{"Reuters — Science", "https://feeds.reuters.com/reuters/scienceNews"},
		{"BBC — World", "http://feeds.bbci.co.uk/news/world/rss.xml"},
		{"BBC — Tech", "http://feeds.bbci.co.uk/news/technology/rss.xml"},
		{"BBC — Business", "http://feeds.bbci.co.uk/news/business/rss.xml"},
		{"BBC — Science", "http://feeds.bbci.co.uk/news/science_and_environment/rss.xml"},
		{"AP — Top", "https://apnews.com/hub/apf-topnews?utm_source=apnews.com&utm_medium=referral&utm_campaign=aprss"},
		{"AP — Politics", "https://apnews.com/hub/politics?utm_source=apnews.com&utm_medium=referral&utm_campaign=aprss"},
		{"AP — Business", "https://apnews.com/hub/business?utm_source=apnews.com&utm_medium=referral&utm_campaign=aprss"},
		{"NPR — Top Stories", "https://feeds.npr.org/1001/rss.xml"},
		{"NPR — Politics", "https://feeds.npr.org/1019/rss.xml"},
		{"NPR — Business", "https://feeds.npr.org/1007/rss.xml"},
		{"NPR — Science", "https://feeds.npr.org/1008/rss.xml"},
		{"NPR — Technology", "https://feeds.npr.org/1013/rss.xml"},
		{"ScienceNews", "https://www.sciencenews.org/feed"},
		{"ScienceDaily — Top", "https://www.sciencedaily.com/rss/top/science.xml"},
		{"Nature — Technology", "https://www.nature.com/subjects/technology.rss"},
	}
}

// LocalFeeds builds the Google News search feeds for an area such as
// "Northern Virginia": general news, traffic and weather alerts. An empty
// base selects GoogleNewsSearchURL.
func LocalFeeds(base, query string) []Feed {
	if base == "" {
		base = GoogleNewsSearchURL
	}
	search := func(q string) string {
		v := url.Values{}
		v.Set("q", q)
		v.Set("hl", "en-US")
		v.Set("gl", "US")
		v.Set("ceid", "US:en")
		return base + "?" + v.Encode()
	}
	return []Feed{
		{"Google News — " + query, search(query)},
		{"Google News — " + query + " traffic", search(query + " traffic OR transit")},
		{"Google News — " + query + " weather", search(query + " weather warning OR advisory")},
	}
}

// News collects headlines from a list of feeds into one category. A feed
// that fails contributes a single failure entry labelled with the feed.
type News struct {
	client  *http.Client
	kind    SourceType
	feeds   []Feed
	perFeed int
	limit   int
}

// NewNews creates a headline collector for the world or local category.
// perFeed <= 0 selects DefaultPerFeed; limit <= 0 keeps every entry.
func NewNews(kind SourceType, feeds []Feed, perFeed, limit int) *News {
	if perFeed <= 0 {
		perFeed = DefaultPerFeed
	}
	return &News{
		client:  newHTTPClient(),
		kind:    kind,
		feeds:   feeds,
		perFeed: perFeed,
		limit:   limit,
	}
}

func (n *News) Name() SourceType { return n.kind }

func (n *News) Collect(ctx context.Context, now time.Time) (Result, error) {
	var entries []corpus.Entry[corpus.Headline]

	for _, feed := range n.feeds {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		headlines, err := n.collectFeed(ctx, feed, now)
		if err != nil {
			entries = append(entries, corpus.ErrorEntry[corpus.Headline](feed.Label, err.Error()))
			continue
		}
		for _, h := range headlines {
			entries = append(entries, corpus.ItemEntry(h))
		}
	}

	if n.limit > 0 && len(entries) > n.limit {
		entries = entries[:n.limit]
	}
	return Result{Headlines: entries}, nil
}

func (n *News) collectFeed(ctx context.Context, feed Feed, now time.Time) ([]corpus.Headline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Label, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Label, resp.StatusCode)
	}

	// gofeed.Parser is not safe for concurrent use.
	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Label, err)
	}

	items := parsed.Items
	if len(items) > n.perFeed {
		items = items[:n.perFeed]
	}

	headlines := make([]corpus.Headline, 0, len(items))
	for _, entry := range items {
		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}
		published := entry.Published
		if published == "" {
			published = now.UTC().Format("2006-01-02T15:04:05Z")
		}
		headlines = append(headlines, corpus.Headline{
			Title:     strings.TrimSpace(entry.Title),
			Link:      link,
			Published: published,
			Source:    feed.Label,
		})
	}
	return headlines, nil
}
