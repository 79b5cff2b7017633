package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func rssFeed(titles ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Feed</title>`)
	for i, title := range titles {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://news.example/%d</link>`, title, i)
		if i%2 == 0 {
			b.WriteString(`<pubDate>Fri, 14 Mar 2025 08:00:00 GMT</pubDate>`)
		}
		b.WriteString(`</item>`)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func newsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %q", got)
		}
		switch r.URL.Path {
		case "/world":
			w.Write([]byte(rssFeed("Markets rally", "Storm hits coast", "Summit opens")))
		case "/tech":
			w.Write([]byte(rssFeed("Chip launch")))
		case "/broken":
			w.Write([]byte("this is not a feed"))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewsCollectRecordsFailuresPerFeed(t *testing.T) {
	srv := newsServer(t)
	feeds := []Feed{
		{Label: "Wire — World", URL: srv.URL + "/world"},
		{Label: "Wire — Gone", URL: srv.URL + "/gone"},
		{Label: "Wire — Tech", URL: srv.URL + "/tech"},
		{Label: "Wire — Broken", URL: srv.URL + "/broken"},
	}

	res, err := NewNews(SourceWorld, feeds, 0, 0).Collect(context.Background(), collectedAt)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	got := res.Headlines
	if len(got) != 6 {
		t.Fatalf("expected 6 entries, got %d: %+v", len(got), got)
	}
	wantKinds := []string{"item", "item", "item", "error", "item", "error"}
	for i, kind := range wantKinds {
		if (kind == "error") != got[i].IsError() {
			t.Errorf("entry %d: expected %s, got %+v", i, kind, got[i])
		}
	}
	if got[3].Err.Source != "Wire — Gone" || !strings.Contains(got[3].Err.Message, "410") {
		t.Errorf("unexpected failure entry: %+v", got[3].Err)
	}
	if got[5].Err.Source != "Wire — Broken" {
		t.Errorf("unexpected failure entry: %+v", got[5].Err)
	}

	first := got[0].Item
	if first.Title != "Markets rally" || first.Link != "https://news.example/0" || first.Source != "Wire — World" {
		t.Errorf("unexpected headline: %+v", first)
	}
	if first.Published != "Fri, 14 Mar 2025 08:00:00 GMT" {
		t.Errorf("published = %q", first.Published)
	}
	if got[1].Item.Published != "2025-03-14T08:30:00Z" {
		t.Errorf("missing pubDate should fall back to the collection time, got %q", got[1].Item.Published)
	}
}

func TestNewsCollectLimits(t *testing.T) {
	srv := newsServer(t)
	feeds := []Feed{
		{Label: "World", URL: srv.URL + "/world"},
		{Label: "Tech", URL: srv.URL + "/tech"},
	}

	res, err := NewNews(SourceWorld, feeds, 2, 0).Collect(context.Background(), collectedAt)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(res.Headlines) != 3 {
		t.Errorf("per-feed limit: expected 3 entries, got %d", len(res.Headlines))
	}

	res, err = NewNews(SourceWorld, feeds, 0, 2).Collect(context.Background(), collectedAt)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(res.Headlines) != 2 || res.Headlines[1].Item.Title != "Storm hits coast" {
		t.Errorf("overall limit should keep the head, got %+v", res.Headlines)
	}
}

func TestLocalFeeds(t *testing.T) {
	feeds := LocalFeeds("", "Northern Virginia")
	if len(feeds) != 3 {
		t.Fatalf("expected 3 feeds, got %d", len(feeds))
	}

	wantLabels := []string{
		"Google News — Northern Virginia",
		"Google News — Northern Virginia traffic",
		"Google News — Northern Virginia weather",
	}
	wantQueries := []string{
		"Northern Virginia",
		"Northern Virginia traffic OR transit",
		"Northern Virginia weather warning OR advisory",
	}
	for i, f := range feeds {
		if f.Label != wantLabels[i] {
			t.Errorf("label %d = %q, want %q", i, f.Label, wantLabels[i])
		}
		u, err := url.Parse(f.URL)
		if err != nil {
			t.Fatalf("bad url %q: %v", f.URL, err)
		}
		if !strings.HasPrefix(f.URL, GoogleNewsSearchURL+"?") {
			t.Errorf("url %q should use the Google News search endpoint", f.URL)
		}
		q := u.Query()
		if q.Get("q") != wantQueries[i] || q.Get("hl") != "en-US" || q.Get("gl") != "US" || q.Get("ceid") != "US:en" {
			t.Errorf("unexpected query for feed %d: %v", i, q)
		}
	}
}

func TestDefaultWorldFeeds(t *testing.T) {
	feeds := DefaultWorldFeeds()
	if len(feeds) != 19 {
		t.Errorf("expected 19 default feeds, got %d", len(feeds))
	}
	seen := map[string]bool{}
	for _, f := range feeds {
		if f.Label == "" || f.URL == "" {
			t.Errorf("incomplete feed %+v", f)
		}
		if seen[f.Label] {
			t.Errorf("duplicate label %q", f.Label)
		}
		seen[f.Label] = true
	}
}
