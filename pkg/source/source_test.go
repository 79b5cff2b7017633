package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var collectedAt = time.Date(2025, 3, 14, 8, 30, 0, 0, time.UTC)

func TestParseSourceTypes(t *testing.T) {
	tests := []struct {
		in      string
		want    []SourceType
		wantErr bool
	}{
		{"", AllSourceTypes(), false},
		{"hn", []SourceType{SourceHackerNews}, false},
		{" wiki , HN,wiki ", []SourceType{SourceWiki, SourceHackerNews}, false},
		{"hn,,apod", []SourceType{SourceHackerNews, SourceAPOD}, false},
		{"hn,reddit", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseSourceTypes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSourceTypes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseSourceTypes(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseSourceTypes(%q)[%d] = %s, want %s", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

const algoliaPage = `{"hits": [
  {"title": "Show HN: Garden", "url": "https://garden.example", "points": 321, "author": "alice",
   "num_comments": 45, "created_at": "2025-03-14T06:00:00Z", "objectID": "1001"},
  {"title": "Ask HN: Anyone else?", "url": null, "points": null, "author": "bob",
   "num_comments": 2, "created_at": "2025-03-14T07:00:00Z", "objectID": "1002"},
  {"title": "Third", "url": "https://third.example", "points": 5, "author": "carol",
   "num_comments": 0, "created_at": "2025-03-14T07:30:00Z", "objectID": "1003"}
]}`

func TestHackerNewsCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tags") != "front_page" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(algoliaPage))
	}))
	defer srv.Close()

	hn := NewHackerNews(srv.URL+"/api/v1/search?tags=front_page", 2)
	res, err := hn.Collect(context.Background(), collectedAt)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if len(res.Stories) != 2 {
		t.Fatalf("expected limit of 2 stories, got %d", len(res.Stories))
	}
	first := res.Stories[0].Item
	if first.ObjectID != "1001" || first.Points != 321 || first.NumComments != 45 || first.Author != "alice" {
		t.Errorf("unexpected first story: %+v", first)
	}
	second := res.Stories[1].Item
	if second.URL != "" || second.Points != 0 {
		t.Errorf("null fields should decode as zero values: %+v", second)
	}
	if second.Link() != "https://news.ycombinator.com/item?id=1002" {
		t.Errorf("Link() = %q", second.Link())
	}
}

func TestHackerNewsCollectStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHackerNews(srv.URL, 0).Collect(context.Background(), collectedAt)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

const onThisDay = `{"events": [
  {"year": 1879, "text": "Albert Einstein is born.", "pages": [{"titles": {"normalized": "Albert Einstein"}}]},
  {"year": 1794, "text": "Eli Whitney patents the cotton gin.", "pages": []},
  {"year": 2008, "text": "Something else happens.", "pages": []}
]}`

const randomSummary = `{"title": "Pi", "description": "Mathematical constant",
  "extract": "Pi is the ratio of a circle's circumference to its diameter. It is irrational.",
  "content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Pi"}}}`

func TestWikipediaCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed/onthisday/events/03/14":
			w.Write([]byte(onThisDay))
		case "/page/random/summary":
			w.Write([]byte(randomSummary))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	res, err := NewWikipedia(srv.URL, 2).Collect(context.Background(), collectedAt)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	a := res.Almanac
	if len(a.Today) != 2 {
		t.Fatalf("expected 2 events, got %d", len(a.Today))
	}
	if a.Today[0].Year != 1879 || len(a.Today[0].Pages) != 1 || a.Today[0].Pages[0] != "Albert Einstein" {
		t.Errorf("unexpected first event: %+v", a.Today[0])
	}
	if a.Random.Title != "Pi" || a.Random.ContentURLs != "https://en.wikipedia.org/wiki/Pi" {
		t.Errorf("unexpected random article: %+v", a.Random)
	}
}

func TestWikipediaPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page/random/summary" {
			w.Write([]byte(randomSummary))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, err := NewWikipedia(srv.URL, 0).Collect(context.Background(), collectedAt)
	if err == nil {
		t.Fatal("expected an error for the failed half")
	}
	if res.Almanac.Random.Title != "Pi" {
		t.Errorf("random article should survive a failed events call: %+v", res.Almanac)
	}
	if len(res.Almanac.Today) != 0 {
		t.Errorf("expected no events, got %d", len(res.Almanac.Today))
	}
}

const apodFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>APOD</title><link>https://apod.nasa.gov/</link>
<item><title>Pillars of Creation</title><link>https://apod.nasa.gov/apod/ap250314.html</link>
<description>Towers of gas and dust.</description><pubDate>Fri, 14 Mar 2025 05:00:00 GMT</pubDate></item>
<item><title>Yesterday</title><link>https://apod.nasa.gov/apod/ap250313.html</link></item>
</channel></rss>`

func TestAPODCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(apodFeed))
	}))
	defer srv.Close()

	res, err := NewAPOD(srv.URL).Collect(context.Background(), collectedAt)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	e := res.Image.Entry
	if e == nil {
		t.Fatal("expected an entry")
	}
	if e.Title != "Pillars of Creation" || e.Link != "https://apod.nasa.gov/apod/ap250314.html" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Summary != "Towers of gas and dust." || e.Published == "" {
		t.Errorf("unexpected summary/published: %+v", e)
	}
}

func TestAPODEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>APOD</title></channel></rss>`))
	}))
	defer srv.Close()

	res, err := NewAPOD(srv.URL).Collect(context.Background(), collectedAt)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if !res.Image.IsEmpty() {
		t.Errorf("expected empty image, got %+v", res.Image.Entry)
	}
}
