// Package report renders a daily corpus for people: the Markdown daily
// report and the evening wrap-up message.
package report

import (
	"fmt"
	"strings"

	"github.com/elonfeng/dailygarden/pkg/corpus"
	"github.com/elonfeng/dailygarden/pkg/summarize"
)

const (
	noData = "_No data_"

	// Titles fed into the daily summary.
	summaryWorldTitles = 30
	summaryLocalTitles = 15

	// The random article blurb only looks at the head of the extract.
	blurbChars     = 2000
	blurbSentences = 2
)

// Options tunes the daily report.
type Options struct {
	SummarySentences int
	Top              int
}

// DefaultOptions returns the stock report options.
func DefaultOptions() Options {
	return Options{SummarySentences: 3, Top: 5}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.SummarySentences <= 0 {
		o.SummarySentences = d.SummarySentences
	}
	if o.Top <= 0 {
		o.Top = d.Top
	}
	return o
}

// DailySummary condenses the leading world and local headlines of c into at
// most n sentences. Repeated titles count once.
func DailySummary(c *corpus.Corpus, n int) string {
	seen := make(map[string]bool)
	var titles []string
	add := func(hs []corpus.Headline, limit int) {
		if len(hs) > limit {
			hs = hs[:limit]
		}
		for _, h := range hs {
			t := strings.TrimSpace(h.Title)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			titles = append(titles, t)
		}
	}
	add(corpus.Items(c.News.World), summaryWorldTitles)
	add(corpus.Items(c.News.Local), summaryLocalTitles)
	return summarize.Summarize(strings.Join(titles, ". "), n)
}

// Markdown renders the daily report for c.
func Markdown(c *corpus.Corpus, opts Options) string {
	opts = opts.normalized()
	var b strings.Builder

	fmt.Fprintf(&b, "# Daily Knowledge Garden — %s\n\n", c.Date)
	if !c.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "_Updated %s · %d runs_\n\n", c.LastUpdated.Format("2006-01-02 15:04 MST"), len(c.Runs))
	}

	summary := DailySummary(c, opts.SummarySentences)
	if summary == "" {
		summary = noData
	}
	fmt.Fprintf(&b, "## 🧭 Daily Summary\n%s\n\n", summary)

	fmt.Fprintf(&b, "## 🌍 Global News (cross-source)\n%s\n\n", headlineLines(c.News.World, opts.Top))
	fmt.Fprintf(&b, "## 🏙️ Local News\n%s\n\n", headlineLines(c.News.Local, opts.Top))
	fmt.Fprintf(&b, "## 🚀 Hacker News (Top %d)\n%s\n\n", opts.Top, storyLines(corpus.Items(c.HN.Items), opts.Top))
	fmt.Fprintf(&b, "## 🌍 Wikipedia — On This Day (selected)\n%s\n\n", eventLines(c.Wiki.Today, opts.Top))

	random := c.Wiki.Random
	title := random.Title
	if title == "" {
		title = "N/A"
	}
	blurb := summarize.Summarize(truncateRunes(random.Extract, blurbChars), blurbSentences)
	fmt.Fprintf(&b, "## 🎲 Wikipedia — Random Article\n**%s**  \n%s\n%s\n\n", title, blurb, random.ContentURLs)

	apod := "Unavailable"
	if e := c.APOD.Entry; e != nil {
		apod = fmt.Sprintf("[%s](%s)", e.Title, e.Link)
	}
	fmt.Fprintf(&b, "## 🌌 NASA APOD\n%s\n", apod)

	if failed := failedFeeds(c); len(failed) > 0 {
		fmt.Fprintf(&b, "\n---\n_Feeds with errors: %s_\n", strings.Join(failed, ", "))
	}
	return b.String()
}

// uniqueByTitle keeps the first headline of each title, skipping untitled
// ones, up to limit.
func uniqueByTitle(hs []corpus.Headline, limit int) []corpus.Headline {
	seen := make(map[string]bool)
	var out []corpus.Headline
	for _, h := range hs {
		if h.Title == "" || seen[h.Title] {
			continue
		}
		seen[h.Title] = true
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out
}

func headlineLines(entries []corpus.Entry[corpus.Headline], limit int) string {
	hs := uniqueByTitle(corpus.Items(entries), limit)
	if len(hs) == 0 {
		return noData
	}
	lines := make([]string, len(hs))
	for i, h := range hs {
		lines[i] = fmt.Sprintf("- [%s](%s) — %s", h.Title, h.Link, h.Source)
	}
	return strings.Join(lines, "\n")
}

func storyLines(stories []corpus.Story, limit int) string {
	if len(stories) > limit {
		stories = stories[:limit]
	}
	if len(stories) == 0 {
		return noData
	}
	lines := make([]string, len(stories))
	for i, s := range stories {
		title := s.Title
		if title == "" {
			title = "(no title)"
		}
		lines[i] = fmt.Sprintf("- [%s](%s) — %d points, %d comments", title, s.Link(), s.Points, s.NumComments)
	}
	return strings.Join(lines, "\n")
}

func eventLines(events []corpus.Event, limit int) string {
	if len(events) > limit {
		events = events[:limit]
	}
	if len(events) == 0 {
		return noData
	}
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = fmt.Sprintf("- **%d** — %s", e.Year, e.Text)
	}
	return strings.Join(lines, "\n")
}

func failedFeeds(c *corpus.Corpus) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(fs []corpus.FetchError) {
		for _, f := range fs {
			if !seen[f.Source] {
				seen[f.Source] = true
				out = append(out, f.Source)
			}
		}
	}
	add(corpus.Failures(c.HN.Items))
	add(corpus.Failures(c.News.World))
	add(corpus.Failures(c.News.Local))
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
