package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/elonfeng/dailygarden/pkg/corpus"
	"github.com/elonfeng/dailygarden/pkg/summarize"
)

// WrapupFallback is used when the day's titles yield no summary.
const WrapupFallback = "Daily activity captured. See links below."

// WrapupOptions tunes the evening wrap-up.
type WrapupOptions struct {
	Top              int
	SummarySentences int

	// Optional links rendered at the bottom; %s is replaced by the date.
	ReportURL string
	SiteURL   string
}

// Wrapup is the evening digest of one corpus.
type Wrapup struct {
	Date    string
	Subject string
	Summary string
	Stories []corpus.Story
	HTML    string
}

// BuildWrapup summarizes the day's discussion-site stories.
func BuildWrapup(c *corpus.Corpus, opts WrapupOptions) (*Wrapup, error) {
	if opts.Top <= 0 {
		opts.Top = 10
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = 4
	}

	stories := corpus.Items(c.HN.Items)
	top := corpus.Dedupe(stories, corpus.StoryKey)
	if len(top) > opts.Top {
		top = top[:opts.Top]
	}

	var titles []string
	for _, s := range stories {
		if t := strings.TrimSpace(s.Title); t != "" {
			titles = append(titles, t)
		}
	}
	summary := summarize.Summarize(strings.Join(titles, ". "), opts.SummarySentences)
	if summary == "" {
		summary = WrapupFallback
	}

	w := &Wrapup{
		Date:    c.Date,
		Subject: fmt.Sprintf("Daily wrap-up — %s (Daily Knowledge Garden)", c.Date),
		Summary: summary,
		Stories: top,
	}

	data := wrapupData{Date: c.Date, Summary: summary}
	for _, s := range top {
		title := s.Title
		if title == "" {
			title = "(no title)"
		}
		data.Stories = append(data.Stories, wrapupStory{
			Title:    title,
			URL:      s.Link(),
			Points:   s.Points,
			Comments: s.NumComments,
		})
	}
	if opts.ReportURL != "" {
		data.ReportURL = expandDate(opts.ReportURL, c.Date)
	}
	if opts.SiteURL != "" {
		data.SiteURL = expandDate(opts.SiteURL, c.Date)
	}

	var buf bytes.Buffer
	if err := wrapupTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render wrapup %s: %w", c.Date, err)
	}
	w.HTML = buf.String()
	return w, nil
}

// expandDate substitutes date for every %s in s. Other percent escapes are
// left alone.
func expandDate(s, date string) string {
	return strings.ReplaceAll(s, "%s", date)
}

type wrapupStory struct {
	Title    string
	URL      string
	Points   int
	Comments int
}

type wrapupData struct {
	Date      string
	Summary   string
	Stories   []wrapupStory
	ReportURL string
	SiteURL   string
}

var wrapupTemplate = template.Must(template.New("wrapup").Parse(
	`<h2>Daily Knowledge Garden — {{.Date}}</h2>
<p><strong>Summary:</strong> {{.Summary}}</p>
{{- if .Stories}}
<h3>Top Hacker News stories</h3><ol>
{{- range .Stories}}
<li><a href="{{.URL}}">{{.Title}}</a> — {{.Points}} points, {{.Comments}} comments</li>
{{- end}}
</ol>
{{- end}}
{{- if .ReportURL}}
<p>Full report: <a href="{{.ReportURL}}">report.md</a></p>
{{- end}}
{{- if .SiteURL}}
<p>Live site: <a href="{{.SiteURL}}">Daily Knowledge Garden — {{.Date}}</a></p>
{{- end}}
`))
