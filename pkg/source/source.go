package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

// SourceType identifies which collaborator an entry came from.
type SourceType string

const (
	SourceHackerNews SourceType = "hn"
	SourceWorld      SourceType = "world"
	SourceLocal      SourceType = "local"
	SourceWiki       SourceType = "wiki"
	SourceAPOD       SourceType = "apod"
)

const userAgent = "dailygarden/1.0"

// Result is what a single source contributed to one collection cycle. Only
// the field matching the source's type is set.
type Result struct {
	Stories   []corpus.Entry[corpus.Story]
	Headlines []corpus.Entry[corpus.Headline]
	Almanac   corpus.Almanac
	Image     corpus.ImageOfDay
}

// Source is the interface every collector must implement. now is the
// collection time in the configured local timezone.
type Source interface {
	Name() SourceType
	Collect(ctx context.Context, now time.Time) (Result, error)
}

// AllSourceTypes returns all known source types in snapshot order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceHackerNews,
		SourceWorld,
		SourceLocal,
		SourceWiki,
		SourceAPOD,
	}
}

// ParseSourceTypes parses a comma separated list such as "hn,wiki". An empty
// string selects every source.
func ParseSourceTypes(s string) ([]SourceType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AllSourceTypes(), nil
	}

	known := make(map[SourceType]bool)
	for _, t := range AllSourceTypes() {
		known[t] = true
	}

	var out []SourceType
	seen := make(map[SourceType]bool)
	for _, part := range strings.Split(s, ",") {
		t := SourceType(strings.ToLower(strings.TrimSpace(part)))
		if t == "" {
			continue
		}
		if !known[t] {
			return nil, fmt.Errorf("unknown source %q", t)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// getJSON fetches url and decodes a JSON body into v.
func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 20 * time.Second}
}
