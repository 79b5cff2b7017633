// Package summarize builds short extractive digests from headline-like text.
package summarize

import (
	"regexp"
	"sort"
	"strings"
)

var (
	boundaryRe = regexp.MustCompile(`[.!?][\s\p{Zs}\v]+`)
	wordRe     = regexp.MustCompile(`[A-Za-z][A-Za-z'\-]+`)
)

// DefaultStopwords are dropped from the frequency histogram.
var DefaultStopwords = []string{
	"the", "a", "an", "and", "or", "of", "to", "in", "on", "for", "with", "is",
	"are", "was", "were", "by", "from", "as", "at", "that", "this", "it", "be",
}

const epsilon = 1e-9

// Extractor selects the highest scoring sentences of a text. The zero value
// is not usable; build one with New.
type Extractor struct {
	stopwords map[string]bool
}

// New returns an Extractor ignoring the given stop words. A nil slice
// selects DefaultStopwords.
func New(stopwords []string) *Extractor {
	if stopwords == nil {
		stopwords = DefaultStopwords
	}
	set := make(map[string]bool, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = true
	}
	return &Extractor{stopwords: set}
}

var defaultExtractor = New(nil)

// Summarize returns at most maxSentences sentences of text using the default
// stop words.
func Summarize(text string, maxSentences int) string {
	return defaultExtractor.Summarize(text, maxSentences)
}

// Summarize splits text into sentences, scores each one by the mean corpus
// frequency of its words and returns the best maxSentences of them in their
// original order. Equal scores go to the earlier sentence.
func (e *Extractor) Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		return ""
	}
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := make(map[string]int)
	for _, w := range tokens(text) {
		if !e.stopwords[w] {
			freq[w]++
		}
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		words := tokens(s)
		total := 0
		for _, w := range words {
			total += freq[w]
		}
		ranked[i] = scored{index: i, score: float64(total) / (float64(len(words)) + epsilon)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].index < ranked[j].index
	})

	picked := make([]int, maxSentences)
	for i := range picked {
		picked[i] = ranked[i].index
	}
	sort.Ints(picked)

	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

// Sentences splits text after every '.', '!' or '?' that is followed by
// whitespace. Terminal punctuation stays with its sentence and empty
// fragments are dropped.
func Sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for _, loc := range boundaryRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start : loc[0]+1]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func tokens(s string) []string {
	words := wordRe.FindAllString(s, -1)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}
