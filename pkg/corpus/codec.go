package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode renders a corpus as an indented JSON document.
func Encode(c *Corpus) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode corpus %s: %w", c.Date, err)
	}
	return buf.Bytes(), nil
}

// Decode parses a corpus document. A document that is not a JSON object is
// rejected.
func Decode(data []byte) (*Corpus, error) {
	var c Corpus
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	return &c, nil
}
