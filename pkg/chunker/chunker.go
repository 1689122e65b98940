package chunker

import (
	"strings"

	"github.com/xhad/mercury/internal/models"
)

// DefaultDelimiter is the sentence-terminating character the annotation
// datasets use.
const DefaultDelimiter = "."

type ChunkerConfig struct {
	Delimiter string
}

// Chunker splits a document into ordered sentence-like spans with
// recoverable character offsets. Splitting is pure: the same input always
// yields the same spans.
type Chunker struct {
	config ChunkerConfig
}

func NewWithConfig(config ChunkerConfig) Chunker {
	if config.Delimiter == "" {
		config.Delimiter = DefaultDelimiter
	}

	return Chunker{
		config: config,
	}
}

func New() Chunker {
	return NewWithConfig(ChunkerConfig{})
}

// Split cuts text on the delimiter, excluding the delimiter from each span.
// Offsets point into the original text, so consecutive spans satisfy
// offset[i+1] == offset[i] + len(span[i]) + 1, the +1 being the consumed
// delimiter. A single empty span left behind a trailing delimiter is
// dropped; empty input yields one empty span at offset 0, and text without
// any delimiter yields exactly one span covering the whole input.
func (c *Chunker) Split(text string) []models.Span {
	parts := strings.Split(text, c.config.Delimiter)

	spans := make([]models.Span, 0, len(parts))
	offset := 0
	for _, part := range parts {
		spans = append(spans, models.Span{Text: part, Offset: offset})
		offset += len(part) + len(c.config.Delimiter)
	}

	if len(spans) > 1 && spans[len(spans)-1].Text == "" {
		spans = spans[:len(spans)-1]
	}

	return spans
}

// Join reassembles spans into document text with the delimiter between
// consecutive spans. For texts that did not end with the delimiter this is
// the byte-exact inverse of Split; a lone trailing delimiter is not
// recoverable, which is why the store keeps the original text alongside the
// chunks.
func (c *Chunker) Join(spans []models.Span) string {
	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.Text
	}
	return strings.Join(texts, c.config.Delimiter)
}
