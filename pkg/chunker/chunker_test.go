package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/pkg/chunker"
)

func TestChunker_Split(t *testing.T) {
	c := chunker.New()

	tests := []struct {
		name string
		text string
		want []models.Span
	}{
		{
			name: "two sentences with trailing delimiter",
			text: "The quick brown fox. Jumps over a lazy dog.",
			want: []models.Span{
				{Text: "The quick brown fox", Offset: 0},
				{Text: " Jumps over a lazy dog", Offset: 20},
			},
		},
		{
			name: "single sentence with trailing delimiter",
			text: "26 letters.",
			want: []models.Span{
				{Text: "26 letters", Offset: 0},
			},
		},
		{
			name: "empty input",
			text: "",
			want: []models.Span{
				{Text: "", Offset: 0},
			},
		},
		{
			name: "no delimiter",
			text: "no sentence boundary here",
			want: []models.Span{
				{Text: "no sentence boundary here", Offset: 0},
			},
		},
		{
			name: "delimiter only",
			text: ".",
			want: []models.Span{
				{Text: "", Offset: 0},
			},
		},
		{
			name: "interior empty sentence survives",
			text: "a..b",
			want: []models.Span{
				{Text: "a", Offset: 0},
				{Text: "", Offset: 2},
				{Text: "b", Offset: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Split(tt.text))
		})
	}
}

func TestChunker_OffsetInvariant(t *testing.T) {
	c := chunker.New()

	texts := []string{
		"The quick brown fox. Jumps over a lazy dog.",
		"one. two. three. four",
		"a..b.c...",
		"no delimiter",
	}

	for _, text := range texts {
		spans := c.Split(text)
		require.NotEmpty(t, spans)

		assert.Equal(t, 0, spans[0].Offset)
		for i := 1; i < len(spans); i++ {
			assert.Equal(t, spans[i-1].Offset+len(spans[i-1].Text)+1, spans[i].Offset,
				"offset of span %d in %q", i, text)
		}
		for _, span := range spans {
			assert.Equal(t, span.Text, text[span.Offset:span.Offset+len(span.Text)],
				"span text must match the original at its offset")
		}
	}
}

func TestChunker_RoundTrip(t *testing.T) {
	c := chunker.New()

	// Join is the exact inverse of Split for any text that does not end
	// with the delimiter; the store keeps the original text to cover the
	// rest.
	texts := []string{
		"",
		"one. two. three",
		"a..b",
		"no delimiter at all",
	}
	for _, text := range texts {
		assert.Equal(t, text, c.Join(c.Split(text)), "round trip of %q", text)
	}

	withTrailing := "ends with a delimiter."
	assert.Equal(t, strings.TrimSuffix(withTrailing, "."), c.Join(c.Split(withTrailing)))
}

func TestChunker_CustomDelimiter(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{Delimiter: "\n"})

	spans := c.Split("first line\nsecond line\n")
	require.Len(t, spans, 2)
	assert.Equal(t, "first line", spans[0].Text)
	assert.Equal(t, "second line", spans[1].Text)
	assert.Equal(t, 11, spans[1].Offset)
}
