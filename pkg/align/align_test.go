package align_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/pkg/align"
	"github.com/xhad/mercury/pkg/chunker"
	"github.com/xhad/mercury/pkg/embed"
	"github.com/xhad/mercury/pkg/ingest"
	"github.com/xhad/mercury/pkg/store"
)

// fixedEmbedder returns hand-picked vectors per exact text, falling back to
// a constant vector, so distance ordering in tests is fully controlled.
type fixedEmbedder struct {
	dim  int
	vecs map[string][]float32
}

func (f *fixedEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := f.vecs[text]; ok {
			out[i] = vec
			continue
		}
		vec := make([]float32, f.dim)
		vec[f.dim-1] = 1
		out[i] = vec
	}
	return out, nil
}

func (f *fixedEmbedder) Dimension() int    { return f.dim }
func (f *fixedEmbedder) ModelInfo() string { return "fixed" }

type failingEmbedder struct{}

func (failingEmbedder) CreateEmbedding(context.Context, []string) ([][]float32, error) {
	return nil, &models.EmbeddingError{Backend: "failing", Err: errors.New("backend unreachable")}
}

func (failingEmbedder) Dimension() int    { return 3 }
func (failingEmbedder) ModelInfo() string { return "failing" }

func seedSample(t *testing.T, s *store.Memory) {
	t.Helper()

	// Source has three chunks with orthogonal vectors; summary has two.
	count, err := s.Store(context.Background(), []models.EmbeddedDocument{
		{
			SampleID: 1,
			Role:     models.RoleSource,
			Text:     "aaa. bbb. ccc",
			Spans: []models.Span{
				{Text: "aaa", Offset: 0},
				{Text: " bbb", Offset: 4},
				{Text: " ccc", Offset: 9},
			},
			Vectors: [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		},
		{
			SampleID: 1,
			Role:     models.RoleSummary,
			Text:     "xxx. yyy",
			Spans: []models.Span{
				{Text: "xxx", Offset: 0},
				{Text: " yyy", Offset: 4},
			},
			Vectors: [][]float32{{1, 0, 0}, {0, 1, 0}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 5, count)
}

func TestEngine_RankedMatches(t *testing.T) {
	s := store.NewMemory()
	seedSample(t, s)

	embedder := &fixedEmbedder{dim: 3, vecs: map[string][]float32{
		"xxx": {0, 1, 0}, // closest to source chunk " bbb"
	}}
	engine := align.NewWithConfig(align.EngineConfig{}, s, embedder)

	matches, err := engine.Align(context.Background(), 1, models.RoleSummary, 0, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Best match is the " bbb" chunk at offset 4; scores are
	// non-increasing after it.
	assert.Equal(t, 4, matches[0].Offset)
	assert.Equal(t, 4, matches[0].Length)
	assert.True(t, matches[0].ToDoc, "summary selection aligns into the source")
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, float32(0))
		assert.LessOrEqual(t, m.Score, float32(1))
	}
}

func TestEngine_TieBreakByChunkID(t *testing.T) {
	s := store.NewMemory()

	// Two source chunks with identical vectors: equal distance, so the
	// lower chunk id (earlier sentence) must come first.
	_, err := s.Store(context.Background(), []models.EmbeddedDocument{
		{
			SampleID: 1,
			Role:     models.RoleSource,
			Text:     "aaa. bbb",
			Spans:    []models.Span{{Text: "aaa", Offset: 0}, {Text: " bbb", Offset: 4}},
			Vectors:  [][]float32{{1, 0, 0}, {1, 0, 0}},
		},
		{
			SampleID: 1,
			Role:     models.RoleSummary,
			Text:     "s1. s2",
			Spans:    []models.Span{{Text: "s1", Offset: 0}, {Text: " s2", Offset: 3}},
			Vectors:  [][]float32{{1, 0, 0}, {0, 1, 0}},
		},
	})
	require.NoError(t, err)

	embedder := &fixedEmbedder{dim: 3, vecs: map[string][]float32{"s1": {1, 0, 0}}}
	engine := align.NewWithConfig(align.EngineConfig{}, s, embedder)

	matches, err := engine.Align(context.Background(), 1, models.RoleSummary, 0, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, 0, matches[0].Offset)
	assert.Equal(t, 4, matches[1].Offset)
}

func TestEngine_SingleChunkShortcut(t *testing.T) {
	s := store.NewMemory()
	c := chunker.New()
	pipeline := ingest.NewWithConfig(ingest.PipelineConfig{}, c, embed.NewStub(16), s)

	_, err := pipeline.Ingest(context.Background(), []models.DocumentPair{
		{
			Source:  "The quick brown fox. Jumps over a lazy dog.",
			Summary: "26 letters.",
		},
	}, false)
	require.NoError(t, err)

	// The failing embedder proves the shortcut never touches the backend:
	// the opposite document has one chunk, so the whole chunk is the
	// answer regardless of query content.
	engine := align.NewWithConfig(align.EngineConfig{}, s, failingEmbedder{})

	matches, err := engine.Align(context.Background(), 1, models.RoleSource, 0, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, float32(1.0), matches[0].Score)
	assert.Equal(t, 0, matches[0].Offset)
	assert.Equal(t, len("26 letters"), matches[0].Length)
	assert.False(t, matches[0].ToDoc)
}

func TestEngine_EndToEnd(t *testing.T) {
	s := store.NewMemory()
	c := chunker.New()
	stub := embed.NewStub(16)
	pipeline := ingest.NewWithConfig(ingest.PipelineConfig{}, c, stub, s)

	count, err := pipeline.Ingest(context.Background(), []models.DocumentPair{
		{
			Source:  "The quick brown fox. Jumps over a lazy dog.",
			Summary: "26 letters.",
		},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	sourceChunks, err := s.ChunksFor(context.Background(), 1, models.RoleSource)
	require.NoError(t, err)
	require.Len(t, sourceChunks, 2)
	assert.Equal(t, "The quick brown fox", sourceChunks[0].Text)
	assert.Equal(t, 0, sourceChunks[0].Offset)
	assert.Equal(t, " Jumps over a lazy dog", sourceChunks[1].Text)
	assert.Equal(t, 20, sourceChunks[1].Offset)

	engine := align.NewWithConfig(align.EngineConfig{}, s, stub)

	// Selecting in the summary ranks the two source chunks.
	matches, err := engine.Align(context.Background(), 1, models.RoleSummary, 0, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}
	offsets := []int{matches[0].Offset, matches[1].Offset}
	assert.ElementsMatch(t, []int{0, 20}, offsets)
}

func TestEngine_InvalidRange(t *testing.T) {
	s := store.NewMemory()
	seedSample(t, s)
	engine := align.NewWithConfig(align.EngineConfig{}, s, embed.NewStub(3))
	ctx := context.Background()

	_, err := engine.Align(ctx, 1, models.RoleSource, 100, 200)
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	_, err = engine.Align(ctx, 1, models.RoleSource, 5, 2)
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	_, err = engine.Align(ctx, 1, models.RoleSource, -1, 2)
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestEngine_EmptyCorpus(t *testing.T) {
	s := store.NewMemory()
	engine := align.NewWithConfig(align.EngineConfig{}, s, embed.NewStub(3))

	_, err := engine.Align(context.Background(), 7, models.RoleSource, 0, 1)
	assert.ErrorIs(t, err, models.ErrEmptyCorpus)
}

func TestEngine_EmbeddingErrorPropagates(t *testing.T) {
	s := store.NewMemory()
	seedSample(t, s)
	engine := align.NewWithConfig(align.EngineConfig{}, s, failingEmbedder{})

	_, err := engine.Align(context.Background(), 1, models.RoleSummary, 0, 3)
	require.Error(t, err)
	assert.True(t, models.IsEmbeddingError(err))
}
