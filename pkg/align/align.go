package align

import (
	"context"
	"fmt"
	"time"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/internal/types"
)

type EngineConfig struct {
	// TopK bounds the number of ranked matches returned.
	TopK int
	// EmbedTimeout bounds the embedding backend call so an interactive
	// selection never blocks indefinitely.
	EmbedTimeout time.Duration
}

// Engine maps a selected character span in one role to ranked corresponding
// spans in the opposite role of the same sample. It only reads from the
// store; the embedding call runs outside any store lock.
type Engine struct {
	config   EngineConfig
	store    types.ChunkStore
	embedder types.Embedder
}

func NewWithConfig(config EngineConfig, store types.ChunkStore, embedder types.Embedder) *Engine {
	if config.TopK == 0 {
		config.TopK = 5
	}
	if config.EmbedTimeout == 0 {
		config.EmbedTimeout = 10 * time.Second
	}

	return &Engine{
		config:   config,
		store:    store,
		embedder: embedder,
	}
}

// Align resolves [start, end) in the (sampleID, role) document, embeds the
// selected text, and ranks the opposite document's chunks by similarity.
// Scores map cosine distance d in [0,2] to 1-d/2 in [0,1], 1.0 maximal.
//
// Failure modes: models.ErrInvalidRange for a bad span, models.ErrEmptyCorpus
// when the sample or its opposite document was never ingested, and
// *models.EmbeddingError passed through from the backend. Nothing is retried
// here; the web layer decides how each surfaces to the annotator.
func (e *Engine) Align(ctx context.Context, sampleID int64, role models.Role, start, end int) ([]models.Match, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role: %q", role)
	}

	text, err := e.store.Document(ctx, sampleID, role)
	if err != nil {
		return nil, err
	}
	if start < 0 || end > len(text) || start > end {
		return nil, fmt.Errorf("[%d, %d) outside document of length %d: %w",
			start, end, len(text), models.ErrInvalidRange)
	}
	query := text[start:end]

	// to_doc tells the UI which pane the matches belong to: a summary
	// selection aligns into the source document.
	toDoc := role == models.RoleSummary

	opposite := role.Opposite()
	chunks, err := e.store.ChunksFor(ctx, sampleID, opposite)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("sample %d role %s has no chunks: %w",
			sampleID, opposite, models.ErrEmptyCorpus)
	}

	// A one-chunk document makes a ranked search meaningless: the whole
	// document is the answer, with maximal score. This also skips the
	// embedding call entirely.
	if len(chunks) == 1 {
		return []models.Match{{
			Score:  1.0,
			Offset: 0,
			Length: len(chunks[0].Text),
			ToDoc:  toDoc,
		}}, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, e.config.EmbedTimeout)
	defer cancel()
	vecs, err := e.embedder.CreateEmbedding(embedCtx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, &models.EmbeddingError{
			Backend: e.embedder.ModelInfo(),
			Err:     fmt.Errorf("got %d vectors for a single query", len(vecs)),
		}
	}

	byID := make(map[int64]models.Chunk, len(chunks))
	candidates := make([]int64, len(chunks))
	for i, chunk := range chunks {
		byID[chunk.ID] = chunk
		candidates[i] = chunk.ID
	}

	neighbors, err := e.store.Nearest(ctx, vecs[0], candidates, e.config.TopK)
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(neighbors))
	for _, n := range neighbors {
		chunk, ok := byID[n.ChunkID]
		if !ok {
			return nil, fmt.Errorf("neighbor %d outside candidate set: %w",
				n.ChunkID, models.ErrUnknownChunk)
		}
		matches = append(matches, models.Match{
			Score:  1 - n.Distance/2,
			Offset: chunk.Offset,
			Length: len(chunk.Text),
			ToDoc:  toDoc,
		})
	}
	return matches, nil
}
