package types

import (
	"context"

	"github.com/xhad/mercury/internal/models"
)

// Core interfaces

// Embedder maps a batch of texts to fixed-dimension vectors. A given
// backend+model must be deterministic for identical input; batching is a
// performance concern only and must not change the output.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// ChunkStore owns chunk and vector lifetime. Implementations serialize
// mutations against concurrent readers; chunk ids are assigned monotonically
// and never reused, including across Reset.
type ChunkStore interface {
	// PutDocument records the full original text of one (sample, role)
	// document. The stored text is authoritative for range validation and
	// reconstruction.
	PutDocument(ctx context.Context, sampleID int64, role models.Role, text string) error

	// Document returns the original text, or models.ErrEmptyCorpus.
	Document(ctx context.Context, sampleID int64, role models.Role) (string, error)

	// PutChunk persists chunk metadata and returns the assigned id.
	PutChunk(ctx context.Context, sampleID int64, role models.Role, seq, offset int, text string) (int64, error)

	// PutVector persists the embedding for an existing chunk, or fails with
	// models.ErrUnknownChunk.
	PutVector(ctx context.Context, chunkID int64, vec []float32) error

	// Store writes a batch of embedded documents atomically: document texts,
	// chunks and vectors become visible together or not at all. Returns the
	// number of chunks written.
	Store(ctx context.Context, docs []models.EmbeddedDocument) (int, error)

	// ChunksFor returns the chunks of one (sample, role) document ordered by
	// sequence index. An unknown sample or role yields an empty slice.
	ChunksFor(ctx context.Context, sampleID int64, role models.Role) ([]models.Chunk, error)

	// Nearest ranks the given candidate chunk ids by ascending cosine
	// distance to vec and returns at most k of them, ties broken by ascending
	// chunk id. The search never leaves the candidate set; candidates without
	// a stored vector are ignored.
	Nearest(ctx context.Context, vec []float32, candidates []int64, k int) ([]models.Neighbor, error)

	// MaxSampleID returns the highest sample id in the store, 0 when empty.
	MaxSampleID(ctx context.Context) (int64, error)

	// Reset destroys all documents, chunks and vectors.
	Reset(ctx context.Context) error

	Close()
}

// Aligner maps a selected span in one role to ranked corresponding spans in
// the opposite role of the same sample.
type Aligner interface {
	Align(ctx context.Context, sampleID int64, role models.Role, start, end int) ([]models.Match, error)
}

type EmbedderConfig struct {
	Backend   string
	Model     string
	BaseURL   string
	Dimension int
	RateLimit float64
}

type StoreConfig struct {
	Backend     string
	URL         string
	TablePrefix string
	VectorDim   int
}
