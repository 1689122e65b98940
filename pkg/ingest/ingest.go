package ingest

import (
	"context"
	"fmt"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/internal/types"
	"github.com/xhad/mercury/pkg/chunker"
)

type PipelineConfig struct {
	// OnProgress, when set, is called after each stored pair with the
	// assigned sample id.
	OnProgress func(sampleID int64)
}

// Pipeline drives chunker, embedder and store over a batch of
// (source, summary) pairs. Each pair is persisted atomically: all embedding
// for the pair happens before any write, and the write itself goes through
// the store's batch path, so a failed pair leaves nothing behind.
type Pipeline struct {
	config   PipelineConfig
	chunker  chunker.Chunker
	embedder types.Embedder
	store    types.ChunkStore
}

func NewWithConfig(config PipelineConfig, c chunker.Chunker, embedder types.Embedder, store types.ChunkStore) Pipeline {
	return Pipeline{
		config:   config,
		chunker:  c,
		embedder: embedder,
		store:    store,
	}
}

// Ingest writes every pair to the store and returns the number of chunks
// written. With overwrite the store is reset first (chunk ids still advance,
// never reused); otherwise sample numbering continues from the store's
// current maximum. An embedding failure rejects the whole failing pair and
// aborts the run, returning the count written for the preceding pairs along
// with the error.
func (p *Pipeline) Ingest(ctx context.Context, pairs []models.DocumentPair, overwrite bool) (int, error) {
	if overwrite {
		if err := p.store.Reset(ctx); err != nil {
			return 0, err
		}
	}

	base, err := p.store.MaxSampleID(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for i, pair := range pairs {
		sampleID := base + int64(i) + 1

		docs := make([]models.EmbeddedDocument, 0, 2)
		for _, half := range []struct {
			role models.Role
			text string
		}{
			{models.RoleSource, pair.Source},
			{models.RoleSummary, pair.Summary},
		} {
			doc, err := p.embedDocument(ctx, sampleID, half.role, half.text)
			if err != nil {
				return total, err
			}
			docs = append(docs, doc)
		}

		n, err := p.store.Store(ctx, docs)
		if err != nil {
			return total, fmt.Errorf("failed to store sample %d: %w", sampleID, err)
		}
		total += n

		if p.config.OnProgress != nil {
			p.config.OnProgress(sampleID)
		}
	}
	return total, nil
}

func (p *Pipeline) embedDocument(ctx context.Context, sampleID int64, role models.Role, text string) (models.EmbeddedDocument, error) {
	spans := p.chunker.Split(text)

	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}

	// One batch call per document; the provider contract makes batch size
	// unobservable in the output.
	vecs, err := p.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return models.EmbeddedDocument{}, fmt.Errorf("sample %d role %s rejected: %w", sampleID, role, err)
	}
	if len(vecs) != len(spans) {
		return models.EmbeddedDocument{}, &models.EmbeddingError{
			Backend: p.embedder.ModelInfo(),
			Err:     fmt.Errorf("got %d vectors for %d chunks", len(vecs), len(spans)),
		}
	}

	return models.EmbeddedDocument{
		SampleID: sampleID,
		Role:     role,
		Text:     text,
		Spans:    spans,
		Vectors:  vecs,
	}, nil
}
