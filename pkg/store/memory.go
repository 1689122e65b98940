package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xhad/mercury/internal/models"
)

type docKey struct {
	sampleID int64
	role     models.Role
}

// Memory is the embedded chunk store: plain maps behind one RWMutex,
// brute-force cosine distance over the candidate set. Ingestion is a rare
// bulk operation and query load is human-interactive, so a single lock is
// enough.
type Memory struct {
	mu          sync.RWMutex
	nextChunkID int64
	maxSampleID int64
	docs        map[docKey]string
	chunks      map[int64]models.Chunk
	byDoc       map[docKey][]int64
	vectors     map[int64][]float32
}

func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[docKey]string),
		chunks:  make(map[int64]models.Chunk),
		byDoc:   make(map[docKey][]int64),
		vectors: make(map[int64][]float32),
	}
}

func (m *Memory) PutDocument(_ context.Context, sampleID int64, role models.Role, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.putDocumentLocked(sampleID, role, text)
	return nil
}

func (m *Memory) putDocumentLocked(sampleID int64, role models.Role, text string) {
	m.docs[docKey{sampleID, role}] = text
	if sampleID > m.maxSampleID {
		m.maxSampleID = sampleID
	}
}

func (m *Memory) Document(_ context.Context, sampleID int64, role models.Role) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	text, ok := m.docs[docKey{sampleID, role}]
	if !ok {
		return "", fmt.Errorf("sample %d role %s: %w", sampleID, role, models.ErrEmptyCorpus)
	}
	return text, nil
}

func (m *Memory) PutChunk(_ context.Context, sampleID int64, role models.Role, seq, offset int, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.putChunkLocked(sampleID, role, seq, offset, text), nil
}

func (m *Memory) putChunkLocked(sampleID int64, role models.Role, seq, offset int, text string) int64 {
	m.nextChunkID++
	id := m.nextChunkID

	m.chunks[id] = models.Chunk{
		ID:       id,
		SampleID: sampleID,
		Role:     role,
		Seq:      seq,
		Offset:   offset,
		Text:     text,
	}
	key := docKey{sampleID, role}
	m.byDoc[key] = append(m.byDoc[key], id)
	if sampleID > m.maxSampleID {
		m.maxSampleID = sampleID
	}
	return id
}

func (m *Memory) PutVector(_ context.Context, chunkID int64, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.chunks[chunkID]; !ok {
		return fmt.Errorf("chunk %d: %w", chunkID, models.ErrUnknownChunk)
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	m.vectors[chunkID] = stored
	return nil
}

func (m *Memory) Store(_ context.Context, docs []models.EmbeddedDocument) (int, error) {
	for _, doc := range docs {
		if len(doc.Spans) != len(doc.Vectors) {
			return 0, fmt.Errorf("sample %d role %s: %d spans but %d vectors",
				doc.SampleID, doc.Role, len(doc.Spans), len(doc.Vectors))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, doc := range docs {
		m.putDocumentLocked(doc.SampleID, doc.Role, doc.Text)
		for i, span := range doc.Spans {
			id := m.putChunkLocked(doc.SampleID, doc.Role, i, span.Offset, span.Text)
			vec := make([]float32, len(doc.Vectors[i]))
			copy(vec, doc.Vectors[i])
			m.vectors[id] = vec
			count++
		}
	}
	return count, nil
}

func (m *Memory) ChunksFor(_ context.Context, sampleID int64, role models.Role) ([]models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byDoc[docKey{sampleID, role}]
	chunks := make([]models.Chunk, 0, len(ids))
	for _, id := range ids {
		chunks = append(chunks, m.chunks[id])
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Seq < chunks[j].Seq
	})
	return chunks, nil
}

func (m *Memory) Nearest(_ context.Context, vec []float32, candidates []int64, k int) ([]models.Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	neighbors := make([]models.Neighbor, 0, len(candidates))
	for _, id := range candidates {
		stored, ok := m.vectors[id]
		if !ok {
			continue
		}
		neighbors = append(neighbors, models.Neighbor{
			ChunkID:  id,
			Distance: cosineDistance(vec, stored),
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].ChunkID < neighbors[j].ChunkID
	})

	if k > 0 && k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func (m *Memory) MaxSampleID(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxSampleID, nil
}

// Reset drops all documents, chunks and vectors. Chunk ids keep counting
// from where they were, so re-ingested chunks never reuse an old id.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs = make(map[docKey]string)
	m.chunks = make(map[int64]models.Chunk)
	m.byDoc = make(map[docKey][]int64)
	m.vectors = make(map[int64][]float32)
	m.maxSampleID = 0
	return nil
}

func (m *Memory) Close() {}

// cosineDistance is 1 - cosine similarity, in [0, 2]. Mismatched or zero
// vectors land at the far end of the range rather than erroring.
func cosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 2
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 2
	}

	sim := dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
	return 1 - sim
}
