package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/internal/types"
)

// Pgvector is the Postgres-backed chunk store. Batch writes run in one
// transaction so readers never observe a chunk without its vector; chunk ids
// come from a sequence that is not restarted on Reset.
type Pgvector struct {
	config types.StoreConfig
	pool   *pgxpool.Pool

	// mu serializes Reset against the batch write path; row-level work is
	// already isolated by transactions.
	mu sync.Mutex
}

func NewPgvector(config types.StoreConfig) (*Pgvector, error) {
	if config.TablePrefix == "" {
		config.TablePrefix = "mercury_"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &Pgvector{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Pgvector) documentsTable() string {
	return s.config.TablePrefix + "documents"
}

func (s *Pgvector) chunksTable() string {
	return s.config.TablePrefix + "chunks"
}

func (s *Pgvector) initialize() error {
	ctx := context.Background()

	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createDocuments := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			sample_id BIGINT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (sample_id, role)
		)`, s.documentsTable())

	_, err = s.pool.Exec(ctx, createDocuments)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %v", err)
	}

	createChunks := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			sample_id BIGINT NOT NULL,
			role TEXT NOT NULL,
			seq INTEGER NOT NULL,
			char_offset INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, s.chunksTable(), s.config.VectorDim)

	_, err = s.pool.Exec(ctx, createChunks)
	if err != nil {
		return fmt.Errorf("failed to create chunks table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		s.chunksTable(), s.chunksTable())

	_, err = s.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	createLookup := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_doc_idx
		ON %s (sample_id, role, seq)`,
		s.chunksTable(), s.chunksTable())

	_, err = s.pool.Exec(ctx, createLookup)
	if err != nil {
		return fmt.Errorf("failed to create lookup index: %v", err)
	}

	return nil
}

func (s *Pgvector) PutDocument(ctx context.Context, sampleID int64, role models.Role, text string) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (sample_id, role, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (sample_id, role) DO UPDATE SET content = EXCLUDED.content`,
		s.documentsTable())

	_, err := s.pool.Exec(ctx, stmt, sampleID, string(role), text)
	if err != nil {
		return fmt.Errorf("failed to insert document: %v", err)
	}
	return nil
}

func (s *Pgvector) Document(ctx context.Context, sampleID int64, role models.Role) (string, error) {
	query := fmt.Sprintf(`SELECT content FROM %s WHERE sample_id = $1 AND role = $2`,
		s.documentsTable())

	var text string
	err := s.pool.QueryRow(ctx, query, sampleID, string(role)).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("sample %d role %s: %w", sampleID, role, models.ErrEmptyCorpus)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query document: %v", err)
	}
	return text, nil
}

func (s *Pgvector) PutChunk(ctx context.Context, sampleID int64, role models.Role, seq, offset int, text string) (int64, error) {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (sample_id, role, seq, char_offset, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, s.chunksTable())

	var id int64
	err := s.pool.QueryRow(ctx, stmt, sampleID, string(role), seq, offset, text).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chunk: %v", err)
	}
	return id, nil
}

func (s *Pgvector) PutVector(ctx context.Context, chunkID int64, vec []float32) error {
	stmt := fmt.Sprintf(`UPDATE %s SET embedding = $1 WHERE id = $2`, s.chunksTable())

	tag, err := s.pool.Exec(ctx, stmt, pgvector.NewVector(vec), chunkID)
	if err != nil {
		return fmt.Errorf("failed to update vector: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chunk %d: %w", chunkID, models.ErrUnknownChunk)
	}
	return nil
}

func (s *Pgvector) Store(ctx context.Context, docs []models.EmbeddedDocument) (int, error) {
	for _, doc := range docs {
		if len(doc.Spans) != len(doc.Vectors) {
			return 0, fmt.Errorf("sample %d role %s: %d spans but %d vectors",
				doc.SampleID, doc.Role, len(doc.Spans), len(doc.Vectors))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	docStmt := fmt.Sprintf(`
		INSERT INTO %s (sample_id, role, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (sample_id, role) DO UPDATE SET content = EXCLUDED.content`,
		s.documentsTable())

	chunkStmt := fmt.Sprintf(`
		INSERT INTO %s (sample_id, role, seq, char_offset, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`, s.chunksTable())

	count := 0
	for _, doc := range docs {
		if _, err := tx.Exec(ctx, docStmt, doc.SampleID, string(doc.Role), doc.Text); err != nil {
			return 0, fmt.Errorf("failed to insert document: %v", err)
		}
		for i, span := range doc.Spans {
			_, err := tx.Exec(ctx, chunkStmt,
				doc.SampleID,
				string(doc.Role),
				i,
				span.Offset,
				span.Text,
				pgvector.NewVector(doc.Vectors[i]),
			)
			if err != nil {
				return 0, fmt.Errorf("failed to insert chunk: %v", err)
			}
			count++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %v", err)
	}
	return count, nil
}

func (s *Pgvector) ChunksFor(ctx context.Context, sampleID int64, role models.Role) ([]models.Chunk, error) {
	query := fmt.Sprintf(`
		SELECT id, seq, char_offset, content
		FROM %s
		WHERE sample_id = $1 AND role = $2
		ORDER BY seq`, s.chunksTable())

	rows, err := s.pool.Query(ctx, query, sampleID, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		chunk := models.Chunk{SampleID: sampleID, Role: role}
		if err := rows.Scan(&chunk.ID, &chunk.Seq, &chunk.Offset, &chunk.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *Pgvector) Nearest(ctx context.Context, vec []float32, candidates []int64, k int) ([]models.Neighbor, error) {
	query := fmt.Sprintf(`
		SELECT id, embedding <=> $1 AS distance
		FROM %s
		WHERE id = ANY($2) AND embedding IS NOT NULL
		ORDER BY distance, id
		LIMIT $3`, s.chunksTable())

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vec), candidates, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %v", err)
	}
	defer rows.Close()

	var neighbors []models.Neighbor
	for rows.Next() {
		var n models.Neighbor
		var distance float64
		if err := rows.Scan(&n.ChunkID, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %v", err)
		}
		n.Distance = float32(distance)
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

func (s *Pgvector) MaxSampleID(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(sample_id), 0) FROM %s`, s.documentsTable())

	var max int64
	if err := s.pool.QueryRow(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to query max sample id: %v", err)
	}
	return max, nil
}

// Reset truncates both tables. The chunk id sequence is left alone so ids
// are never reused across re-ingestion.
func (s *Pgvector) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := fmt.Sprintf(`TRUNCATE %s, %s`, s.chunksTable(), s.documentsTable())
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to reset store: %v", err)
	}
	return nil
}

func (s *Pgvector) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
