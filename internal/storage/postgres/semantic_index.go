// Package postgres implements the optional semantic index on PostgreSQL
// with the pgvector extension. The index is a best-effort capability behind
// the retrieval interface: when it is absent or erroring, retrieval ranks
// on lexical relevance alone.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/storage"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS memory_embeddings (
	memory_id  TEXT PRIMARY KEY,
	embedding  vector(%d) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Embedder turns text into a vector. The summarizer providers implement it;
// the index does not care which model produced the vectors as long as the
// dimension is stable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SemanticIndex implements storage.SemanticIndex on pgvector using cosine
// distance.
type SemanticIndex struct {
	db       *sql.DB
	embedder Embedder
	logger   *zap.Logger
}

// NewSemanticIndex connects to dsn, ensures the pgvector schema exists at
// the given embedding dimension, and returns the index.
func NewSemanticIndex(dsn string, dimension int, embedder Embedder, logger *zap.Logger) (*SemanticIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", storage.ErrInvalidInput)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive", storage.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf(schema, dimension)); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: apply pgvector schema: %w", err)
	}

	logger.Info("semantic index ready", zap.Int("dimension", dimension))
	return &SemanticIndex{db: db, embedder: embedder, logger: logger}, nil
}

// Index embeds content and upserts it under the memory id.
func (s *SemanticIndex) Index(ctx context.Context, id, content string) error {
	if id == "" || content == "" {
		return fmt.Errorf("%w: id and content are required", storage.ErrInvalidInput)
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed memory %s: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_embeddings (memory_id, embedding, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (memory_id) DO UPDATE SET
			embedding = excluded.embedding,
			updated_at = now()`,
		id, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("store embedding for %s: %w", id, err)
	}
	return nil
}

// Search embeds the query and returns the k nearest memories by cosine
// distance. Scores are mapped to similarity in [0,1].
func (s *SemanticIndex) Search(ctx context.Context, query string, k int) ([]storage.SemanticMatch, error) {
	if k <= 0 {
		k = 10
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_id, 1 - (embedding <=> $1) AS similarity
		FROM memory_embeddings
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	var matches []storage.SemanticMatch
	for rows.Next() {
		var m storage.SemanticMatch
		if err := rows.Scan(&m.ID, &m.Score); err != nil {
			return nil, err
		}
		// Cosine similarity of arbitrary vectors lands in [-1,1]; clamp so
		// retrieval can treat the score as a [0,1] relevance component.
		if m.Score < 0 {
			m.Score = 0
		}
		if m.Score > 1 {
			m.Score = 1
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Close releases the database connection.
func (s *SemanticIndex) Close() error {
	return s.db.Close()
}

var _ storage.SemanticIndex = (*SemanticIndex)(nil)
