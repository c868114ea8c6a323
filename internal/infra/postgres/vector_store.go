package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Chunk is one embedded passage of a case-study source document.
type Chunk struct {
	ID        string
	Source    string
	Text      string
	Metadata  map[string]any
	Embedding []float32
}

// Match is a chunk returned by a similarity search. Score is cosine
// similarity in [-1, 1].
type Match struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// VectorStore keeps case-study chunks in a pgvector table.
type VectorStore struct {
	pool       *pgxpool.Pool
	table      string
	tableIdent string
	dimension  int
}

// NewVectorStore connects and creates the extension, table and index when
// missing.
func NewVectorStore(ctx context.Context, dsn, table string, dimension int) (*VectorStore, error) {
	if dimension <= 0 {
		return nil, errors.New("pgvector: dimension must be > 0")
	}
	if table == "" {
		table = "case_study_guide"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	s := &VectorStore{
		pool:       pool,
		table:      table,
		tableIdent: pgx.Identifier{table}.Sanitize(),
		dimension:  dimension,
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *VectorStore) ensureSchema(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pgvector: acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		embedding vector(%d),
		document TEXT,
		metadata JSONB,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, s.tableIdent, s.dimension)
	if _, err := conn.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	index := pgx.Identifier{s.table + "_embedding_idx"}.Sanitize()
	createIndex := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)", index, s.tableIdent)
	if _, err := conn.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("pgvector: create index: %w", err)
	}
	return nil
}

// Upsert writes chunks in one transaction; any failure rolls back all of them.
func (s *VectorStore) Upsert(ctx context.Context, chunks []Chunk) (err error) {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if err := s.checkDimension(chunks[i].Embedding); err != nil {
			return fmt.Errorf("pgvector: chunk %q: %w", chunks[i].ID, err)
		}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("pgvector: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("pgvector: rollback failed: %w; original error: %v", rbErr, err)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("pgvector: commit: %w", commitErr)
		}
	}()

	stmt := fmt.Sprintf(`INSERT INTO %s (id, source, embedding, document, metadata, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    source = excluded.source,
    embedding = excluded.embedding,
    document = excluded.document,
    metadata = excluded.metadata,
    updated_at = excluded.updated_at`, s.tableIdent)
	now := time.Now().UTC()
	for i := range chunks {
		c := chunks[i]
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("pgvector: marshal metadata for %q: %w", c.ID, err)
		}
		if _, err := tx.Exec(ctx, stmt, c.ID, c.Source, pgvector.NewVector(c.Embedding), c.Text, meta, now); err != nil {
			return fmt.Errorf("pgvector: upsert %q: %w", c.ID, err)
		}
	}
	return nil
}

// Search returns up to topK chunks nearest to query by cosine distance.
func (s *VectorStore) Search(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if err := s.checkDimension(query); err != nil {
		return nil, fmt.Errorf("pgvector: query: %w", err)
	}
	if topK <= 0 {
		topK = 5
	}
	q := fmt.Sprintf(`SELECT id, source, document, metadata, 1 - (embedding <=> $1) AS score
FROM %s ORDER BY embedding <=> $1 ASC LIMIT $2`, s.tableIdent)
	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	out := make([]Match, 0, topK)
	for rows.Next() {
		var (
			m       Match
			doc     *string
			metaRaw []byte
		)
		if err := rows.Scan(&m.ID, &m.Source, &doc, &metaRaw, &m.Score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		if doc != nil {
			m.Text = *doc
		}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &m.Metadata); err != nil {
				return nil, fmt.Errorf("pgvector: decode metadata: %w", err)
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: search rows: %w", err)
	}
	return out, nil
}

// DeleteSource removes every chunk ingested from source.
func (s *VectorStore) DeleteSource(ctx context.Context, source string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE source = $1", s.tableIdent)
	if _, err := s.pool.Exec(ctx, q, source); err != nil {
		return fmt.Errorf("pgvector: delete %q: %w", source, err)
	}
	return nil
}

func (s *VectorStore) Dimension() int { return s.dimension }

func (s *VectorStore) checkDimension(v []float32) error {
	if len(v) != s.dimension {
		return fmt.Errorf("dimension mismatch (got %d want %d)", len(v), s.dimension)
	}
	return nil
}

func (s *VectorStore) Close() {
	s.pool.Close()
}
