// Package rag answers questions from the embedded case-study guide: embed the
// query, pull the nearest chunks from pgvector and rerank them.
package rag

import (
	"context"
	"fmt"
	"strings"

	"casestudy/internal/domain"
	"casestudy/internal/infra/cohere"
	"casestudy/internal/infra/logging"
	"casestudy/internal/infra/postgres"
)

const (
	DefaultLimit      = 5
	DefaultRerankTopK = 3
	NoResultsMessage  = "No relevant documents found for the query."
)

type Embedder interface {
	Embed(ctx context.Context, texts []string, inputType string) ([][]float32, error)
}

type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]cohere.Ranked, error)
}

// Store is the vector table the service reads from and ingest writes to.
type Store interface {
	Search(ctx context.Context, query []float32, topK int) ([]postgres.Match, error)
	Upsert(ctx context.Context, chunks []postgres.Chunk) error
	DeleteSource(ctx context.Context, source string) error
}

// Hit is a reranked chunk. Score is the vector similarity and RelevanceScore
// the reranker's.
type Hit struct {
	postgres.Match
	RelevanceScore float64 `json:"relevanceScore"`
}

// Result is empty with Message set when nothing matched.
type Result struct {
	Results    []Hit  `json:"results"`
	TotalFound int    `json:"totalFound,omitempty"`
	Query      string `json:"query,omitempty"`
	Message    string `json:"message,omitempty"`
}

type Options struct {
	DefaultLimit int
	RerankTopK   int
	ChunkSize    int
	ChunkOverlap int
}

type Service struct {
	embedder Embedder
	reranker Reranker
	store    Store
	opts     Options
}

func NewService(embedder Embedder, reranker Reranker, store Store, opts Options) *Service {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.RerankTopK <= 0 {
		opts.RerankTopK = DefaultRerankTopK
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1200
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = opts.ChunkSize / 8
	}
	return &Service{embedder: embedder, reranker: reranker, store: store, opts: opts}
}

// Query returns at most min(RerankTopK, found) hits out of limit candidates.
// Collaborator failures wrap domain.ErrUpstream.
func (s *Service) Query(ctx context.Context, query string, limit int) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Results: []Hit{}}, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}

	vecs, err := s.embedder.Embed(ctx, []string{query}, cohere.InputSearchQuery)
	if err != nil {
		return Result{}, fmt.Errorf("%w: embed query: %w", domain.ErrUpstream, err)
	}
	if len(vecs) != 1 {
		return Result{}, fmt.Errorf("%w: embed query: got %d vectors", domain.ErrUpstream, len(vecs))
	}

	matches, err := s.store.Search(ctx, vecs[0], limit)
	if err != nil {
		return Result{}, fmt.Errorf("%w: vector search: %w", domain.ErrUpstream, err)
	}
	if len(matches) == 0 {
		logging.Info("Case study search found nothing", "query", query)
		return Result{Results: []Hit{}, Message: NoResultsMessage}, nil
	}

	docs := make([]string, len(matches))
	for i := range matches {
		docs[i] = matches[i].Text
	}
	ranked, err := s.reranker.Rerank(ctx, query, docs, min(s.opts.RerankTopK, len(matches)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: rerank: %w", domain.ErrUpstream, err)
	}

	hits := make([]Hit, 0, len(ranked))
	for _, r := range ranked {
		hits = append(hits, Hit{Match: matches[r.Index], RelevanceScore: r.RelevanceScore})
	}
	logging.Info("Case study search", "query", query, "found", len(matches), "returned", len(hits))
	return Result{Results: hits, TotalFound: len(matches), Query: query}, nil
}
