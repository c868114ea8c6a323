package rag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tmc/langchaingo/textsplitter"

	"casestudy/internal/domain"
	"casestudy/internal/infra/cohere"
	"casestudy/internal/infra/logging"
	"casestudy/internal/infra/postgres"
)

// embedBatch stays under the embed API's per-request text limit.
const embedBatch = 96

// IngestReport counts what one Ingest call stored.
type IngestReport struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

// Ingest replaces the stored chunks of every given .txt, .md or .pdf file.
// It stops at the first failing file; earlier files stay ingested.
func (s *Service) Ingest(ctx context.Context, paths ...string) (IngestReport, error) {
	var rep IngestReport
	for _, path := range paths {
		n, err := s.ingestFile(ctx, path)
		if err != nil {
			return rep, err
		}
		rep.Files++
		rep.Chunks += n
	}
	return rep, nil
}

func (s *Service) ingestFile(ctx context.Context, path string) (int, error) {
	text, err := ReadText(path)
	if err != nil {
		return 0, err
	}
	source := filepath.Base(path)
	pieces, err := s.Split(text)
	if err != nil {
		return 0, fmt.Errorf("split %s: %w", source, err)
	}
	if len(pieces) == 0 {
		logging.Warn("Skipping empty document", "source", source)
		return 0, nil
	}

	chunks := make([]postgres.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = postgres.Chunk{
			ID:       fmt.Sprintf("%s#%d", source, i),
			Source:   source,
			Text:     p,
			Metadata: map[string]any{"source": source, "chunk_index": i},
		}
	}
	for start := 0; start < len(chunks); start += embedBatch {
		end := min(start+embedBatch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		vecs, err := s.embedder.Embed(ctx, texts, cohere.InputSearchDocument)
		if err != nil {
			return 0, fmt.Errorf("%w: embed %s: %w", domain.ErrUpstream, source, err)
		}
		if len(vecs) != len(texts) {
			return 0, fmt.Errorf("%w: embed %s: got %d vectors for %d chunks", domain.ErrUpstream, source, len(vecs), len(texts))
		}
		for i := range vecs {
			chunks[start+i].Embedding = vecs[i]
		}
	}

	if err := s.store.DeleteSource(ctx, source); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	if err := s.store.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	logging.Info("Document ingested", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}

// Split cuts text into overlapping chunks, preferring paragraph and line
// boundaries.
func (s *Service) Split(text string) ([]string, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.opts.ChunkSize),
		textsplitter.WithChunkOverlap(s.opts.ChunkOverlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// ReadText loads a source document as plain text by file extension.
func ReadText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(b), nil
	case ".pdf":
		return readPDF(path)
	default:
		return "", fmt.Errorf("%w: unsupported document type %q", domain.ErrInvalidInput, filepath.Ext(path))
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rd); err != nil {
		return "", fmt.Errorf("extract pdf %s: %w", path, err)
	}
	return buf.String(), nil
}
