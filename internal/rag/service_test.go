package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casestudy/internal/domain"
	"casestudy/internal/infra/cohere"
	"casestudy/internal/infra/postgres"
	"casestudy/internal/render"
)

type fakeEmbedder struct {
	err        error
	inputTypes []string
	batches    [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string, inputType string) ([][]float32, error) {
	f.inputTypes = append(f.inputTypes, inputType)
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

type fakeReranker struct {
	err  error
	topN int
	docs []string
}

// Rerank reverses the candidate order.
func (f *fakeReranker) Rerank(_ context.Context, _ string, docs []string, topN int) ([]cohere.Ranked, error) {
	f.topN = topN
	f.docs = docs
	if f.err != nil {
		return nil, f.err
	}
	out := make([]cohere.Ranked, 0, topN)
	for i := len(docs) - 1; i >= 0 && len(out) < topN; i-- {
		out = append(out, cohere.Ranked{Index: i, RelevanceScore: float64(i) / 10})
	}
	return out, nil
}

type fakeStore struct {
	matches  []postgres.Match
	err      error
	topK     int
	upserted []postgres.Chunk
	deleted  []string
}

func (f *fakeStore) Search(_ context.Context, _ []float32, topK int) ([]postgres.Match, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	if len(f.matches) > topK {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func (f *fakeStore) Upsert(_ context.Context, chunks []postgres.Chunk) error {
	f.upserted = append(f.upserted, chunks...)
	return f.err
}

func (f *fakeStore) DeleteSource(_ context.Context, source string) error {
	f.deleted = append(f.deleted, source)
	return nil
}

func matches(texts ...string) []postgres.Match {
	out := make([]postgres.Match, len(texts))
	for i, t := range texts {
		out[i] = postgres.Match{ID: t, Text: t, Score: 1 - float64(i)/10}
	}
	return out
}

func TestQuery_RerankedToThree(t *testing.T) {
	emb := &fakeEmbedder{}
	rr := &fakeReranker{}
	store := &fakeStore{matches: matches("a", "b", "c", "d", "e")}
	svc := NewService(emb, rr, store, Options{})

	res, err := svc.Query(context.Background(), "What is SWOT?", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{cohere.InputSearchQuery}, emb.inputTypes)
	assert.Equal(t, DefaultLimit, store.topK)
	assert.Equal(t, 3, rr.topN)
	assert.Equal(t, 5, res.TotalFound)
	assert.Equal(t, "What is SWOT?", res.Query)
	assert.Empty(t, res.Message)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "e", res.Results[0].Text)
	assert.Equal(t, 0.4, res.Results[0].RelevanceScore)
	assert.Equal(t, "c", res.Results[2].Text)
}

func TestQuery_FewerCandidatesThanTopK(t *testing.T) {
	rr := &fakeReranker{}
	svc := NewService(&fakeEmbedder{}, rr, &fakeStore{matches: matches("only", "two")}, Options{})

	res, err := svc.Query(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, rr.topN)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, 2, res.TotalFound)
}

func TestQuery_LimitIsTopK(t *testing.T) {
	store := &fakeStore{matches: matches("a", "b", "c", "d")}
	rr := &fakeReranker{}
	res, err := NewService(&fakeEmbedder{}, rr, store, Options{}).Query(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, store.topK)
	assert.Equal(t, []string{"a", "b"}, rr.docs)
	assert.Equal(t, 2, res.TotalFound)
}

func TestQuery_NoMatches(t *testing.T) {
	rr := &fakeReranker{}
	res, err := NewService(&fakeEmbedder{}, rr, &fakeStore{}, Options{}).Query(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, NoResultsMessage, res.Message)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
	assert.Nil(t, rr.docs, "reranker must not run without candidates")
}

func TestQuery_Failures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		svc  *Service
	}{
		{"embed", NewService(&fakeEmbedder{err: boom}, &fakeReranker{}, &fakeStore{}, Options{})},
		{"search", NewService(&fakeEmbedder{}, &fakeReranker{}, &fakeStore{err: boom}, Options{})},
		{"rerank", NewService(&fakeEmbedder{}, &fakeReranker{err: boom}, &fakeStore{matches: matches("a")}, Options{})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.svc.Query(context.Background(), "q", 5)
			require.ErrorIs(t, err, domain.ErrUpstream)
			assert.ErrorIs(t, err, boom)
		})
	}

	_, err := NewService(&fakeEmbedder{}, &fakeReranker{}, &fakeStore{}, Options{}).Query(context.Background(), " ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSplit_RespectsSizeAndOverlap(t *testing.T) {
	svc := NewService(nil, nil, nil, Options{ChunkSize: 40, ChunkOverlap: 10})
	text := strings.Repeat("Porter five forces shape strategy. ", 10)

	parts, err := svc.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 40)
		assert.Equal(t, strings.TrimSpace(p), p)
	}

	parts, err = svc.Split("  \r\n ")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestIngest_TextAndPDF(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(md, []byte("# Case method\n\nSWOT lists strengths and weaknesses.\n\nPESTLE scans the environment."), 0o644))

	r := render.New(render.Config{BaseDir: dir, Now: func() time.Time { return time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC) }})
	doc, err := r.Render(context.Background(), "Limitations", "The case method depends on the quality of the write-up.")
	require.NoError(t, err)

	emb := &fakeEmbedder{}
	store := &fakeStore{}
	svc := NewService(emb, &fakeReranker{}, store, Options{ChunkSize: 60, ChunkOverlap: 0})

	rep, err := svc.Ingest(context.Background(), md, doc.Path)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Files)
	assert.Equal(t, len(store.upserted), rep.Chunks)
	assert.Equal(t, []string{"guide.md", "limitations-2024-05-06.pdf"}, store.deleted)
	for _, it := range emb.inputTypes {
		assert.Equal(t, cohere.InputSearchDocument, it)
	}

	var pdfText strings.Builder
	for _, c := range store.upserted {
		assert.NotEmpty(t, c.Embedding)
		assert.Equal(t, c.Source, c.Metadata["source"])
		if c.Source == "limitations-2024-05-06.pdf" {
			pdfText.WriteString(c.Text)
		}
	}
	assert.Equal(t, "guide.md#0", store.upserted[0].ID)
	assert.Contains(t, pdfText.String(), "LIMITATIONS")
}

func TestIngest_Errors(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeReranker{}, &fakeStore{}, Options{})
	_, err := svc.Ingest(context.Background(), "slides.pptx")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("some text"), 0o644))
	svc = NewService(&fakeEmbedder{err: errors.New("quota")}, &fakeReranker{}, &fakeStore{}, Options{})
	_, err = svc.Ingest(context.Background(), file)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestIngest_EmptyFileIsSkipped(t *testing.T) {
	file := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(file, []byte("   \n"), 0o644))
	store := &fakeStore{}
	rep, err := NewService(&fakeEmbedder{}, &fakeReranker{}, store, Options{}).Ingest(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Files: 1}, rep)
	assert.Empty(t, store.deleted)
}
