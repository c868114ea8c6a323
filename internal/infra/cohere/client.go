// Package cohere is a small client for the Cohere v2 embed and rerank APIs.
package cohere

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"casestudy/internal/domain"
)

// Embedding input types.
const (
	InputSearchQuery    = "search_query"
	InputSearchDocument = "search_document"
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIKey      string
	EmbedModel  string
	RerankModel string
	// Dimension requests a specific embedding size; zero keeps the model default.
	Dimension int
	Timeout   time.Duration
	Retries   int
}

type Client struct {
	http        *resty.Client
	embedModel  string
	rerankModel string
	dimension   int
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(opts.APIKey).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
	})
	return &Client{
		http:        c,
		embedModel:  opts.EmbedModel,
		rerankModel: opts.RerankModel,
		dimension:   opts.Dimension,
	}
}

type embedRequest struct {
	Model           string   `json:"model"`
	Texts           []string `json:"texts"`
	InputType       string   `json:"input_type"`
	EmbeddingTypes  []string `json:"embedding_types"`
	OutputDimension int      `json:"output_dimension,omitempty"`
}

type embedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

type apiError struct {
	Message string `json:"message"`
}

// Embed returns one vector per text, in order.
func (c *Client) Embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out embedResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(embedRequest{
			Model:           c.embedModel,
			Texts:           texts,
			InputType:       inputType,
			EmbeddingTypes:  []string{"float"},
			OutputDimension: c.dimension,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v2/embed")
	if err := check("embed", resp, err, apiErr); err != nil {
		return nil, err
	}
	if len(out.Embeddings.Float) != len(texts) {
		return nil, fmt.Errorf("%w: cohere embed: got %d vectors for %d texts", domain.ErrUpstream, len(out.Embeddings.Float), len(texts))
	}
	return out.Embeddings.Float, nil
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

// Ranked is one rerank hit. Index points into the documents passed to Rerank.
type Ranked struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []Ranked `json:"results"`
}

// Rerank orders documents by relevance to query and keeps the best topN.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Ranked, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	var out rerankResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rerankRequest{Model: c.rerankModel, Query: query, Documents: documents, TopN: topN}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v2/rerank")
	if err := check("rerank", resp, err, apiErr); err != nil {
		return nil, err
	}
	for _, r := range out.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("%w: cohere rerank: index %d out of range", domain.ErrUpstream, r.Index)
		}
	}
	return out.Results, nil
}

func check(op string, resp *resty.Response, err error, apiErr apiError) error {
	if err != nil {
		return fmt.Errorf("%w: cohere %s: %w", domain.ErrUpstream, op, err)
	}
	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = resp.Status()
		}
		return fmt.Errorf("%w: cohere %s: status %d: %s", domain.ErrUpstream, op, resp.StatusCode(), msg)
	}
	return nil
}
