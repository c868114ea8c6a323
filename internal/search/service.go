package search

import (
	"context"
	"fmt"
	"strings"

	"casestudy/internal/domain"
)

const DefaultResults = 5

// Executor runs a hosted tool and returns its raw JSON response.
type Executor interface {
	Execute(ctx context.Context, tool string, input map[string]any) ([]byte, error)
}

// Result is what callers of the search tool receive.
type Result struct {
	Results []map[string]any `json:"results"`
	Raw     any              `json:"raw,omitempty"`
}

// Service searches via the configured tool, optionally through a cache.
type Service struct {
	exec     Executor
	cache    *Cache
	toolName string
	defaultN int
}

// NewService builds a Service. cache may be nil.
func NewService(exec Executor, cache *Cache, toolName string, defaultN int) *Service {
	if toolName == "" {
		toolName = "Google.Search"
	}
	if defaultN <= 0 {
		defaultN = DefaultResults
	}
	return &Service{exec: exec, cache: cache, toolName: toolName, defaultN: defaultN}
}

// Search returns normalized records for query. n <= 0 uses the default size.
// Collaborator errors wrap domain.ErrUpstream; every error comes with an empty, non-nil Result.
func (s *Service) Search(ctx context.Context, query string, n int) (Result, error) {
	empty := Result{Results: []map[string]any{}}
	query = strings.TrimSpace(query)
	if query == "" {
		return empty, fmt.Errorf("%w: search query is empty", domain.ErrInvalidInput)
	}
	if n <= 0 {
		n = s.defaultN
	}

	key := Key(query, n)
	if s.cache != nil {
		if body, ok := s.cache.Get(ctx, key); ok {
			return decode(body), nil
		}
	}

	body, err := s.exec.Execute(ctx, s.toolName, map[string]any{"query": query, "n_results": n})
	if err != nil {
		return empty, err
	}
	res := decode(body)
	if s.cache != nil && len(res.Results) > 0 {
		s.cache.Set(ctx, key, body)
	}
	return res, nil
}

func decode(body []byte) Result {
	records, raw := normalize(body)
	return Result{Results: records, Raw: raw}
}
