// Package tools is the boundary between the agent runtime (or HTTP callers)
// and the services. Collaborator failures come back as structured results;
// only render failures are returned as errors.
package tools

import (
	"context"
	"errors"
	"fmt"

	"casestudy/internal/domain"
	"casestudy/internal/infra/logging"
	"casestudy/internal/mail"
	"casestudy/internal/rag"
	"casestudy/internal/search"
)

// Tool names as the model sees them.
const (
	NameCreatePDF    = "create_pdf"
	NameSearchGoogle = "search_google"
	NameSendMail     = "send_mail"
	NameCaseStudyRAG = "case_study_rag"
)

// StatusRAGFailed is reported when retrieval fails.
const StatusRAGFailed = "Failed to perform case study RAG search"

// ErrDisabled is returned when a tool's backing service is not configured.
var ErrDisabled = errors.New("tool disabled")

// Renderer writes one document per call.
type Renderer interface {
	Render(ctx context.Context, title, content string) (domain.Document, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, n int) (search.Result, error)
}

type Mailer interface {
	Send(ctx context.Context, msg mail.Message) domain.ToolStatus
}

type Retriever interface {
	Query(ctx context.Context, query string, limit int) (rag.Result, error)
}

// Set holds the services behind each tool. Nil fields disable that tool.
type Set struct {
	Renderer  Renderer
	Searcher  Searcher
	Mailer    Mailer
	Retriever Retriever
}

// CreatePDFInput is the document request shared by the tool call, the HTTP
// endpoint and the render command.
type CreatePDFInput = domain.DocumentRequest

type CreatePDFOutput struct {
	Status string `json:"status"`
	PDFURL string `json:"pdfUrl"`
}

type SearchInput struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results,omitempty"`
}

type RAGInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// RAGOutput is either a retrieval result or, on failure, a status.
type RAGOutput struct {
	rag.Result
	Status  string `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
}

// CreatePDF renders the document; the error wraps domain.ErrRender.
func (s *Set) CreatePDF(ctx context.Context, in CreatePDFInput) (CreatePDFOutput, error) {
	if s.Renderer == nil {
		return CreatePDFOutput{}, fmt.Errorf("%w: %s", ErrDisabled, NameCreatePDF)
	}
	doc, err := s.Renderer.Render(ctx, in.Title, in.Content)
	if err != nil {
		return CreatePDFOutput{}, err
	}
	return CreatePDFOutput{Status: domain.StatusPDFGenerated, PDFURL: doc.Locator}, nil
}

// SearchGoogle returns an empty result list on any failure.
func (s *Set) SearchGoogle(ctx context.Context, in SearchInput) search.Result {
	if s.Searcher == nil {
		logging.Warn("Search tool called while disabled")
		return search.Result{Results: []map[string]any{}}
	}
	res, err := s.Searcher.Search(ctx, in.Query, in.NResults)
	if err != nil {
		logging.Error("Google search failed", "query", in.Query, "error", err)
		return search.Result{Results: []map[string]any{}}
	}
	if res.Results == nil {
		res.Results = []map[string]any{}
	}
	return res
}

func (s *Set) SendMail(ctx context.Context, msg mail.Message) domain.ToolStatus {
	if s.Mailer == nil {
		return domain.ToolStatus{Status: domain.StatusEmailFailed, Details: ErrDisabled.Error()}
	}
	return s.Mailer.Send(ctx, msg)
}

// CaseStudyRAG reports retrieval failures in the Status field.
func (s *Set) CaseStudyRAG(ctx context.Context, in RAGInput) RAGOutput {
	if s.Retriever == nil {
		return RAGOutput{Result: rag.Result{Results: []rag.Hit{}}, Status: StatusRAGFailed, Details: ErrDisabled.Error()}
	}
	res, err := s.Retriever.Query(ctx, in.Query, in.Limit)
	if err != nil {
		logging.Error("Error in case study RAG search", "query", in.Query, "error", err)
		return RAGOutput{Result: rag.Result{Results: []rag.Hit{}}, Status: StatusRAGFailed, Details: err.Error()}
	}
	return RAGOutput{Result: res}
}
