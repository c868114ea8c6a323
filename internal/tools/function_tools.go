package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"

	"casestudy/internal/mail"
)

func objectSchema(name string, required []string, props map[string]any) map[string]any {
	return map[string]any{
		"title":                name + "_args",
		"type":                 "object",
		"required":             required,
		"additionalProperties": false,
		"properties":           props,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func decodeArgs[T any](tool, arguments string) (T, error) {
	var in T
	if err := json.Unmarshal([]byte(arguments), &in); err != nil {
		return in, fmt.Errorf("%s: invalid arguments: %w", tool, err)
	}
	return in, nil
}

// FunctionTools exposes every configured tool to the agent runtime.
func (s *Set) FunctionTools() []agents.Tool {
	var out []agents.Tool
	if s.Searcher != nil {
		out = append(out, s.searchTool())
	}
	if s.Mailer != nil {
		out = append(out, s.mailTool())
	}
	if s.Renderer != nil {
		out = append(out, s.pdfTool())
	}
	if s.Retriever != nil {
		out = append(out, s.ragTool())
	}
	return out
}

// pdfTool is the only tool whose failures end the run: a nil
// ToolErrorFunction makes the runtime return the render error to the caller
// instead of handing the model a retry message.
func (s *Set) pdfTool() agents.FunctionTool {
	var propagate agents.ToolErrorFunction
	return agents.FunctionTool{
		Name:        NameCreatePDF,
		Description: "Generates a styled PDF from a title and markdown-like content and returns the path to the saved file.",
		ParamsJSONSchema: objectSchema(NameCreatePDF, []string{"title", "content"}, map[string]any{
			"title":   stringProp("Title of the document"),
			"content": stringProp("Full analysis text. Use **Header** lines, '* **Label**: text' bullets and '1. ' numbered questions."),
		}),
		StrictJSONSchema:     param.NewOpt(true),
		FailureErrorFunction: &propagate,
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			in, err := decodeArgs[CreatePDFInput](NameCreatePDF, arguments)
			if err != nil {
				return nil, err
			}
			return s.CreatePDF(ctx, in)
		},
	}
}

func (s *Set) searchTool() agents.FunctionTool {
	return agents.FunctionTool{
		Name:        NameSearchGoogle,
		Description: "Fetches information from Google for a search query. Use it for current, web-based facts; it returns several results.",
		ParamsJSONSchema: objectSchema(NameSearchGoogle, []string{"query"}, map[string]any{
			"query":     stringProp("The search query to perform on Google"),
			"n_results": intProp("Number of results to return (default 5)"),
		}),
		StrictJSONSchema: param.NewOpt(false),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			in, err := decodeArgs[SearchInput](NameSearchGoogle, arguments)
			if err != nil {
				return nil, err
			}
			return s.SearchGoogle(ctx, in), nil
		},
	}
}

func (s *Set) mailTool() agents.FunctionTool {
	return agents.FunctionTool{
		Name:        NameSendMail,
		Description: "Sends an email through the Gmail integration.",
		ParamsJSONSchema: objectSchema(NameSendMail, []string{"recipient", "subject", "body"}, map[string]any{
			"recipient": stringProp("Recipient email address"),
			"subject":   stringProp("Email subject"),
			"body":      stringProp("Email body"),
		}),
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			in, err := decodeArgs[mail.Message](NameSendMail, arguments)
			if err != nil {
				return nil, err
			}
			return s.SendMail(ctx, in), nil
		},
	}
}

func (s *Set) ragTool() agents.FunctionTool {
	return agents.FunctionTool{
		Name: NameCaseStudyRAG,
		Description: "Retrieves passages from the embedded business case study guide using semantic search. " +
			"Use it for academic definitions and analysis frameworks such as SWOT or Porter's Five Forces.",
		ParamsJSONSchema: objectSchema(NameCaseStudyRAG, []string{"query"}, map[string]any{
			"query": stringProp("A natural language question about case study method, e.g. 'What is the importance of SWOT in case analysis?'"),
			"limit": intProp("Maximum number of candidate passages to search (default 5)"),
		}),
		StrictJSONSchema: param.NewOpt(false),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			in, err := decodeArgs[RAGInput](NameCaseStudyRAG, arguments)
			if err != nil {
				return nil, err
			}
			return s.CaseStudyRAG(ctx, in), nil
		},
	}
}
