// Package agent wires the Case Study Agent to an OpenAI-compatible chat model
// and the tool set.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"casestudy/internal/domain"
	"casestudy/internal/infra/logging"
)

// Config selects the chat-completions endpoint.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	MaxTurns int
	// Tracing is off unless set; the runtime would otherwise export traces
	// to OpenAI.
	Tracing bool
}

type Assistant struct {
	agent  *agents.Agent
	runner agents.Runner
}

// New builds the agent on a chat-completions model served at cfg.BaseURL.
func New(cfg Config, tools []agents.Tool) *Assistant {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := agents.OpenaiClient{Client: openai.NewClient(opts...)}
	model := agents.NewOpenAIChatCompletionsModel(cfg.Model, client)
	return NewWithModel(model, cfg, tools)
}

// NewWithModel builds the agent on an existing model instance.
func NewWithModel(model agents.Model, cfg Config, tools []agents.Tool) *Assistant {
	a := agents.New(Name).
		WithInstructions(Instructions).
		WithTools(tools...).
		WithModelInstance(model)

	var maxTurns uint64
	if cfg.MaxTurns > 0 {
		maxTurns = uint64(cfg.MaxTurns)
	}
	return &Assistant{
		agent: a,
		runner: agents.Runner{Config: agents.RunConfig{
			MaxTurns:        maxTurns,
			TracingDisabled: !cfg.Tracing,
			WorkflowName:    Name,
		}},
	}
}

// Agent exposes the underlying runtime agent.
func (a *Assistant) Agent() *agents.Agent { return a.agent }

// Ask runs one conversation turn and returns the final text. Render failures
// raised by create_pdf keep domain.ErrRender; any other runtime failure wraps
// domain.ErrUpstream.
func (a *Assistant) Ask(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: input is empty", domain.ErrInvalidInput)
	}
	res, err := a.runner.Run(ctx, a.agent, input)
	if err != nil {
		logging.Error("Agent run failed", "error", err)
		if errors.Is(err, domain.ErrRender) {
			return "", err
		}
		return "", fmt.Errorf("%w: agent run: %w", domain.ErrUpstream, err)
	}
	switch out := res.FinalOutput.(type) {
	case nil:
		return "", nil
	case string:
		return out, nil
	default:
		return fmt.Sprint(out), nil
	}
}
