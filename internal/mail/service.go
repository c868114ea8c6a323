// Package mail sends email through the hosted Gmail tool.
package mail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"casestudy/internal/domain"
	"casestudy/internal/infra/logging"
)

// Executor runs a hosted tool and returns its raw JSON response.
type Executor interface {
	Execute(ctx context.Context, tool string, input map[string]any) ([]byte, error)
}

// Message is one outgoing email.
type Message struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Validate checks that the recipient parses as an address.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(m.Recipient); err != nil {
		return fmt.Errorf("%w: recipient %q: %w", domain.ErrInvalidInput, m.Recipient, err)
	}
	return nil
}

type Service struct {
	exec     Executor
	toolName string
}

func NewService(exec Executor, toolName string) *Service {
	if toolName == "" {
		toolName = "Google.SendEmail"
	}
	return &Service{exec: exec, toolName: toolName}
}

// Send never returns an error; failures are reported in the status.
func (s *Service) Send(ctx context.Context, msg Message) domain.ToolStatus {
	if err := msg.Validate(); err != nil {
		logging.Warn("Email rejected", "error", err)
		return domain.ToolStatus{Status: domain.StatusEmailFailed, Details: err.Error()}
	}
	_, err := s.exec.Execute(ctx, s.toolName, map[string]any{
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
		"body":      msg.Body,
	})
	if err != nil {
		logging.Error("Email sending failed", "recipient", msg.Recipient, "error", err)
		return domain.ToolStatus{Status: domain.StatusEmailFailed, Details: err.Error()}
	}
	logging.Info("Email sent", "recipient", msg.Recipient)
	return domain.ToolStatus{Status: domain.StatusEmailSent}
}
