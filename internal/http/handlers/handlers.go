// Package handlers exposes the tools and the agent over HTTP.
package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"casestudy/internal/domain"
	"casestudy/internal/infra/chrome"
	"casestudy/internal/infra/logging"
	"casestudy/internal/mail"
	"casestudy/internal/tools"
)

// Asker answers one agent turn.
type Asker interface {
	Ask(ctx context.Context, input string) (string, error)
}

// Handlers serves the tool and agent routes. Pool is nil when the chrome
// engine or pooling is off.
type Handlers struct {
	Tools          *tools.Set
	Agent          Asker
	Pool           *chrome.Pool
	ChromePoolSize int
	PDFTimeoutSecs int
}

// statusFor maps domain errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, tools.ErrDisabled), errors.Is(err, domain.ErrMissingConfiguration):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstream):
		return fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		logging.Error("Request failed", "path", c.Path(), "error", err)
	}
	return fiber.NewError(code, err.Error())
}

func parse(c *fiber.Ctx, into any) error {
	if err := c.BodyParser(into); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fiber.NewError(fiber.StatusBadRequest, field+" is required")
	}
	return nil
}

// CreatePDF handles POST /v1/tools/create-pdf.
func (h *Handlers) CreatePDF(c *fiber.Ctx) error {
	var in tools.CreatePDFInput
	if err := parse(c, &in); err != nil {
		return err
	}
	if err := required("title", in.Title); err != nil {
		return err
	}
	out, err := h.Tools.CreatePDF(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// SearchGoogle handles POST /v1/tools/search-google. Upstream failures
// still answer 200 with empty results.
func (h *Handlers) SearchGoogle(c *fiber.Ctx) error {
	var in tools.SearchInput
	if err := parse(c, &in); err != nil {
		return err
	}
	if err := required("query", in.Query); err != nil {
		return err
	}
	if in.NResults < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "n_results must not be negative")
	}
	return c.JSON(h.Tools.SearchGoogle(c.UserContext(), in))
}

// SendMail handles POST /v1/tools/send-mail. A failed send answers 502 with
// the tool status as body.
func (h *Handlers) SendMail(c *fiber.Ctx) error {
	var msg mail.Message
	if err := parse(c, &msg); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return fail(c, err)
	}
	st := h.Tools.SendMail(c.UserContext(), msg)
	if st.Status != domain.StatusEmailSent {
		return c.Status(fiber.StatusBadGateway).JSON(st)
	}
	return c.JSON(st)
}

// CaseStudyRAG handles POST /v1/tools/case-study-rag.
func (h *Handlers) CaseStudyRAG(c *fiber.Ctx) error {
	var in tools.RAGInput
	if err := parse(c, &in); err != nil {
		return err
	}
	if err := required("query", in.Query); err != nil {
		return err
	}
	out := h.Tools.CaseStudyRAG(c.UserContext(), in)
	if out.Status != "" {
		return c.Status(fiber.StatusBadGateway).JSON(out)
	}
	return c.JSON(out)
}

type askRequest struct {
	Input string `json:"input"`
}

// Ask handles POST /v1/agent/ask.
func (h *Handlers) Ask(c *fiber.Ctx) error {
	if h.Agent == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "agent disabled")
	}
	var req askRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	out, err := h.Agent.Ask(c.UserContext(), req.Input)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"output": out})
}

// ChromeStats handles GET /v1/chrome/stats.
func (h *Handlers) ChromeStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.JSON(chrome.Stats{
			Enabled:      false,
			PoolSizeConf: h.ChromePoolSize,
			TimeoutSecs:  h.PDFTimeoutSecs,
		})
	}
	return c.JSON(h.Pool.Stats(h.PDFTimeoutSecs))
}
