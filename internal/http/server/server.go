// Package server assembles the Fiber application.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"casestudy/internal/config"
	"casestudy/internal/http/handlers"
	"casestudy/internal/http/middleware"
	"casestudy/internal/infra/chrome"
	"casestudy/internal/infra/logging"
	"casestudy/internal/tokens"
	"casestudy/internal/tools"
)

// Deps are the collaborators behind the routes. Nil Tokens disables key
// auth; nil Store disables rate limiting.
type Deps struct {
	Config config.Config
	Tools  *tools.Set
	Agent  handlers.Asker
	Pool   *chrome.Pool
	Tokens *tokens.Cache
	Store  fiber.Storage
}

// New creates and configures the Fiber app.
func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, middleware.Options{
		CORS:   cfg.Env == "development",
		Tokens: d.Tokens,
		Store:  d.Store,
		RateLimit: middleware.RateLimitConfig{
			RateInterval:           cfg.RateLimiter.Interval,
			EnableTokenRateLimiter: cfg.RateLimiter.EnableTokenRateLimiter,
			EnableUserLimiter:      cfg.RateLimiter.EnableUserLimiter,
			UserLimit:              cfg.RateLimiter.UserLimit,
		},
	})
	registerRoutes(app, d)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}

func registerRoutes(app *fiber.App, d Deps) {
	set := d.Tools
	if set == nil {
		set = &tools.Set{}
	}
	h := &handlers.Handlers{
		Tools:          set,
		Agent:          d.Agent,
		Pool:           d.Pool,
		ChromePoolSize: d.Config.PDF.ChromePoolSize,
		PDFTimeoutSecs: d.Config.PDF.TimeoutSecs,
	}

	v1 := app.Group("/v1")

	t := v1.Group("/tools", middleware.RequireScope(d.Tokens, "tools"))
	t.Post("/create-pdf", h.CreatePDF)
	t.Post("/search-google", h.SearchGoogle)
	t.Post("/send-mail", h.SendMail)
	t.Post("/case-study-rag", h.CaseStudyRAG)

	v1.Post("/agent/ask", middleware.RequireScope(d.Tokens, "agent"), h.Ask)
	v1.Get("/chrome/stats", h.ChromeStats)
	v1.Get("/monitor", monitor.New(monitor.Config{Title: "casestudy metrics"}))
}
