// Package middleware holds the global Fiber middleware chain.
package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"casestudy/internal/domain"
	"casestudy/internal/infra/logging"
	"casestudy/internal/tokens"
)

// APIKeyLocal is the Locals key holding the validated API key.
const APIKeyLocal = "api_key"

const HealthPath = "/ops/health"

// Options configures Register. A nil Tokens disables key authentication.
type Options struct {
	CORS      bool
	Tokens    *tokens.Cache
	RateLimit RateLimitConfig
	Store     fiber.Storage
}

// Register attaches the global middleware in order: CORS, request id,
// health, key auth, token limiter, user limiter, request log.
func Register(app *fiber.App, opts Options) {
	if opts.CORS {
		app.Use(cors.New())
	}

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  HealthPath,
		ReadinessEndpoint: "/ops/ready",
	}))

	if opts.Tokens != nil {
		app.Use(APIKeyAuth(opts.Tokens))
		if opts.Store != nil {
			app.Use(TokenRateLimit(opts.RateLimit, opts.Tokens, opts.Store, NewLimiterCache()))
		}
	}
	if opts.Store != nil {
		app.Use(UserRateLimit(opts.RateLimit, opts.Store))
	}

	app.Use(func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = c.GetRespHeader(fiber.HeaderXRequestID)
		}
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)
		return c.Next()
	})
}

// APIKeyAuth validates X-API-Key against the token cache. Requests without
// the header stay public and fall to the user limiter.
func APIKeyAuth(cache *tokens.Cache) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: APIKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if !cache.Ready() {
				return false, domain.ErrTokenStoreNotReady
			}
			if !cache.Validate(key) {
				return false, domain.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may call this with a nil error.
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, domain.ErrTokenStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    status,
					"message": err.Error(),
				},
			})
		},
	})
}

// RequireScope rejects keys whose scope does not include group. Public
// requests and a nil cache pass.
func RequireScope(cache *tokens.Cache, group string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := apiKey(c)
		if cache == nil || token == "" {
			return c.Next()
		}
		entry, ok := cache.Lookup(token)
		if !ok || !entry.Allows(group) {
			logging.Warn("API key scope denied", "group", group, "path", c.Path())
			return fiber.NewError(fiber.StatusForbidden, "API key not allowed for "+group)
		}
		return c.Next()
	}
}
