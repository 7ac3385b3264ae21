// Package ops serves the bot's observability API: health probes, prometheus
// metrics, usage stats and the day's posting plan.
package ops

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/getrucky/marketing-agent/internal/metrics"
)

// ServerConfig holds configuration for the ops API server.
type ServerConfig struct {
	ListenAddr string
	APIKey     string // empty disables auth
}

// Server is the ops API Fiber application.
type Server struct {
	app    *fiber.App
	cfg    ServerConfig
	logger zerolog.Logger
}

// NewServer creates and configures the ops API server.
func NewServer(cfg ServerConfig, h *Handlers, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:    app,
		cfg:    cfg,
		logger: logger.With().Str("component", "ops_server").Logger(),
	}

	app.Use(recover.New())
	app.Use(authMiddleware(cfg.APIKey))

	app.Get("/healthz", h.Liveness)
	app.Get("/readyz", h.Readiness)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	v1 := app.Group("/api/v1")
	v1.Get("/health", h.HealthDetail)
	v1.Get("/stats", h.Stats)
	v1.Get("/budget/:surface", h.Budget)
	v1.Get("/slots", h.Slots)

	return s
}

// authMiddleware validates the Authorization bearer token. Probe and metrics
// endpoints stay open for the scraper and the kubelet.
func authMiddleware(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey == "" {
			return c.Next()
		}

		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		header := c.Get("Authorization")
		if header == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized", "Authorization header is required")
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token != apiKey {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_token", "Unauthorized", "Invalid API token")
		}
		return c.Next()
	}
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	s.logger.Info().Str("addr", addr).Msg("ops API server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("ops API server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}
		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}
