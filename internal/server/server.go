// Package server exposes the workflow engine over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/randalmurphal/querybot/internal/intent"
	"github.com/randalmurphal/querybot/internal/workflow"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "product-query-bot"

// Engine is the part of workflow.Engine the server needs.
type Engine interface {
	Process(ctx context.Context, sessionID, query string) workflow.Result
	Stats() intent.Stats
	Reset() intent.Stats
	Checkpoint(ctx context.Context, sessionID string) (workflow.Snapshot, error)
}

var _ Engine = (*workflow.Engine)(nil)

// Server is the HTTP front end.
type Server struct {
	app    *fiber.App
	engine Engine
	logger *slog.Logger
}

type options struct {
	logger       *slog.Logger
	tracing      bool
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Option configures a Server.
type Option func(*options)

// WithLogger sets the request logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracing wraps every request in an OpenTelemetry span.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

// WithTimeouts sets the connection read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(o *options) {
		o.readTimeout = read
		o.writeTimeout = write
	}
}

// New builds the app and registers all routes.
func New(engine Engine, opts ...Option) *Server {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	app := fiber.New(fiber.Config{
		AppName:               ServiceName,
		ReadTimeout:           o.readTimeout,
		WriteTimeout:          o.writeTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(o.logger),
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if o.tracing {
		app.Use(otelfiber.Middleware())
	}
	app.Use(requestLogger(o.logger))

	s := &Server{app: app, engine: engine, logger: o.logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/", s.handleRoot)

	api := s.app.Group("/api")
	api.Post("/query", s.handleQuery)
	api.Get("/health", s.handleHealth)
	api.Get("/routing/stats", s.handleStats)
	api.Post("/routing/reset", s.handleReset)
	api.Get("/sessions/:id/checkpoint", s.handleCheckpoint)
}

// App exposes the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
		}
		return c.Status(code).JSON(errorResponse{Detail: err.Error()})
	}
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		logger.Info("http request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
		)
		return err
	}
}
