// Package server provides the HTTP surface of the chat gateway.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zarachat/internal/conversation"
	"zarachat/internal/core"
)

// DefaultBodySizeLimit caps request bodies when Config leaves it empty.
const DefaultBodySizeLimit = "10M"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	CORSOrigins     []string // Allowed browser origins; credentials are allowed for these
	BodySizeLimit   string   // Max request body size, e.g. "10M"
	MetricsEnabled  bool     // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string   // HTTP path for metrics endpoint (default: /metrics)
}

// New creates a new HTTP server
func New(router ChatRouter, store conversation.Store, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = httpErrorHandler

	handler := NewHandler(router, store)

	// Global middleware stack (order matters)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := core.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:8080"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderXRequestID, HeaderSessionID},
	}))

	bodySizeLimit := cfg.BodySizeLimit
	if bodySizeLimit == "" {
		bodySizeLimit = DefaultBodySizeLimit
	}
	e.Use(middleware.BodyLimit(bodySizeLimit))

	// Public routes
	e.GET("/health", handler.Health)
	e.GET("/models", handler.ListModels)
	if cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal attacks
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	// API routes
	api := e.Group("/api")
	api.POST("/chat", handler.Chat)
	api.GET("/sessions/:id/messages", handler.SessionMessages)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
