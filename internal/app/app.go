// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the zarachat gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"zarachat/config"
	"zarachat/internal/conversation"
	"zarachat/internal/httpclient"
	"zarachat/internal/observability"
	"zarachat/internal/providers"
	"zarachat/internal/providers/deepseek"
	"zarachat/internal/providers/gemini"
	"zarachat/internal/providers/groq"
	"zarachat/internal/providers/openai"
	"zarachat/internal/server"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config *config.Config
	router *providers.Router
	store  conversation.Store
	server *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig is the loaded application configuration.
	AppConfig *config.Config

	// Factory builds provider adapters. Nil means DefaultFactory().
	Factory *providers.ProviderFactory

	// Registerer receives the upstream metrics when metrics are enabled.
	// Nil means the Prometheus default registerer, which /metrics serves.
	Registerer prometheus.Registerer
}

// DefaultFactory returns a factory with every built-in adapter registered.
func DefaultFactory() *providers.ProviderFactory {
	factory := providers.NewProviderFactory()
	factory.Add(gemini.Registration)
	factory.Add(openai.Registration)
	factory.Add(deepseek.Registration)
	factory.Add(groq.Registration)
	return factory
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(_ context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	factory := cfg.Factory
	if factory == nil {
		factory = DefaultFactory()
	}
	factory.SetHTTPClient(httpclient.NewWithTimeout(appCfg.HTTP.Timeout))
	slog.Debug("provider adapters registered", "types", factory.ListRegistered())

	// Hooks must be set before the router builds its adapters.
	if appCfg.Metrics.Enabled {
		factory.SetHooks(observability.NewPrometheusHooks(cfg.Registerer).Hooks())
	}

	router, err := providers.NewRouter(factory, routerConfig(appCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	store, err := conversation.New(conversation.Config{
		Type: appCfg.Store.Type,
		Redis: conversation.RedisConfig{
			URL:       appCfg.Store.Redis.URL,
			KeyPrefix: appCfg.Store.Redis.KeyPrefix,
			TTL:       appCfg.Store.Redis.TTL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize conversation store: %w", err)
	}

	app := &App{
		config: appCfg,
		router: router,
		store:  store,
	}
	app.logStartupInfo()

	app.server = server.New(router, store, &server.Config{
		CORSOrigins:     appCfg.Server.CORSOrigins,
		BodySizeLimit:   appCfg.Server.BodySizeLimit,
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
	})

	return app, nil
}

func routerConfig(cfg *config.Config) providers.RouterConfig {
	settings := make(map[string]providers.ProviderSettings, len(cfg.Providers))
	for name, p := range cfg.Providers {
		settings[name] = providers.ProviderSettings{
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
		}
	}
	return providers.RouterConfig{
		DefaultProvider: cfg.DefaultProvider,
		Providers:       settings,
	}
}

// Router returns the chat router.
func (a *App) Router() *providers.Router {
	return a.router
}

// Handler returns the HTTP handler, for use with httptest.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server, honoring ctx, and then closes the
// conversation store. It is idempotent; every step is attempted and
// failures are joined.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("conversation store close error", "error", err)
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	configured := a.router.Configured()
	if len(configured) == 0 {
		slog.Warn("no provider API keys configured; chat requests will be rejected",
			"default_provider", a.router.DefaultProvider())
	} else {
		slog.Info("providers configured",
			"providers", configured,
			"default_provider", a.router.DefaultProvider())
	}
	if !providers.IsKnown(a.router.DefaultProvider()) {
		slog.Warn("default provider is not supported", "default_provider", a.router.DefaultProvider())
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("conversation store configured", "type", cfg.Store.Type)
}
