// Package main is the entry point for the zarachat gateway server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zarachat/config"
	"zarachat/internal/app"
	"zarachat/internal/logging"
	"zarachat/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	configPath := flag.String("config", "", "Path to a YAML config file (default: $CONFIG_PATH, config/config.yaml, config.yaml)")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup(logging.Options{})
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(logging.Options{Format: cfg.Logging.Format, Level: cfg.Logging.Level})

	slog.Info("starting zarachat",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	application, err := app.New(context.Background(), app.Config{AppConfig: cfg})
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, application, ":"+cfg.Server.Port, 30*time.Second); err != nil {
		slog.Error("server failed", "error", err)
		_ = application.Shutdown(context.Background())
		stop()
		os.Exit(1)
	}
}

// lifecycle is the part of *app.App that serve drives.
type lifecycle interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

// serve runs a until it stops. Cancelling ctx shuts a down within
// shutdownTimeout, and serve returns only once that shutdown has finished.
func serve(ctx context.Context, a lifecycle, addr string, shutdownTimeout time.Duration) error {
	stopped := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	err := a.Start(addr)
	close(stopped)
	<-done
	return err
}
