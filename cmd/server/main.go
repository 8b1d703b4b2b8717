// Command main is the entry point for the UnboundedFigures backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/server"
)

// @title UnboundedFigures API
// @version 1.0
// @description Math writeups, comments, follows and a tag-preference feed.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity provider token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: !cfg.IsProduction(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer observability.Sync()
	logger := observability.L()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracer shutdown error", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
