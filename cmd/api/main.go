package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/dataroom-assistant/internal/adapters/http"
	"github.com/kirillkom/dataroom-assistant/internal/bootstrap"
	"github.com/kirillkom/dataroom-assistant/internal/config"
	"github.com/kirillkom/dataroom-assistant/internal/observability/logging"
	"github.com/kirillkom/dataroom-assistant/internal/observability/metrics"
)

const janitorInterval = time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid_config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "api")
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	go app.Sessions.RunJanitor(ctx, janitorInterval)

	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Sessions: app.Sessions,
		Ingest:   app.Ingest,
		Catalog:  app.Ingest,
		QA:       app.QA,
		History:  app.History,
		Breakers: app.ModelBreakers,
	}, metrics.NewHTTPServerMetrics("api"))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "provider", cfg.LLMProvider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
