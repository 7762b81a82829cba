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

	"github.com/kirillkom/dataroom-assistant/internal/bootstrap"
	"github.com/kirillkom/dataroom-assistant/internal/config"
	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/dataroom-assistant/internal/observability/logging"
	"github.com/kirillkom/dataroom-assistant/internal/observability/metrics"
)

const (
	service        = "worker"
	persistTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	if cfg.NATSURL == "" || cfg.PostgresDSN == "" {
		slog.Error("invalid_config", "error", "worker requires NATS_URL and POSTGRES_DSN")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := bootstrap.OpenHistoryRepository(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.QueryLogConfig()),
	})
	if err != nil {
		slog.Error("queue_connect_failed", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = queue.SubscribeQueryLogs(ctx, func(handlerCtx context.Context, entry domain.QueryLog) error {
		workerMetrics.StartQueryLog()
		workerMetrics.ObserveQueueLag(service, time.Since(entry.CreatedAt))
		start := time.Now()

		err := persistQueryLog(handlerCtx, repo, entry)
		workerMetrics.FinishQueryLog(service, time.Since(start), err)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func persistQueryLog(ctx context.Context, repo ports.QueryLogger, entry domain.QueryLog) error {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	return repo.LogQuery(ctx, entry)
}
