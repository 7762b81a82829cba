package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/dataroom-assistant/internal/config"
	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
	"github.com/kirillkom/dataroom-assistant/internal/core/usecase"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/docstore"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/repository/memory"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/vectorindex"
	"github.com/kirillkom/dataroom-assistant/internal/observability/tracing"
)

// App is the wired core shared by the API and the CLI.
type App struct {
	Config config.Config

	Sessions *usecase.SessionManager
	Ingest   *usecase.IngestUseCase
	QA       *usecase.QAEngine
	History  *usecase.HistoryUseCase

	HistoryRepo ports.HistoryRepository
	// ModelBreakers guards the embedder and generator.
	ModelBreakers *resilience.Executor

	closers []func()
}

// New wires the API: persistent history when POSTGRES_DSN is set, query
// logs over NATS when NATS_URL is set, tracing when an OTLP endpoint is set.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	if cfg.NATSURL != "" && cfg.PostgresDSN == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "bootstrap", errors.New("NATS_URL needs POSTGRES_DSN, otherwise queued query logs are never readable"))
	}
	app := &App{Config: cfg}

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: service,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	app.onClose(func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing_shutdown_failed", "error", err)
		}
	})

	repo, err := app.openHistory(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	var logger ports.QueryLogger = repo
	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.QueryLogConfig()),
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init query log queue: %w", err)
		}
		app.onClose(queue.Close)
		logger = queue
	}

	if err := app.wireCore(ctx, repo, logger); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// NewLocal wires an in-process App for the CLI: memory history and direct
// query logging.
func NewLocal(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	repo := memory.NewHistoryRepository(cfg.HistoryMaxLogs)
	if err := app.wireCore(ctx, repo, repo); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// OpenHistoryRepository is used by the worker, which only persists logs.
func OpenHistoryRepository(ctx context.Context, cfg config.Config) (ports.HistoryRepository, func(), error) {
	app := &App{Config: cfg}
	repo, err := app.openHistory(ctx)
	if err != nil {
		return nil, nil, err
	}
	return repo, app.Close, nil
}

func (a *App) openHistory(ctx context.Context) (ports.HistoryRepository, error) {
	if a.Config.PostgresDSN == "" {
		slog.Info("history_backend", "backend", "memory")
		return memory.NewHistoryRepository(a.Config.HistoryMaxLogs), nil
	}

	db, err := postgres.OpenDB(a.Config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.onClose(func() { closeDB(db) })

	repo := postgres.NewHistoryRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("history_backend", "backend", "postgres")
	return repo, nil
}

func (a *App) wireCore(ctx context.Context, repo ports.HistoryRepository, logger ports.QueryLogger) error {
	cfg := a.Config

	sessionCfg, err := SessionConfig(cfg)
	if err != nil {
		return err
	}

	embedder, generator, err := a.modelClients(ctx)
	if err != nil {
		return err
	}

	a.Sessions = usecase.NewSessionManager(sessionCfg, cfg.SessionIdleTTL)
	// Document rows follow the session; query logs and feedback are kept.
	a.Sessions.OnRemove(func(ctx context.Context, id string) {
		if err := repo.DeleteSessionDocuments(ctx, id); err != nil {
			slog.Warn("session_documents_cleanup_failed", "session_id", id, "error", err)
		}
	})
	a.HistoryRepo = repo
	a.Ingest = usecase.NewIngestUseCase(
		a.Sessions,
		extractor.New(),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		repo,
	)
	a.QA = usecase.NewQAEngine(a.Sessions, embedder, generator, logger, QAConfig(cfg))
	a.History = usecase.NewHistoryUseCase(repo, xlsx.NewExporter())
	return nil
}

func (a *App) modelClients(ctx context.Context) (ports.Embedder, ports.Generator, error) {
	cfg := a.Config
	executor := resilience.NewExecutor(resilience.ModelClientConfig())
	a.ModelBreakers = executor

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
		return client, client, nil
	case config.ProviderGemini, "":
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:          cfg.GeminiAPIKey,
			GenerationModel: cfg.GeminiGenModel,
			EmbeddingModel:  cfg.GeminiEmbedModel,
			Dimension:       cfg.EmbeddingDimension,
			BatchSize:       cfg.EmbeddingBatchSize,
		}, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini client: %w", err)
		}
		a.onClose(func() { _ = client.Close() })
		return client, client, nil
	default:
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "model clients", fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider))
	}
}

// SessionConfig builds a fresh flat index and chunk store per session.
func SessionConfig(cfg config.Config) (usecase.SessionConfig, error) {
	metric, err := vectorindex.ParseMetric(cfg.VectorMetric)
	if err != nil {
		return usecase.SessionConfig{}, fmt.Errorf("vector index: %w", err)
	}
	return usecase.SessionConfig{
		NewIndex: func() ports.VectorIndex { return vectorindex.NewFlat(metric) },
		NewStore: func() ports.ChunkStore { return docstore.New() },
		Score:    metric.Score,
	}, nil
}

func QAConfig(cfg config.Config) usecase.QAConfig {
	qa := usecase.DefaultQAConfig()
	qa.TopK = cfg.RAGTopK
	qa.MaxContextChars = cfg.RAGMaxContext
	qa.Answer = domain.GenerationParams{
		Temperature:     float32(cfg.GenTemperature),
		TopP:            float32(cfg.GenTopP),
		TopK:            int32(cfg.GenTopK),
		MaxOutputTokens: int32(cfg.GenMaxOutputTokens),
	}
	return qa
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		slog.Warn("postgres_close_failed", "error", err)
	}
}
