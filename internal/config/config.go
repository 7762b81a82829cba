package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

type Config struct {
	APIPort  string
	LogLevel string

	LLMProvider string

	GeminiAPIKey       string
	GeminiGenModel     string
	GeminiEmbedModel   string
	EmbeddingDimension int
	EmbeddingBatchSize int

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	PostgresDSN    string
	HistoryMaxLogs int

	NATSURL     string
	NATSSubject string

	ChunkSize      int
	ChunkOverlap   int
	RAGTopK        int
	RAGMaxContext  int
	VectorMetric   string
	SessionIdleTTL time.Duration
	ExampleCount   int

	GenTemperature     float64
	GenTopP            float64
	GenTopK            int
	GenMaxOutputTokens int

	APIAuthToken          string
	APIMaxUploadMB        int
	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int

	OTelEndpoint    string
	OTelSampleRatio float64

	WorkerMetricsPort string
}

// Load reads an optional .env file, then the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		LLMProvider: strings.ToLower(mustEnv("LLM_PROVIDER", ProviderGemini)),

		GeminiAPIKey:       mustEnv("GEMINI_API_KEY", ""),
		GeminiGenModel:     mustEnv("GEMINI_GEN_MODEL", "gemini-1.5-pro"),
		GeminiEmbedModel:   mustEnv("GEMINI_EMBED_MODEL", "models/embedding-001"),
		EmbeddingDimension: mustEnvInt("EMBEDDING_DIMENSION", 768),
		EmbeddingBatchSize: mustEnvInt("EMBEDDING_BATCH_SIZE", 100),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		PostgresDSN:    mustEnv("POSTGRES_DSN", ""),
		HistoryMaxLogs: mustEnvInt("HISTORY_MAX_LOGS", 10000),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "dataroom.query_logs"),

		ChunkSize:      mustEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   mustEnvInt("CHUNK_OVERLAP", 200),
		RAGTopK:        mustEnvInt("RAG_TOP_K", 5),
		RAGMaxContext:  mustEnvInt("RAG_MAX_CONTEXT_CHARS", 12000),
		VectorMetric:   mustEnv("VECTOR_METRIC", "l2"),
		SessionIdleTTL: time.Duration(mustEnvInt("SESSION_IDLE_TTL_MINUTES", 120)) * time.Minute,
		ExampleCount:   mustEnvInt("EXAMPLE_QUESTION_COUNT", 5),

		GenTemperature:     mustEnvFloat("GEN_TEMPERATURE", 0.4),
		GenTopP:            mustEnvFloat("GEN_TOP_P", 0.9),
		GenTopK:            mustEnvInt("GEN_TOP_K", 40),
		GenMaxOutputTokens: mustEnvInt("GEN_MAX_OUTPUT_TOKENS", 2000),

		APIAuthToken:          mustEnv("API_AUTH_TOKEN", ""),
		APIMaxUploadMB:        mustEnvInt("API_MAX_UPLOAD_MB", 50),
		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),

		OTelEndpoint:    mustEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio: mustEnvFloat("OTEL_SAMPLE_RATIO", 1),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// ValidateChunking checks the settings needed to split text.
func (c Config) ValidateChunking() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	return errors.Join(errs...)
}

// Validate checks everything a process talking to the model needs.
func (c Config) Validate() error {
	errs := []error{c.ValidateChunking()}

	switch c.LLMProvider {
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini"))
		}
	case ProviderOllama:
		if strings.TrimSpace(c.OllamaURL) == "" {
			errs = append(errs, errors.New("OLLAMA_URL is required when LLM_PROVIDER=ollama"))
		}
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be gemini or ollama, got %q", c.LLMProvider))
	}

	if c.RAGTopK <= 0 {
		errs = append(errs, fmt.Errorf("RAG_TOP_K must be positive, got %d", c.RAGTopK))
	}
	switch strings.ToLower(c.VectorMetric) {
	case "l2", "ip":
	default:
		errs = append(errs, fmt.Errorf("VECTOR_METRIC must be l2 or ip, got %q", c.VectorMetric))
	}
	if c.GenTemperature < 0 || c.GenTemperature > 2 {
		errs = append(errs, fmt.Errorf("GEN_TEMPERATURE must be in [0, 2], got %v", c.GenTemperature))
	}
	if c.GenTopP <= 0 || c.GenTopP > 1 {
		errs = append(errs, fmt.Errorf("GEN_TOP_P must be in (0, 1], got %v", c.GenTopP))
	}
	if c.NATSURL != "" && c.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required when NATS_URL is set: the worker persists query logs there"))
	}
	if c.APIMaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("API_MAX_UPLOAD_MB must be positive, got %d", c.APIMaxUploadMB))
	}
	return errors.Join(errs...)
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.APIMaxUploadMB) << 20
}

func (c Config) BackpressureWait() time.Duration {
	return time.Duration(c.APIBackpressureWaitMS) * time.Millisecond
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
