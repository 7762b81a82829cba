package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/resilience"
)

const (
	DefaultGenerationModel = "gemini-1.5-pro"
	DefaultEmbeddingModel  = "models/embedding-001"
	DefaultDimension       = 768
	// MaxBatchSize is the API limit for one batchEmbedContents call.
	MaxBatchSize = 100

	tracerName = "github.com/kirillkom/dataroom-assistant/gemini"
)

type Config struct {
	APIKey          string
	GenerationModel string
	EmbeddingModel  string
	Dimension       int
	BatchSize       int
}

func (c Config) normalize() Config {
	if strings.TrimSpace(c.GenerationModel) == "" {
		c.GenerationModel = DefaultGenerationModel
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.Dimension < 0 {
		c.Dimension = 0
	}
	if c.BatchSize <= 0 || c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	return c
}

// backend is the slice of the SDK the client needs.
type backend interface {
	embed(ctx context.Context, model string, task genai.TaskType, texts []string) ([][]float32, error)
	generate(ctx context.Context, model, prompt string, params domain.GenerationParams) (*genai.GenerateContentResponse, error)
	close() error
}

// Client implements both the embedder and the generator on one SDK client.
type Client struct {
	cfg      Config
	backend  backend
	executor *resilience.Executor
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "gemini client", errors.New("GEMINI_API_KEY is not set"))
	}
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newWithBackend(cfg, &sdkBackend{client: sdk}, executor), nil
}

func newWithBackend(cfg Config, b backend, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.ModelClientConfig())
	}
	return &Client{cfg: cfg.normalize(), backend: b, executor: executor}
}

func (c *Client) Close() error {
	return c.backend.close()
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gemini.embed_documents")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.cfg.EmbeddingModel),
		attribute.Int("gemini.texts", len(texts)),
	)

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))
		vectors, err := c.embedBatch(ctx, genai.TaskTypeRetrievalDocument, texts[start:end])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "embed failed")
			return nil, err
		}
		out = append(out, vectors...)
	}
	span.SetAttributes(attribute.Int("gemini.batches", (len(texts)+c.cfg.BatchSize-1)/c.cfg.BatchSize))
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gemini.embed_query")
	defer span.End()

	vectors, err := c.embedBatch(ctx, genai.TaskTypeRetrievalQuery, []string{text})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed failed")
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, task genai.TaskType, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := c.executor.Execute(ctx, "gemini.embed", func(callCtx context.Context) error {
		var err error
		vectors, err = c.backend.embed(callCtx, c.cfg.EmbeddingModel, task, texts)
		return classifyRemote(err)
	}, resilience.ClassifyDomainError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "gemini embed", err)
	}

	if len(vectors) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "gemini embed",
			fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)))
	}
	for i, v := range vectors {
		if len(v) == 0 || (c.cfg.Dimension > 0 && len(v) != c.cfg.Dimension) {
			return nil, domain.WrapError(domain.ErrEmbeddingService, "gemini embed",
				fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), c.cfg.Dimension))
		}
	}
	return vectors, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (domain.Generation, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.cfg.GenerationModel),
		attribute.Int("gemini.prompt_chars", len(prompt)),
		attribute.Int("gemini.max_output_tokens", int(params.MaxOutputTokens)),
	)

	var resp *genai.GenerateContentResponse
	err := c.executor.Execute(ctx, "gemini.generate", func(callCtx context.Context) error {
		var err error
		resp, err = c.backend.generate(callCtx, c.cfg.GenerationModel, prompt, params)
		return classifyRemote(err)
	}, resilience.ClassifyDomainError)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return domain.Generation{}, domain.WrapError(domain.ErrAPI, "gemini generate", err)
	}

	text, err := responseText(resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty response")
		return domain.Generation{}, domain.WrapError(domain.ErrAPI, "gemini generate", err)
	}

	gen := domain.Generation{Text: text, Usage: domain.TokenUsage{Model: c.cfg.GenerationModel}}
	if resp.UsageMetadata != nil {
		gen.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		gen.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	span.SetAttributes(
		attribute.Int("gemini.prompt_tokens", gen.Usage.PromptTokens),
		attribute.Int("gemini.completion_tokens", gen.Usage.CompletionTokens),
	)
	return gen, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil {
			return "", fmt.Errorf("prompt blocked: %v", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("no candidates in response")
	}

	var b strings.Builder
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("empty candidate (finish reason %s)", candidate.FinishReason)
	}
	return text, nil
}

type sdkBackend struct {
	client *genai.Client
}

func (b *sdkBackend) embed(ctx context.Context, model string, task genai.TaskType, texts []string) ([][]float32, error) {
	em := b.client.EmbeddingModel(model)
	em.TaskType = task

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, e.Values)
	}
	return out, nil
}

func (b *sdkBackend) generate(ctx context.Context, model, prompt string, params domain.GenerationParams) (*genai.GenerateContentResponse, error) {
	gm := b.client.GenerativeModel(model)
	gm.SetTemperature(params.Temperature)
	gm.SetTopP(params.TopP)
	gm.SetTopK(params.TopK)
	gm.SetMaxOutputTokens(params.MaxOutputTokens)
	return gm.GenerateContent(ctx, genai.Text(prompt))
}

func (b *sdkBackend) close() error {
	return b.client.Close()
}
