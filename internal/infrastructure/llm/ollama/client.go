package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/resilience"
)

const tracerName = "github.com/kirillkom/dataroom-assistant/ollama"

// Client talks to a local Ollama server. It serves as both embedder and
// generator when LLM_PROVIDER=ollama.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.ModelClientConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ollama.embed")
	defer span.End()
	span.SetAttributes(attribute.String("ollama.model", c.embedModel), attribute.Int("ollama.texts", len(texts)))

	request := map[string]any{
		"model": c.embedModel,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		span.RecordError(err)
		return nil, domain.WrapError(domain.ErrEmbeddingService, "ollama embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "ollama embed",
			fmt.Errorf("got %d vectors for %d texts", len(response.Embeddings), len(texts)))
	}
	return response.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (domain.Generation, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ollama.generate")
	defer span.End()
	span.SetAttributes(attribute.String("ollama.model", c.genModel), attribute.Int("ollama.prompt_chars", len(prompt)))

	request := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": params.Temperature,
			"top_p":       params.TopP,
			"top_k":       params.TopK,
			"num_predict": params.MaxOutputTokens,
		},
	}
	var response struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := c.call(ctx, "/api/generate", request, &response, "generate"); err != nil {
		span.RecordError(err)
		return domain.Generation{}, domain.WrapError(domain.ErrAPI, "ollama generate", err)
	}

	text := strings.TrimSpace(response.Response)
	if text == "" {
		return domain.Generation{}, domain.WrapError(domain.ErrAPI, "ollama generate", fmt.Errorf("empty response"))
	}
	return domain.Generation{
		Text: text,
		Usage: domain.TokenUsage{
			Model:            c.genModel,
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
		},
	}, nil
}

func (c *Client) call(ctx context.Context, path string, payload any, out any, operation string) error {
	err := c.executor.Execute(ctx, "ollama."+operation, func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}, classifyOllamaError)
	return wrapTemporaryIfNeeded("ollama "+operation, err)
}
