package ports

import (
	"context"
	"io"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

// TextExtractor turns raw upload bytes into cleaned page text.
type TextExtractor interface {
	Extract(ctx context.Context, format domain.Format, data []byte) ([]domain.Page, error)
}

// Chunker splits page text into overlapping chunks with page attribution.
type Chunker interface {
	Split(pages []domain.Page) []domain.Chunk
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex maps vectors to chunk ids. It never stores chunk content.
type VectorIndex interface {
	Insert(vector []float32, chunkID string) error
	Query(vector []float32, k int) ([]domain.IndexHit, error)
	Len() int
}

// ChunkStore owns chunk content keyed by generated identifiers.
type ChunkStore interface {
	Put(chunk domain.Chunk) string
	Get(id string) (domain.Chunk, error)
	Len() int
}

// Generator submits a prompt to the hosted model and returns raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string, params domain.GenerationParams) (domain.Generation, error)
}

// QueryLogger records the outcome of every question.
type QueryLogger interface {
	LogQuery(ctx context.Context, entry domain.QueryLog) error
}

// QueryLogSubscriber consumes query logs published by the API.
type QueryLogSubscriber interface {
	SubscribeQueryLogs(ctx context.Context, handler func(context.Context, domain.QueryLog) error) error
}

// HistoryRepository persists document metadata, query logs and feedback.
type HistoryRepository interface {
	QueryLogger

	SaveDocument(ctx context.Context, info domain.DocumentInfo) error
	DeleteDocument(ctx context.Context, sessionID, documentID string) error
	DeleteSessionDocuments(ctx context.Context, sessionID string) error
	ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentInfo, error)

	SaveFeedback(ctx context.Context, fb domain.Feedback) error
	RecentQueries(ctx context.Context, sessionID string, limit int) ([]domain.QueryLog, error)
}

// HistoryExporter renders query logs into a downloadable report.
type HistoryExporter interface {
	ExportQueries(ctx context.Context, logs []domain.QueryLog, w io.Writer) error
}
