package ports

import (
	"context"
	"io"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

// SessionService owns the lifecycle of in-memory document sessions.
type SessionService interface {
	CreateSession(ctx context.Context) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// DocumentIngestor is the inbound contract for turning an upload into indexed chunks.
type DocumentIngestor interface {
	Ingest(ctx context.Context, sessionID, filename string, data []byte) (*domain.DocumentInfo, error)
}

// DocumentCatalog is the inbound read/maintenance model for a session's documents.
type DocumentCatalog interface {
	ListDocuments(ctx context.Context, sessionID string) ([]domain.DocumentInfo, error)
	RemoveDocument(ctx context.Context, sessionID, documentID string) error
	ClearDocuments(ctx context.Context, sessionID string) error
	DocumentPages(ctx context.Context, sessionID, documentID string) ([]domain.Page, error)
}

// QuestionAnswerer is the inbound contract for retrieval-augmented answers.
type QuestionAnswerer interface {
	Answer(ctx context.Context, sessionID, question string) (*domain.Answer, error)
	ExampleQuestions(ctx context.Context, sessionID string, count int) ([]string, error)
}

// HistoryService exposes query logs and answer feedback.
type HistoryService interface {
	SubmitFeedback(ctx context.Context, queryID string, rating int, comment string) (*domain.Feedback, error)
	RecentQueries(ctx context.Context, sessionID string, limit int) ([]domain.QueryLog, error)
	ExportQueries(ctx context.Context, sessionID string, w io.Writer) error
}
