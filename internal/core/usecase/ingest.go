package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
)

const tracerName = "github.com/kirillkom/dataroom-assistant/usecase"

type IngestUseCase struct {
	sessions  *SessionManager
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	history   ports.HistoryRepository
}

func NewIngestUseCase(
	sessions *SessionManager,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	history ports.HistoryRepository,
) *IngestUseCase {
	return &IngestUseCase{
		sessions:  sessions,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		history:   history,
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, sessionID, filename string, data []byte) (*domain.DocumentInfo, error) {
	sess, err := uc.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return uc.IngestInto(ctx, sess, filename, data)
}

// IngestInto runs extract -> chunk -> embed and then commits everything to
// the session in one step, so a failure leaves the session untouched.
func (uc *IngestUseCase) IngestInto(ctx context.Context, sess *Session, filename string, data []byte) (*domain.DocumentInfo, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.document")
	defer span.End()
	start := time.Now()

	name := displayFilename(filename)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("filename is required"))
	}
	span.SetAttributes(attribute.String("document.filename", name), attribute.Int("document.bytes", len(data)))

	format, err := domain.FormatFromFilename(name)
	if err != nil {
		return nil, err
	}

	pages, err := uc.extractor.Extract(ctx, format, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}

	chunks := uc.chunker.Split(pages)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyDocument, "chunk "+name, errors.New("no chunks produced"))
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := uc.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, asEmbeddingError("embed chunks of "+name, err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "embed chunks of "+name, fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)))
	}

	info := domain.DocumentInfo{
		ID:         uuid.NewString(),
		SessionID:  sess.ID(),
		Filename:   name,
		Format:     format,
		MimeType:   format.MimeType(),
		PageCount:  len(pages),
		ChunkCount: len(chunks),
		CharCount:  countRunes(pages),
		CreatedAt:  time.Now().UTC(),
	}
	replaced, err := sess.Commit(info, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", name, err)
	}

	if replaced != nil {
		uc.forgetDocument(ctx, sess.ID(), replaced.ID)
	}
	uc.recordDocument(ctx, info)

	span.SetAttributes(attribute.Int("document.pages", len(pages)), attribute.Int("document.chunks", len(chunks)))
	slog.Info("document_ingested",
		"session_id", sess.ID(),
		"document_id", info.ID,
		"filename", name,
		"format", string(format),
		"pages", info.PageCount,
		"chunks", info.ChunkCount,
		"replaced", replaced != nil,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return &info, nil
}

func (uc *IngestUseCase) ListDocuments(_ context.Context, sessionID string) ([]domain.DocumentInfo, error) {
	sess, err := uc.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Documents(), nil
}

func (uc *IngestUseCase) RemoveDocument(ctx context.Context, sessionID, documentID string) error {
	sess, err := uc.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if _, err := sess.RemoveDocument(documentID); err != nil {
		return err
	}
	uc.forgetDocument(ctx, sessionID, documentID)
	return nil
}

func (uc *IngestUseCase) ClearDocuments(ctx context.Context, sessionID string) error {
	sess, err := uc.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	sess.Clear()

	if uc.history != nil {
		if err := uc.history.DeleteSessionDocuments(context.WithoutCancel(ctx), sessionID); err != nil {
			slog.Warn("history_clear_failed", "session_id", sessionID, "error", err)
		}
	}
	return nil
}

func (uc *IngestUseCase) DocumentPages(_ context.Context, sessionID, documentID string) ([]domain.Page, error) {
	sess, err := uc.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.DocumentPages(documentID)
}

func (uc *IngestUseCase) recordDocument(ctx context.Context, info domain.DocumentInfo) {
	if uc.history == nil {
		return
	}
	if err := uc.history.SaveDocument(context.WithoutCancel(ctx), info); err != nil {
		slog.Warn("history_save_document_failed", "session_id", info.SessionID, "document_id", info.ID, "error", err)
	}
}

func (uc *IngestUseCase) forgetDocument(ctx context.Context, sessionID, documentID string) {
	if uc.history == nil {
		return
	}
	if err := uc.history.DeleteDocument(context.WithoutCancel(ctx), sessionID, documentID); err != nil {
		slog.Warn("history_delete_document_failed", "session_id", sessionID, "document_id", documentID, "error", err)
	}
}

func displayFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func countRunes(pages []domain.Page) int {
	total := 0
	for _, p := range pages {
		total += utf8.RuneCountInString(p.Text)
	}
	return total
}

func asEmbeddingError(operation string, err error) error {
	if domain.IsKind(err, domain.ErrEmbeddingService) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.WrapError(domain.ErrEmbeddingService, operation, err)
}
