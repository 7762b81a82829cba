package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	exportHistoryLimit  = 10000
)

type HistoryUseCase struct {
	repo     ports.HistoryRepository
	exporter ports.HistoryExporter
}

func NewHistoryUseCase(repo ports.HistoryRepository, exporter ports.HistoryExporter) *HistoryUseCase {
	return &HistoryUseCase{repo: repo, exporter: exporter}
}

func (uc *HistoryUseCase) SubmitFeedback(ctx context.Context, queryID string, rating int, comment string) (*domain.Feedback, error) {
	queryID = strings.TrimSpace(queryID)
	if queryID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit feedback", fmt.Errorf("query_id is required"))
	}
	if rating < domain.MinFeedbackRating || rating > domain.MaxFeedbackRating {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit feedback",
			fmt.Errorf("rating must be between %d and %d, got %d", domain.MinFeedbackRating, domain.MaxFeedbackRating, rating))
	}

	fb := domain.Feedback{
		ID:        uuid.NewString(),
		QueryID:   queryID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.repo.SaveFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("save feedback: %w", err)
	}
	return &fb, nil
}

func (uc *HistoryUseCase) RecentQueries(ctx context.Context, sessionID string, limit int) ([]domain.QueryLog, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	logs, err := uc.repo.RecentQueries(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent queries: %w", err)
	}
	return logs, nil
}

func (uc *HistoryUseCase) ExportQueries(ctx context.Context, sessionID string, w io.Writer) error {
	logs, err := uc.repo.RecentQueries(ctx, sessionID, exportHistoryLimit)
	if err != nil {
		return fmt.Errorf("export queries: %w", err)
	}
	if err := uc.exporter.ExportQueries(ctx, logs, w); err != nil {
		return fmt.Errorf("export queries: %w", err)
	}
	return nil
}
