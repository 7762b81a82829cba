// Package memory keeps query history in process memory. It backs the API
// when no database is configured and the CLI.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

const defaultMaxLogs = 10000

type HistoryRepository struct {
	mu       sync.RWMutex
	maxLogs  int
	docs     map[string]domain.DocumentInfo
	logs     []domain.QueryLog
	logIndex map[string]struct{}
	feedback []domain.Feedback
}

// NewHistoryRepository keeps at most maxLogs query logs, dropping the oldest.
func NewHistoryRepository(maxLogs int) *HistoryRepository {
	if maxLogs <= 0 {
		maxLogs = defaultMaxLogs
	}
	return &HistoryRepository{
		maxLogs:  maxLogs,
		docs:     make(map[string]domain.DocumentInfo),
		logIndex: make(map[string]struct{}),
	}
}

func (r *HistoryRepository) LogQuery(_ context.Context, entry domain.QueryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.logIndex[entry.ID]; ok {
		return nil
	}
	r.logs = append(r.logs, entry)
	r.logIndex[entry.ID] = struct{}{}

	if over := len(r.logs) - r.maxLogs; over > 0 {
		for _, old := range r.logs[:over] {
			delete(r.logIndex, old.ID)
		}
		r.logs = append([]domain.QueryLog(nil), r.logs[over:]...)
	}
	return nil
}

func (r *HistoryRepository) SaveDocument(_ context.Context, info domain.DocumentInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[info.ID] = info
	return nil
}

func (r *HistoryRepository) DeleteDocument(_ context.Context, sessionID, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.docs[documentID]
	if !ok || info.SessionID != sessionID {
		return domain.WrapError(domain.ErrNotFound, "delete document", fmt.Errorf("document id=%s", documentID))
	}
	delete(r.docs, documentID)
	return nil
}

func (r *HistoryRepository) DeleteSessionDocuments(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, info := range r.docs {
		if info.SessionID == sessionID {
			delete(r.docs, id)
		}
	}
	return nil
}

func (r *HistoryRepository) ListDocuments(_ context.Context, sessionID string) ([]domain.DocumentInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DocumentInfo, 0)
	for _, info := range r.docs {
		if info.SessionID == sessionID {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *HistoryRepository) SaveFeedback(_ context.Context, fb domain.Feedback) error {
	if fb.Rating < domain.MinFeedbackRating || fb.Rating > domain.MaxFeedbackRating {
		return domain.WrapError(domain.ErrInvalidInput, "save feedback", fmt.Errorf("rating %d out of range", fb.Rating))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logIndex[fb.QueryID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "save feedback", fmt.Errorf("query id=%s", fb.QueryID))
	}
	r.feedback = append(r.feedback, fb)
	return nil
}

// RecentQueries returns newest first.
func (r *HistoryRepository) RecentQueries(_ context.Context, sessionID string, limit int) ([]domain.QueryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.QueryLog, 0)
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.logs[i].SessionID == sessionID {
			out = append(out, r.logs[i])
		}
	}
	return out, nil
}

func (r *HistoryRepository) Feedback(queryID string) []domain.Feedback {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Feedback
	for _, fb := range r.feedback {
		if fb.QueryID == queryID {
			out = append(out, fb)
		}
	}
	return out
}
