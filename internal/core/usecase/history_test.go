package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

type exporterFake struct {
	logs []domain.QueryLog
	err  error
}

func (f *exporterFake) ExportQueries(_ context.Context, logs []domain.QueryLog, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	f.logs = logs
	_, err := w.Write([]byte("xlsx"))
	return err
}

func TestSubmitFeedback(t *testing.T) {
	repo := newMemoryHistory()
	repo.logs = []domain.QueryLog{{ID: "q1", SessionID: "s1"}}
	uc := NewHistoryUseCase(repo, &exporterFake{})

	fb, err := uc.SubmitFeedback(context.Background(), "q1", 4, "  useful  ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fb.ID == "" || fb.Rating != 4 || fb.Comment != "useful" {
		t.Fatalf("unexpected feedback: %+v", fb)
	}
	if len(repo.feedback) != 1 {
		t.Fatalf("feedback not stored")
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	repo := newMemoryHistory()
	repo.logs = []domain.QueryLog{{ID: "q1"}}
	uc := NewHistoryUseCase(repo, &exporterFake{})

	for _, rating := range []int{0, 6, -1} {
		if _, err := uc.SubmitFeedback(context.Background(), "q1", rating, ""); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("rating %d: expected invalid input, got %v", rating, err)
		}
	}
	if _, err := uc.SubmitFeedback(context.Background(), " ", 3, ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank query id, got %v", err)
	}
	if _, err := uc.SubmitFeedback(context.Background(), "q404", 3, ""); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(repo.feedback) != 0 {
		t.Fatalf("invalid feedback must not be stored")
	}
}

func TestRecentQueriesClampsLimit(t *testing.T) {
	repo := newMemoryHistory()
	for i := 0; i < 60; i++ {
		repo.logs = append(repo.logs, domain.QueryLog{ID: string(rune('a' + i%26)), SessionID: "s1"})
	}
	uc := NewHistoryUseCase(repo, &exporterFake{})

	logs, err := uc.RecentQueries(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(logs) != defaultHistoryLimit {
		t.Fatalf("expected default limit %d, got %d", defaultHistoryLimit, len(logs))
	}
}

func TestExportQueries(t *testing.T) {
	repo := newMemoryHistory()
	repo.logs = []domain.QueryLog{{ID: "q1", SessionID: "s1"}, {ID: "q2", SessionID: "s2"}}
	exporter := &exporterFake{}
	uc := NewHistoryUseCase(repo, exporter)

	var buf bytes.Buffer
	if err := uc.ExportQueries(context.Background(), "s1", &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if buf.String() != "xlsx" || len(exporter.logs) != 1 || exporter.logs[0].ID != "q1" {
		t.Fatalf("unexpected export: %q %+v", buf.String(), exporter.logs)
	}

	exporter.err = errors.New("disk full")
	if err := uc.ExportQueries(context.Background(), "s1", &buf); err == nil {
		t.Fatalf("expected exporter error")
	}
}
