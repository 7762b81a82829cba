package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/dataroom-assistant/internal/config"
	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

type fakeSessions struct {
	deleted []string
}

func (f *fakeSessions) CreateSession(context.Context) (string, error) { return "s1", nil }

func (f *fakeSessions) DeleteSession(_ context.Context, id string) error {
	if id != "s1" {
		return domain.WrapError(domain.ErrNotFound, "delete session", fmt.Errorf("session id=%s", id))
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeIngestor struct {
	err      error
	filename string
	data     []byte
}

func (f *fakeIngestor) Ingest(_ context.Context, sessionID, filename string, data []byte) (*domain.DocumentInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	format, err := domain.FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	f.filename = filename
	f.data = data
	return &domain.DocumentInfo{
		ID:         "doc-1",
		SessionID:  sessionID,
		Filename:   filename,
		Format:     format,
		MimeType:   format.MimeType(),
		PageCount:  1,
		ChunkCount: 1,
		CharCount:  len(data),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

type fakeCatalog struct {
	err error
}

func (f fakeCatalog) ListDocuments(context.Context, string) ([]domain.DocumentInfo, error) {
	return []domain.DocumentInfo{{ID: "doc-1", Filename: "ppa.pdf"}}, f.err
}

func (f fakeCatalog) RemoveDocument(_ context.Context, _, documentID string) error {
	if documentID != "doc-1" {
		return domain.WrapError(domain.ErrNotFound, "remove document", errors.New(documentID))
	}
	return f.err
}

func (f fakeCatalog) ClearDocuments(context.Context, string) error { return f.err }

func (f fakeCatalog) DocumentPages(context.Context, string, string) ([]domain.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Page{{Number: 1, Text: "Solar farm lease"}}, nil
}

type fakeQA struct {
	err       error
	examples  []string
	lastCount int
}

func (f *fakeQA) Answer(_ context.Context, _, question string) (*domain.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{
		QueryID:   "q1",
		Question:  question,
		Text:      "The project is 120 MW.",
		Citations: []domain.Citation{{Filename: "ppa.pdf", PageNumber: 3, Text: "120 MW"}},
		Usage:     &domain.TokenUsage{Model: "gemini-1.5-pro", PromptTokens: 100, CompletionTokens: 10},
	}, nil
}

func (f *fakeQA) ExampleQuestions(_ context.Context, _ string, count int) ([]string, error) {
	f.lastCount = count
	return f.examples, f.err
}

type fakeHistory struct {
	err error
}

func (f fakeHistory) SubmitFeedback(_ context.Context, queryID string, rating int, comment string) (*domain.Feedback, error) {
	if f.err != nil {
		return nil, f.err
	}
	if rating < 1 || rating > 5 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit feedback", errors.New("rating"))
	}
	return &domain.Feedback{ID: "f1", QueryID: queryID, Rating: rating, Comment: comment}, nil
}

func (f fakeHistory) RecentQueries(context.Context, string, int) ([]domain.QueryLog, error) {
	return []domain.QueryLog{{ID: "q1", SessionID: "s1", Status: domain.QueryAnswered}}, f.err
}

func (f fakeHistory) ExportQueries(_ context.Context, _ string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK\x03\x04xlsx"))
	return err
}

type testRouter struct {
	handler  http.Handler
	sessions *fakeSessions
	ingest   *fakeIngestor
	qa       *fakeQA
}

func newTestRouter(cfg config.Config, mutate func(*Services)) testRouter {
	if cfg.APIMaxUploadMB == 0 {
		cfg.APIMaxUploadMB = 1
	}
	if cfg.ExampleCount == 0 {
		cfg.ExampleCount = 5
	}
	tr := testRouter{
		sessions: &fakeSessions{},
		ingest:   &fakeIngestor{},
		qa:       &fakeQA{examples: []string{"What is the capacity?"}},
	}
	services := Services{
		Sessions: tr.sessions,
		Ingest:   tr.ingest,
		Catalog:  fakeCatalog{},
		QA:       tr.qa,
		History:  fakeHistory{},
	}
	if mutate != nil {
		mutate(&services)
	}
	tr.handler = NewRouter(cfg, services, nil).Handler()
	return tr
}
