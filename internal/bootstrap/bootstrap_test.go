package bootstrap

import (
	"context"
	"testing"

	"github.com/kirillkom/dataroom-assistant/internal/config"
	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

func TestNewLocalWiresOllamaWithoutCredentials(t *testing.T) {
	cfg := config.Config{
		LLMProvider:    config.ProviderOllama,
		OllamaURL:      "http://127.0.0.1:1",
		ChunkSize:      1000,
		ChunkOverlap:   200,
		RAGTopK:        5,
		VectorMetric:   "l2",
		HistoryMaxLogs: 10,
	}
	app, err := NewLocal(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defer app.Close()

	sess := app.Sessions.Create()
	answer, err := app.QA.Ask(context.Background(), sess, "What is the capacity?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !answer.NoDocuments {
		t.Fatalf("expected the no-documents sentinel from an empty session")
	}

	logs, err := app.HistoryRepo.RecentQueries(context.Background(), sess.ID(), 10)
	if err != nil || len(logs) != 1 || logs[0].Status != domain.QueryNoDocuments {
		t.Fatalf("expected one logged query, got %+v (%v)", logs, err)
	}
}

func TestDeletedSessionDropsDocumentHistory(t *testing.T) {
	cfg := config.Config{
		LLMProvider:    config.ProviderOllama,
		OllamaURL:      "http://127.0.0.1:1",
		ChunkSize:      1000,
		ChunkOverlap:   200,
		RAGTopK:        5,
		VectorMetric:   "l2",
		HistoryMaxLogs: 10,
	}
	app, err := NewLocal(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	sess := app.Sessions.Create()
	info := domain.DocumentInfo{ID: "doc-1", SessionID: sess.ID(), Filename: "lease.txt", Format: domain.FormatTXT}
	if err := app.HistoryRepo.SaveDocument(ctx, info); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}

	if err := app.Sessions.DeleteSession(ctx, sess.ID()); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	docs, err := app.HistoryRepo.ListDocuments(ctx, sess.ID())
	if err != nil || len(docs) != 0 {
		t.Fatalf("expected no documents after delete, got %+v (%v)", docs, err)
	}
}

func TestNewLocalRequiresGeminiKey(t *testing.T) {
	_, err := NewLocal(context.Background(), config.Config{LLMProvider: config.ProviderGemini, VectorMetric: "l2"})
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestNewRejectsQueueWithoutPostgres(t *testing.T) {
	cfg := config.Config{
		LLMProvider:  config.ProviderOllama,
		OllamaURL:    "http://127.0.0.1:1",
		VectorMetric: "l2",
		NATSURL:      "nats://127.0.0.1:1",
	}
	app, err := New(context.Background(), cfg, "api")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if app != nil {
		t.Fatalf("no app should be returned")
	}
}

func TestSessionConfigRejectsUnknownMetric(t *testing.T) {
	if _, err := SessionConfig(config.Config{VectorMetric: "cosine"}); err == nil {
		t.Fatalf("expected error")
	}
	sc, err := SessionConfig(config.Config{VectorMetric: "ip"})
	if err != nil {
		t.Fatalf("SessionConfig() error = %v", err)
	}
	if sc.NewIndex().Len() != 0 || sc.NewStore().Len() != 0 {
		t.Fatalf("expected empty index and store")
	}
}

func TestQAConfigUsesGenerationSettings(t *testing.T) {
	qa := QAConfig(config.Config{RAGTopK: 7, RAGMaxContext: 5000, GenTemperature: 0.2, GenTopP: 0.8, GenTopK: 20, GenMaxOutputTokens: 900})
	if qa.TopK != 7 || qa.MaxContextChars != 5000 {
		t.Fatalf("unexpected retrieval settings: %+v", qa)
	}
	if qa.Answer.TopK != 20 || qa.Answer.MaxOutputTokens != 900 {
		t.Fatalf("unexpected answer params: %+v", qa.Answer)
	}
	if qa.Examples.Temperature != 0.6 {
		t.Fatalf("example params should keep their defaults: %+v", qa.Examples)
	}
}
