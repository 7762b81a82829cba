package mcp

import (
	"context"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

type mockIngestor struct {
	sessionID string
	filename  string
	data      []byte
	err       error
}

func (m *mockIngestor) Ingest(_ context.Context, sessionID, filename string, data []byte) (*domain.DocumentInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sessionID, m.filename, m.data = sessionID, filename, data
	return &domain.DocumentInfo{ID: "doc-1", SessionID: sessionID, Filename: filename, Format: domain.FormatTXT, PageCount: 1, ChunkCount: 2}, nil
}

type mockCatalog struct {
	docs    []domain.DocumentInfo
	removed []string
	err     error
}

func (m *mockCatalog) ListDocuments(context.Context, string) ([]domain.DocumentInfo, error) {
	return m.docs, m.err
}

func (m *mockCatalog) RemoveDocument(_ context.Context, _, documentID string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, documentID)
	return nil
}

func (m *mockCatalog) ClearDocuments(context.Context, string) error { return m.err }

func (m *mockCatalog) DocumentPages(context.Context, string, string) ([]domain.Page, error) {
	return nil, m.err
}

type mockAnswerer struct {
	answer    *domain.Answer
	questions []string
	lastCount int
	err       error
}

func (m *mockAnswerer) Answer(context.Context, string, string) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockAnswerer) ExampleQuestions(_ context.Context, _ string, count int) ([]string, error) {
	m.lastCount = count
	return m.questions, m.err
}

func validPorts() (*Ports, *mockIngestor, *mockCatalog, *mockAnswerer) {
	ingest := &mockIngestor{}
	catalog := &mockCatalog{}
	qa := &mockAnswerer{}
	return &Ports{SessionID: "s1", Ingest: ingest, Catalog: catalog, QA: qa}, ingest, catalog, qa
}
