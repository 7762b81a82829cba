package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/docstore"
	"github.com/kirillkom/dataroom-assistant/internal/infrastructure/vectorindex"
)

func testSessionConfig() SessionConfig {
	return SessionConfig{
		NewIndex: func() ports.VectorIndex { return vectorindex.NewFlat(vectorindex.MetricL2) },
		NewStore: func() ports.ChunkStore { return docstore.New() },
		Score:    vectorindex.MetricL2.Score,
	}
}

// keywordEmbedder maps text onto fixed topic axes so tests can predict
// nearest neighbours.
type keywordEmbedder struct {
	mu         sync.Mutex
	docCalls   int
	queryCalls int
	err        error
	queryErr   error
	short      bool
}

var embedderAxes = []string{"solar", "wind", "lease", "permit"}

func embedKeywords(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(embedderAxes))
	for i, axis := range embedderAxes {
		v[i] = float32(strings.Count(lower, axis))
	}
	return v
}

func (f *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.docCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, embedKeywords(t))
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queryCalls++
	f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return embedKeywords(text), nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	params  []domain.GenerationParams
	text    string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, params domain.GenerationParams) (domain.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.params = append(f.params, params)
	if f.err != nil {
		return domain.Generation{}, f.err
	}
	return domain.Generation{
		Text:  f.text,
		Usage: domain.TokenUsage{Model: "fake", PromptTokens: len(prompt) / 4, CompletionTokens: len(f.text) / 4},
	}, nil
}

type pagesExtractor struct {
	pages []domain.Page
	err   error
}

func (f *pagesExtractor) Extract(context.Context, domain.Format, []byte) ([]domain.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

// textExtractor returns the upload body as a single page.
type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, _ domain.Format, data []byte) ([]domain.Page, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, domain.WrapError(domain.ErrEmptyDocument, "extract", errors.New("no text"))
	}
	return []domain.Page{{Number: 1, Text: text}}, nil
}

// pageChunker emits one chunk per page.
type pageChunker struct{}

func (pageChunker) Split(pages []domain.Page) []domain.Chunk {
	var out []domain.Chunk
	offset := 0
	for i, p := range pages {
		n := len([]rune(p.Text))
		out = append(out, domain.Chunk{PageNumber: p.Number, Index: i, Text: p.Text, Start: offset, End: offset + n})
		offset += n + 1
	}
	return out
}

type memoryHistory struct {
	mu          sync.Mutex
	docs        map[string]domain.DocumentInfo
	logs        []domain.QueryLog
	feedback    []domain.Feedback
	err         error
	deletedDocs []string
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{docs: make(map[string]domain.DocumentInfo)}
}

func (m *memoryHistory) LogQuery(_ context.Context, entry domain.QueryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memoryHistory) SaveDocument(_ context.Context, info domain.DocumentInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[info.ID] = info
	return nil
}

func (m *memoryHistory) DeleteDocument(_ context.Context, _, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, documentID)
	m.deletedDocs = append(m.deletedDocs, documentID)
	return m.err
}

func (m *memoryHistory) DeleteSessionDocuments(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.docs {
		if d.SessionID == sessionID {
			delete(m.docs, id)
		}
	}
	return m.err
}

func (m *memoryHistory) ListDocuments(_ context.Context, sessionID string) ([]domain.DocumentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DocumentInfo
	for _, d := range m.docs {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	return out, m.err
}

func (m *memoryHistory) SaveFeedback(_ context.Context, fb domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, l := range m.logs {
		if l.ID == fb.QueryID {
			m.feedback = append(m.feedback, fb)
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "save feedback", fmt.Errorf("query id=%s", fb.QueryID))
}

func (m *memoryHistory) RecentQueries(_ context.Context, sessionID string, limit int) ([]domain.QueryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.QueryLog
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].SessionID == sessionID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}
