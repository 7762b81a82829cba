package usecase

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
)

type SessionConfig struct {
	NewIndex func() ports.VectorIndex
	NewStore func() ports.ChunkStore
	// Score maps an index distance to a display score.
	Score func(distance float64) float64
}

type sessionDocument struct {
	info     domain.DocumentInfo
	chunkIDs []string
	vectors  [][]float32
}

// Session owns one vector index and the chunk store backing it. Writers
// take the write lock; queries only read.
type Session struct {
	id        string
	cfg       SessionConfig
	createdAt time.Time
	lastUsed  atomic.Int64

	mu        sync.RWMutex
	index     ports.VectorIndex
	store     ports.ChunkStore
	docs      []sessionDocument
	dimension int
}

func NewSession(id string, cfg SessionConfig) *Session {
	if cfg.Score == nil {
		cfg.Score = func(distance float64) float64 { return 1 / (1 + distance) }
	}
	now := time.Now().UTC()
	s := &Session{
		id:        id,
		cfg:       cfg,
		createdAt: now,
		index:     cfg.NewIndex(),
		store:     cfg.NewStore(),
	}
	s.lastUsed.Store(now.UnixNano())
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UTC().UnixNano())
}

func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load()).UTC()
}

func (s *Session) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len() == 0
}

func (s *Session) Documents() []domain.DocumentInfo {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DocumentInfo, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d.info)
	}
	return out
}

// Commit adds a document's chunks and vectors as one step. A document with
// the same filename is replaced and returned. On error nothing changes.
func (s *Session) Commit(info domain.DocumentInfo, chunks []domain.Chunk, vectors [][]float32) (*domain.DocumentInfo, error) {
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "session commit", fmt.Errorf("document %s has no chunks", info.Filename))
	}
	if len(chunks) != len(vectors) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "session commit", fmt.Errorf("chunks=%d vectors=%d", len(chunks), len(vectors)))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, domain.WrapError(domain.ErrInvalidInput, "session commit", fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim))
		}
	}

	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 && s.dimension != dim {
		return nil, domain.WrapError(domain.ErrInvalidInput, "session commit", fmt.Errorf("vector dimension %d, session has %d", dim, s.dimension))
	}

	replacedAt := -1
	for i, d := range s.docs {
		if d.info.Filename == info.Filename {
			replacedAt = i
			break
		}
	}

	if replacedAt < 0 {
		doc, err := s.insert(s.index, s.store, info, chunks, vectors)
		if err != nil {
			// Partial inserts are rolled back by rebuilding from the catalog.
			if restoreErr := s.rebuildLocked(s.docs); restoreErr != nil {
				return nil, fmt.Errorf("%w; restore index: %v", err, restoreErr)
			}
			return nil, err
		}
		s.docs = append(s.docs, doc)
		s.dimension = dim
		return nil, nil
	}

	replaced := s.docs[replacedAt].info
	remaining := make([]sessionDocument, 0, len(s.docs))
	remaining = append(remaining, s.docs[:replacedAt]...)
	remaining = append(remaining, s.docs[replacedAt+1:]...)

	index, store, docs, err := s.build(remaining)
	if err != nil {
		return nil, err
	}
	doc, err := s.insert(index, store, info, chunks, vectors)
	if err != nil {
		return nil, err
	}
	s.index, s.store, s.docs = index, store, append(docs, doc)
	s.dimension = dim
	return &replaced, nil
}

func (s *Session) insert(
	index ports.VectorIndex,
	store ports.ChunkStore,
	info domain.DocumentInfo,
	chunks []domain.Chunk,
	vectors [][]float32,
) (sessionDocument, error) {
	doc := sessionDocument{
		info:     info,
		chunkIDs: make([]string, 0, len(chunks)),
		vectors:  vectors,
	}
	for i, chunk := range chunks {
		chunk.DocumentID = info.ID
		chunk.Filename = info.Filename
		id := store.Put(chunk)
		if err := index.Insert(vectors[i], id); err != nil {
			return sessionDocument{}, fmt.Errorf("index chunk %d of %s: %w", i, info.Filename, err)
		}
		doc.chunkIDs = append(doc.chunkIDs, id)
	}
	return doc, nil
}

// build replays docs into a fresh index/store pair in their original order.
func (s *Session) build(docs []sessionDocument) (ports.VectorIndex, ports.ChunkStore, []sessionDocument, error) {
	index := s.cfg.NewIndex()
	store := s.cfg.NewStore()
	rebuilt := make([]sessionDocument, 0, len(docs))

	for _, d := range docs {
		chunks := make([]domain.Chunk, 0, len(d.chunkIDs))
		for _, id := range d.chunkIDs {
			chunk, err := s.store.Get(id)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("rebuild %s: %w", d.info.Filename, err)
			}
			chunks = append(chunks, chunk)
		}
		doc, err := s.insert(index, store, d.info, chunks, d.vectors)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("rebuild %s: %w", d.info.Filename, err)
		}
		rebuilt = append(rebuilt, doc)
	}
	return index, store, rebuilt, nil
}

func (s *Session) rebuildLocked(docs []sessionDocument) error {
	index, store, rebuilt, err := s.build(docs)
	if err != nil {
		return err
	}
	s.index, s.store, s.docs = index, store, rebuilt
	if len(rebuilt) == 0 {
		s.dimension = 0
	}
	return nil
}

// RemoveDocument drops one document and rebuilds the index from the rest.
func (s *Session) RemoveDocument(documentID string) (domain.DocumentInfo, error) {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.findLocked(documentID)
	if at < 0 {
		return domain.DocumentInfo{}, domain.WrapError(domain.ErrNotFound, "remove document", fmt.Errorf("document id=%s", documentID))
	}

	removed := s.docs[at].info
	remaining := make([]sessionDocument, 0, len(s.docs)-1)
	remaining = append(remaining, s.docs[:at]...)
	remaining = append(remaining, s.docs[at+1:]...)
	if err := s.rebuildLocked(remaining); err != nil {
		return domain.DocumentInfo{}, err
	}
	return removed, nil
}

func (s *Session) Clear() {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = s.cfg.NewIndex()
	s.store = s.cfg.NewStore()
	s.docs = nil
	s.dimension = 0
}

func (s *Session) findLocked(documentID string) int {
	for i, d := range s.docs {
		if d.info.ID == documentID {
			return i
		}
	}
	return -1
}

// Search returns the k nearest chunks with their content resolved.
func (s *Session) Search(vector []float32, k int) ([]domain.RetrievedChunk, error) {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := s.index.Query(vector, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.store.Get(hit.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("resolve index entry: %w", err)
		}
		out = append(out, domain.RetrievedChunk{
			Chunk:    chunk,
			Distance: hit.Distance,
			Score:    s.cfg.Score(hit.Distance),
		})
	}
	return out, nil
}

// DocumentPages rebuilds page text from stored chunks. Chunks are grouped by
// their attributed page, so text near page breaks may land on a neighbour.
func (s *Session) DocumentPages(documentID string) ([]domain.Page, error) {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()

	at := s.findLocked(documentID)
	if at < 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "document pages", fmt.Errorf("document id=%s", documentID))
	}

	type pageText struct {
		runes   []rune
		lastEnd int
	}
	byPage := make(map[int]*pageText)
	for _, id := range s.docs[at].chunkIDs {
		chunk, err := s.store.Get(id)
		if err != nil {
			return nil, fmt.Errorf("document pages: %w", err)
		}
		text := []rune(chunk.Text)
		p, ok := byPage[chunk.PageNumber]
		switch {
		case !ok:
			byPage[chunk.PageNumber] = &pageText{runes: text, lastEnd: chunk.End}
			continue
		case chunk.Start < p.lastEnd:
			if skip := p.lastEnd - chunk.Start; skip < len(text) {
				p.runes = append(p.runes, text[skip:]...)
			}
		default:
			p.runes = append(p.runes, '\n')
			p.runes = append(p.runes, text...)
		}
		p.lastEnd = max(p.lastEnd, chunk.End)
	}

	pages := make([]domain.Page, 0, len(byPage))
	for number, p := range byPage {
		pages = append(pages, domain.Page{Number: number, Text: string(p.runes)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}
