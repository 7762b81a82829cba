package docstore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

// Store is an in-memory chunk lookup table that backs a vector index.
type Store struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	newID  func() string
}

func New() *Store {
	return &Store{
		chunks: make(map[string]domain.Chunk),
		newID:  uuid.NewString,
	}
}

// Put stores the chunk under a freshly generated id and returns it.
func (s *Store) Put(chunk domain.Chunk) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	chunk.ID = id
	s.chunks[id] = chunk
	return id
}

func (s *Store) Get(id string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, domain.WrapError(domain.ErrNotFound, "docstore get", fmt.Errorf("chunk id=%s", id))
	}
	return chunk, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
