package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

// SessionManager is the registry of live sessions. It replaces any notion
// of a process-wide "current" index.
type SessionManager struct {
	cfg     SessionConfig
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	onRemove func(ctx context.Context, id string)
}

func NewSessionManager(cfg SessionConfig, idleTTL time.Duration) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// OnRemove registers fn to run after a session is deleted or evicted. It is
// called outside the registry lock.
func (m *SessionManager) OnRemove(fn func(ctx context.Context, id string)) {
	m.mu.Lock()
	m.onRemove = fn
	m.mu.Unlock()
}

func (m *SessionManager) Create() *Session {
	s := NewSession(uuid.NewString(), m.cfg)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

func (m *SessionManager) CreateSession(context.Context) (string, error) {
	return m.Create().ID(), nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", fmt.Errorf("session id=%s", id))
	}
	return s, nil
}

func (m *SessionManager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return domain.WrapError(domain.ErrNotFound, "delete session", fmt.Errorf("session id=%s", id))
	}
	delete(m.sessions, id)
	onRemove := m.onRemove
	m.mu.Unlock()

	if onRemove != nil {
		onRemove(ctx, id)
	}
	return nil
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle longer than the configured TTL and returns
// their ids. A non-positive TTL disables eviction.
func (m *SessionManager) Sweep(now time.Time) []string {
	if m.idleTTL <= 0 {
		return nil
	}

	m.mu.Lock()
	var evicted []string
	for id, s := range m.sessions {
		if now.Sub(s.LastUsed()) > m.idleTTL {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	onRemove := m.onRemove
	m.mu.Unlock()

	if onRemove != nil {
		for _, id := range evicted {
			onRemove(context.Background(), id)
		}
	}
	return evicted
}

// RunJanitor sweeps on every tick until ctx is done.
func (m *SessionManager) RunJanitor(ctx context.Context, every time.Duration) {
	if m.idleTTL <= 0 || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if evicted := m.Sweep(now); len(evicted) > 0 {
				slog.Info("sessions_evicted", "count", len(evicted), "remaining", m.Len())
			}
		}
	}
}
