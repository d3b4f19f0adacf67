package session

import (
	"sync"
	"time"

	"github.com/canvass-ai/surveyd/internal/domain"
)

// MemoryStore is the in-memory Store implementation. Session state is
// ephemeral per-process; only final turn records are durable (in the
// response log).
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.SessionContext

	maxTurns int
	maxAge   time.Duration
	now      func() time.Time
}

// Option configures the store.
type Option func(*MemoryStore)

// WithMaxTurns caps a session's history length; the oldest turns are
// dropped once the cap is exceeded. Zero disables the cap.
func WithMaxTurns(n int) Option {
	return func(s *MemoryStore) {
		s.maxTurns = n
	}
}

// WithMaxAge evicts sessions idle for longer than d. Zero disables
// eviction.
func WithMaxAge(d time.Duration) Option {
	return func(s *MemoryStore) {
		s.maxAge = d
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*domain.SessionContext),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(id string) (*domain.SessionContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.sessions[id]
	if !ok || s.expired(ctx) {
		return nil, false
	}
	return snapshot(ctx), true
}

func (s *MemoryStore) Update(id string, mutate func(*domain.SessionContext)) *domain.SessionContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.sessions[id]
	if !ok || s.expired(ctx) {
		ctx = &domain.SessionContext{
			ID:        id,
			Extra:     make(map[string]any),
			CreatedAt: s.now(),
		}
		s.sessions[id] = ctx
	}

	mutate(ctx)
	ctx.UpdatedAt = s.now()

	if s.maxTurns > 0 && len(ctx.History) > s.maxTurns {
		ctx.History = ctx.History[len(ctx.History)-s.maxTurns:]
	}

	return snapshot(ctx)
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *MemoryStore) History(id string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.sessions[id]
	if !ok || s.expired(ctx) {
		return nil
	}
	history := make([]domain.Turn, len(ctx.History))
	copy(history, ctx.History)
	return history
}

// Sweep removes all expired sessions and returns how many were evicted.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, ctx := range s.sessions {
		if s.expired(ctx) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(ctx *domain.SessionContext) bool {
	return s.maxAge > 0 && s.now().Sub(ctx.UpdatedAt) > s.maxAge
}

// snapshot copies the session so callers never share the stored history
// slice or extra map. Turns are immutable once appended, so the entries
// themselves are not deep-copied.
func snapshot(ctx *domain.SessionContext) *domain.SessionContext {
	out := *ctx
	out.History = make([]domain.Turn, len(ctx.History))
	copy(out.History, ctx.History)
	out.Extra = make(map[string]any, len(ctx.Extra))
	for k, v := range ctx.Extra {
		out.Extra[k] = v
	}
	return &out
}
