// Package memory is the in-memory response log used when no durable
// backend is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/storage"
)

// Store is an in-memory implementation of ResponseLog.
type Store struct {
	mu    sync.RWMutex
	turns []domain.PersistedTurn
}

var _ storage.ResponseLog = (*Store)(nil)

// New creates a new in-memory response log.
func New() *Store {
	return &Store{}
}

func (s *Store) SaveTurn(ctx context.Context, turn *domain.PersistedTurn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := *turn
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	s.turns = append(s.turns, record)
	return record.ID, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.PersistedTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	if limit > len(s.turns) {
		limit = len(s.turns)
	}

	out := make([]domain.PersistedTurn, 0, limit)
	for i := len(s.turns) - 1; i >= len(s.turns)-limit; i-- {
		out = append(out, s.turns[i])
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
