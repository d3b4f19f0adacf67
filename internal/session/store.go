// Package session provides the per-session conversational context store.
// The store is injected into the orchestrator so a durable backend can be
// swapped in without touching orchestration logic.
package session

import (
	"github.com/canvass-ai/surveyd/internal/domain"
)

// Store is the session context abstraction. Implementations must be safe
// for concurrent use and must serialize mutation per session id: two
// concurrent Update calls on the same id never lose an update.
type Store interface {
	// Get returns a snapshot of the session, or false when absent.
	Get(id string) (*domain.SessionContext, bool)

	// Update runs mutate against the session under the store's lock,
	// creating the session first when absent, and returns a snapshot of
	// the result.
	Update(id string, mutate func(*domain.SessionContext)) *domain.SessionContext

	// Delete removes a session. Deleting an absent session is a no-op.
	Delete(id string)

	// History returns the ordered turn list for a session; empty (not an
	// error) for an unknown id.
	History(id string) []domain.Turn
}
