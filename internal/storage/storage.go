// Package storage defines the response log boundary: a durable,
// append-only record of every processed turn, used for history display and
// auditing. Implementations degrade gracefully to memory when no durable
// backend is configured, with identical call contracts.
package storage

import (
	"context"

	"github.com/canvass-ai/surveyd/internal/domain"
)

// DefaultListLimit is applied when a caller requests recent records
// without a limit.
const DefaultListLimit = 100

// ResponseLog persists processed turns. Ownership of a turn transfers to
// the log on write.
type ResponseLog interface {
	// SaveTurn appends a record and returns its id.
	SaveTurn(ctx context.Context, turn *domain.PersistedTurn) (string, error)

	// ListRecent returns up to limit records, most recent first. A limit
	// of zero or less uses DefaultListLimit.
	ListRecent(ctx context.Context, limit int) ([]domain.PersistedTurn, error)

	Close() error
}
