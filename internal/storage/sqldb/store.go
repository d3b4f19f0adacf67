// Package sqldb is the SQLite-backed response log.
package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/storage"
)

// Store is a SQL implementation of ResponseLog.
type Store struct {
	db *sqlx.DB
}

var _ storage.ResponseLog = (*Store)(nil)

// New opens (or creates) the SQLite database at path and initializes the
// schema.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS responses (
id TEXT PRIMARY KEY,
session_id TEXT NOT NULL,
domain TEXT NOT NULL,
region TEXT NOT NULL,
question TEXT NOT NULL,
response TEXT NOT NULL,
elapsed REAL NOT NULL,
status TEXT NOT NULL,
created_at TIMESTAMP NOT NULL
)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_responses_created_at ON responses(created_at DESC)`)
	return err
}

type responseRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	Domain    string    `db:"domain"`
	Region    string    `db:"region"`
	Question  string    `db:"question"`
	Response  string    `db:"response"`
	Elapsed   float64   `db:"elapsed"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Store) SaveTurn(ctx context.Context, turn *domain.PersistedTurn) (string, error) {
	id := turn.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	encoded, err := json.Marshal(turn.Response)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}

	_, err = s.db.NamedExecContext(ctx, `INSERT INTO responses
(id, session_id, domain, region, question, response, elapsed, status, created_at)
VALUES (:id, :session_id, :domain, :region, :question, :response, :elapsed, :status, :created_at)`,
		&responseRow{
			ID:        id,
			SessionID: turn.SessionID,
			Domain:    turn.Domain,
			Region:    turn.Region,
			Question:  turn.Question,
			Response:  string(encoded),
			Elapsed:   turn.Elapsed,
			Status:    string(turn.Status),
			CreatedAt: ts,
		})
	if err != nil {
		return "", fmt.Errorf("failed to insert turn: %w", err)
	}
	return id, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.PersistedTurn, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	var rows []responseRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, session_id, domain, region, question, response, elapsed, status, created_at
FROM responses ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	out := make([]domain.PersistedTurn, 0, len(rows))
	for _, row := range rows {
		var response domain.StructuredResponse
		if err := json.Unmarshal([]byte(row.Response), &response); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response %s: %w", row.ID, err)
		}
		out = append(out, domain.PersistedTurn{
			ID:        row.ID,
			SessionID: row.SessionID,
			Domain:    row.Domain,
			Region:    row.Region,
			Question:  row.Question,
			Response:  response,
			Elapsed:   row.Elapsed,
			Status:    domain.Status(row.Status),
			Timestamp: row.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
