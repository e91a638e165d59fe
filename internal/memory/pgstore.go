package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore is the optional Postgres-backed HistoryStore, for deployments
// that run the controller across multiple processes sharing one session.
type PGStore struct {
	pool DBPool
}

// NewPGStore verifies connectivity and returns a PGStore.
func NewPGStore(ctx context.Context, pool DBPool) (*PGStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

const insertHistorySQL = `
INSERT INTO session_history (session_id, step, action, outcome, summary, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

// Append implements HistoryStore.
func (s *PGStore) Append(ctx context.Context, sessionID string, entry Entry) error {
	actionJSON, err := json.Marshal(entry.Action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	outcomeJSON, err := json.Marshal(entry.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx, insertHistorySQL, sessionID, entry.Step, actionJSON, outcomeJSON, entry.Summary, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

const recentHistorySQL = `
SELECT step, action, outcome, summary, recorded_at
FROM session_history
WHERE session_id = $1
ORDER BY step DESC
LIMIT $2
`

// Recent implements HistoryStore: the last n entries for sessionID,
// re-ordered oldest first to match RingStore's contract.
func (s *PGStore) Recent(ctx context.Context, sessionID string, n int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, recentHistorySQL, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                        Entry
			actionJSON, outcomeJSON []byte
		)
		if err := rows.Scan(&e.Step, &actionJSON, &outcomeJSON, &e.Summary, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal(actionJSON, &e.Action); err != nil {
			return nil, fmt.Errorf("unmarshal action: %w", err)
		}
		if err := json.Unmarshal(outcomeJSON, &e.Outcome); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
