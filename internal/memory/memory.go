// Package memory implements SessionMemory: the bounded action-history view
// the DecisionOracle consults for its last-5 prompt context. A ring-buffer
// HistoryStore is the default; internal/memory/pgstore.go adds an optional
// Postgres-backed implementation for multi-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kestrel-run/pilot/api/schemas"
)

// Entry is one recorded step in a session's history.
type Entry struct {
	Step      int
	Action    schemas.Action
	Outcome   schemas.Outcome
	Summary   string
	Timestamp time.Time
}

// HistoryStore is the core's only persistence dependency: append one
// entry, read back the most recent n.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, entry Entry) error
	Recent(ctx context.Context, sessionID string, n int) ([]Entry, error)
}

// RingStore is the default in-process HistoryStore: a fixed-capacity ring
// buffer per session, with no external dependency.
type RingStore struct {
	mu       sync.Mutex
	capacity int
	buffers  map[string][]Entry
}

// NewRingStore returns a RingStore capping each session's history at
// capacity entries.
func NewRingStore(capacity int) *RingStore {
	if capacity <= 0 {
		capacity = 50
	}
	return &RingStore{capacity: capacity, buffers: make(map[string][]Entry)}
}

// Append implements HistoryStore.
func (r *RingStore) Append(ctx context.Context, sessionID string, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := r.buffers[sessionID]
	buf = append(buf, entry)
	if len(buf) > r.capacity {
		buf = buf[len(buf)-r.capacity:]
	}
	r.buffers[sessionID] = buf
	return nil
}

// Recent implements HistoryStore: the last n entries, oldest first.
func (r *RingStore) Recent(ctx context.Context, sessionID string, n int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := r.buffers[sessionID]
	if n <= 0 || n > len(buf) {
		n = len(buf)
	}
	out := make([]Entry, n)
	copy(out, buf[len(buf)-n:])
	return out, nil
}
