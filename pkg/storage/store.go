package storage

import (
	"context"
	"sync"
	"time"

	"tradestats/internal/stats"

	"github.com/google/uuid"
)

// Run identifies one processing pass over a trade log.
type Run struct {
	ID         uuid.UUID
	Source     string // input path
	Complete   bool   // false when the run stopped on a bad record
	FailedLine int    // 0 when Complete
	StartedAt  time.Time
}

// NewRun returns a Run with a fresh id.
func NewRun(source string) Run {
	return Run{
		ID:        uuid.New(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
}

// Store persists the per-symbol summaries of a run.
type Store interface {
	SaveSummaries(ctx context.Context, run Run, summaries []stats.Summary) error
	Close() error
}

// MemoryStore keeps summaries in memory, keyed by run id.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]Run
	rows map[uuid.UUID][]stats.Summary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[uuid.UUID]Run),
		rows: make(map[uuid.UUID][]stats.Summary),
	}
}

func (m *MemoryStore) SaveSummaries(_ context.Context, run Run, summaries []stats.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy to avoid aliasing the caller's slice
	cp := make([]stats.Summary, len(summaries))
	copy(cp, summaries)

	m.runs[run.ID] = run
	m.rows[run.ID] = cp
	return nil
}

// Get returns the run and summaries saved under id.
func (m *MemoryStore) Get(id uuid.UUID) (Run, []stats.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return Run{}, nil, false
	}
	cp := make([]stats.Summary, len(m.rows[id]))
	copy(cp, m.rows[id])
	return run, cp, true
}

// Runs returns the number of saved runs.
func (m *MemoryStore) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func (m *MemoryStore) Close() error { return nil }
