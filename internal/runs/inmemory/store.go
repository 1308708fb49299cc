package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/finance-reports/internal/runs"
)

// Store is an in-memory implementation of runs.Store.
// It is safe for concurrent use. Data is lost when the process exits;
// for history across runs, use the SQLite store.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*runs.Run
}

// NewStore creates a new in-memory run store.
func NewStore() *Store {
	return &Store{
		runs: make(map[string]*runs.Run),
	}
}

// SaveRun saves or updates a run in memory.
func (s *Store) SaveRun(ctx context.Context, run *runs.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external modifications
	s.runs[run.RunID] = run.Clone()
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*runs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", runs.ErrNotFound, runID)
	}
	return run.Clone(), nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, filter runs.Filter) ([]*runs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*runs.Run
	for _, run := range s.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, run.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].RunID < result[j].RunID
		}
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	return filter.Page(result), nil
}

// Ensure Store implements runs.Store.
var _ runs.Store = (*Store)(nil)
