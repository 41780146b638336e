package store

import (
	"context"
	"sync"

	"github.com/ssk4988/nim/internal/domain"
)

// memory is an in-memory Store. State is lost when the process restarts.
type memory struct {
	mu      sync.RWMutex
	byID    map[string]struct{}
	results []Result // insertion order
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{byID: make(map[string]struct{})}
}

func (m *memory) RecordResult(ctx context.Context, r Result) error {
	if err := r.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.GameID]; ok {
		return nil
	}
	m.byID[r.GameID] = struct{}{}
	m.results = append(m.results, r)
	return nil
}

func (m *memory) Stats(ctx context.Context, kind domain.Kind) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Kind: kind}
	for _, r := range m.results {
		if r.Kind != kind {
			continue
		}
		st.Games++
		switch r.Winner {
		case domain.Human:
			st.HumanWins++
		case domain.Computer:
			st.ComputerWins++
		}
	}
	return st, nil
}

func (m *memory) Recent(ctx context.Context, limit int) ([]Result, error) {
	limit = clampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Result{}
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[i])
	}
	return out, nil
}

func (m *memory) Close() error { return nil }
