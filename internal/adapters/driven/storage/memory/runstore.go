// Package memory provides in-memory implementations of driven ports, used
// when run history is disabled and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.RunReport
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.RunReport),
	}
}

// Save stores or replaces a run report.
func (s *RunStore) Save(_ context.Context, report domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(report.Errors) > 0 {
		report.ErrorCount = len(report.Errors)
	}
	report.Errors = append([]domain.RunError(nil), report.Errors...)
	s.runs[report.ID] = report
	return nil
}

// Get retrieves a run report by ID.
func (s *RunStore) Get(_ context.Context, id string) (*domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	report.Errors = append([]domain.RunError(nil), report.Errors...)
	return &report, nil
}

// List returns the most recent runs, newest first, without their error logs.
func (s *RunStore) List(_ context.Context, limit int) ([]domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]domain.RunReport, 0, len(s.runs))
	for _, r := range s.runs {
		r.Errors = nil
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].StartedAt.Equal(reports[j].StartedAt) {
			return reports[i].ID < reports[j].ID
		}
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}
