package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/core/ports/driving"
)

// Ensure RunHistoryService implements the interface.
var _ driving.RunHistory = (*RunHistoryService)(nil)

// DefaultHistoryLimit is the number of runs listed when no limit is given.
const DefaultHistoryLimit = 20

// RunHistoryService reads reports of earlier runs.
type RunHistoryService struct {
	store driven.RunStore
}

// NewRunHistoryService creates a run history service.
func NewRunHistoryService(store driven.RunStore) *RunHistoryService {
	return &RunHistoryService{store: store}
}

// List returns the most recent runs, newest first.
func (s *RunHistoryService) List(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	runs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its full error list.
func (s *RunHistoryService) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: run id is required", domain.ErrInvalidInput)
	}
	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return report, nil
}
