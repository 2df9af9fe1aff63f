package driven

import (
	"context"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// RunStore persists run reports so failed documents can be found after the fact.
type RunStore interface {
	// Save stores a finished run's report.
	Save(ctx context.Context, report domain.RunReport) error

	// Get retrieves a run report by ID.
	// Returns domain.ErrNotFound if the run does not exist.
	Get(ctx context.Context, id string) (*domain.RunReport, error)

	// List returns the most recent runs, newest first, without their error lists.
	List(ctx context.Context, limit int) ([]domain.RunReport, error)
}
