package driving

import (
	"context"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// Ingester runs one batch ingestion of a target into the search index.
type Ingester interface {
	// Ingest enumerates, decomposes, extracts, builds and uploads every
	// document of the target. Per-document failures are collected in the
	// returned report; only setup failures are returned as errors.
	Ingest(ctx context.Context, target domain.Target) (*domain.RunReport, error)

	// Status returns the progress of the current (or last) run.
	Status(ctx context.Context) (*domain.RunStatus, error)
}

// RunHistory exposes reports of earlier runs.
type RunHistory interface {
	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.RunReport, error)

	// Get returns one run with its full error list.
	Get(ctx context.Context, id string) (*domain.RunReport, error)
}
