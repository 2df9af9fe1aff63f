package driven

import (
	"context"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// PostProcessor finishes a built record before it is batched.
// PostProcessors are chained in a pipeline (e.g., untitled fallback).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process modifies the record in place.
	Process(ctx context.Context, rec *domain.Record) error
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the record through all processors in order.
	Process(ctx context.Context, rec *domain.Record) error
}
