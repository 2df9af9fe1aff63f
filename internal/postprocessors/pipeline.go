// Package postprocessors provides record finishing steps run after a
// record is built and before it is batched for upload.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains multiple PostProcessors and runs them in order.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the record through all processors in order.
// Each processor sees the changes made by the ones before it.
func (p *Pipeline) Process(ctx context.Context, rec *domain.Record) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}

	for _, processor := range p.processors {
		if err := processor.Process(ctx, rec); err != nil {
			return fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}
	return nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
