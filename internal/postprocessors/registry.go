package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// BuilderFunc creates a record finishing step from its config table.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps step names to their builders so the record pipeline can be
// assembled from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds a builder under the step's Name().
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates the named step. An unregistered name is a configuration error.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("record step %q: %w", name, domain.ErrConfig)
	}
	return builder(cfg)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered step names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
