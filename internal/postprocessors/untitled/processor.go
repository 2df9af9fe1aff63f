// Package untitled gives records without a title a recognisable placeholder.
package untitled

import (
	"context"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// DefaultPrefix starts every placeholder title.
const DefaultPrefix = "Untitled Document: "

// DefaultIDLength is the number of id characters in a placeholder title.
const DefaultIDLength = 8

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor fills in empty titles from the record id.
type Processor struct {
	prefix   string
	idLength int
}

// Option configures the untitled processor.
type Option func(*Processor)

// WithPrefix sets the placeholder prefix.
func WithPrefix(prefix string) Option {
	return func(p *Processor) {
		p.prefix = prefix
	}
}

// WithIDLength sets how much of the id is shown.
func WithIDLength(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.idLength = n
		}
	}
}

// New creates a new untitled processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		prefix:   DefaultPrefix,
		idLength: DefaultIDLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "untitled"
}

// Process sets a placeholder title when the title is blank.
func (p *Processor) Process(_ context.Context, rec *domain.Record) error {
	if strings.TrimSpace(rec.Title) != "" {
		return nil
	}
	id := rec.ID
	if len(id) > p.idLength {
		id = id[:p.idLength]
	}
	rec.Title = p.prefix + id
	return nil
}
