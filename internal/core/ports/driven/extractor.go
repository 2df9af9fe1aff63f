package driven

import (
	"context"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// ContentExtractor extracts text and metadata from arbitrary files.
// Backed by an Apache Tika server.
type ContentExtractor interface {
	// Extract returns the text and metadata of the file at path.
	// Callers substitute domain.Unparsed() when Extract fails.
	Extract(ctx context.Context, path string) (domain.Extraction, error)
}
