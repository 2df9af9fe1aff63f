package driven

import (
	"context"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// SearchIndex writes records to the search index.
// Backed by Elasticsearch.
type SearchIndex interface {
	// EnsureIndex creates the index if absent and defines its field mapping.
	// An index that already exists is not an error.
	EnsureIndex(ctx context.Context) error

	// Index writes a single record keyed by its ID.
	Index(ctx context.Context, rec domain.Record) error

	// Bulk writes several records in one request.
	// A transport failure is returned as an error wrapping domain.ErrTransport;
	// item-level failures are reported in the result, not as an error.
	Bulk(ctx context.Context, recs []domain.Record) (*BulkResult, error)

	// Close releases resources.
	Close() error
}

// BulkResult reports the outcome of a bulk write.
type BulkResult struct {
	// Failed lists the items the index rejected.
	Failed []BulkItemError
}

// HasErrors reports whether any item was rejected.
func (r *BulkResult) HasErrors() bool {
	return r != nil && len(r.Failed) > 0
}

// BulkItemError describes one rejected item of a bulk write.
type BulkItemError struct {
	// ID is the record ID.
	ID string

	// Status is the HTTP status reported for the item.
	Status int

	// Reason is the index's error description.
	Reason string
}
