package driven

import (
	"context"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// Decomposer splits container files into their constituent documents.
type Decomposer interface {
	// Open starts decomposing the archive at path.
	// The returned iterator owns a scratch directory that Close removes.
	Open(ctx context.Context, path string, format domain.ArchiveFormat) (EntryIterator, error)
}

// EntryIterator is a pull-based sequence of archive entries.
// Entries are produced lazily; nothing is written to disk until an entry
// is materialised into Dir.
//
//	it, err := d.Open(ctx, path, format)
//	defer it.Close()
//	for it.Next() {
//	    entry := it.Entry()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type EntryIterator interface {
	// Next advances to the next entry. Returns false when exhausted or on error.
	Next() bool

	// Entry returns the current entry.
	Entry() domain.ArchiveEntry

	// Err returns the archive-level error that stopped iteration, if any.
	Err() error

	// Dir returns the scratch directory entries are materialised into.
	Dir() string

	// Close stops iteration and removes the scratch directory.
	Close() error
}
