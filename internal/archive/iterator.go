package archive

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// source produces the entries of one archive, a group at a time.
// A group is a zip member, or a message preceded by its attachments.
// io.EOF marks the end of the archive.
type source interface {
	next() ([]domain.ArchiveEntry, error)
	close() error
}

// Ensure iterator implements the interface.
var _ driven.EntryIterator = (*iterator)(nil)

// iterator adapts a source to driven.EntryIterator and owns the scratch directory.
type iterator struct {
	ctx     context.Context
	src     source
	root    string
	dir     string
	pending []domain.ArchiveEntry
	current domain.ArchiveEntry
	err     error
	closed  bool
}

// Next advances to the next entry.
func (it *iterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	for len(it.pending) == 0 {
		if err := it.ctx.Err(); err != nil {
			it.err = err
			return false
		}
		group, err := it.src.next()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			it.err = err
			return false
		}
		it.pending = group
	}
	it.current = it.pending[0]
	it.pending = it.pending[1:]
	return true
}

// Entry returns the current entry.
func (it *iterator) Entry() domain.ArchiveEntry {
	return it.current
}

// Err returns the error that stopped iteration.
func (it *iterator) Err() error {
	return it.err
}

// Dir returns the scratch directory for materialised entries.
func (it *iterator) Dir() string {
	return it.dir
}

// Close stops the source and removes the scratch directory.
// Safe to call more than once.
func (it *iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	srcErr := it.src.close()
	if err := os.RemoveAll(it.root); err != nil {
		logger.Warn("Failed to remove scratch directory %s: %v", it.root, err)
	}
	return srcErr
}
