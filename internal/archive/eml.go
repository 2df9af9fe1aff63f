package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// emlSource yields a standalone message and its attachments as one group.
type emlSource struct {
	path string
	done bool
}

func openEML(path string) (*emlSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open eml %s: %w", path, err)
	}
	return &emlSource{path: path}, nil
}

func (e *emlSource) next() ([]domain.ArchiveEntry, error) {
	if e.done {
		return nil, io.EOF
	}
	e.done = true

	raw, err := os.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("read eml %s: %w", e.path, err)
	}
	name := filepath.Base(e.path)
	return messageGroup(newNameResolver(), name, writeBytes(raw), mimeAttachments(raw, name)), nil
}

func (e *emlSource) close() error {
	return nil
}
