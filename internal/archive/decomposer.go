package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// Ensure Decomposer implements the interface.
var _ driven.Decomposer = (*Decomposer)(nil)

// Decomposer opens archives and yields their entries.
type Decomposer struct {
	scratchRoot string
}

// Option configures a Decomposer.
type Option func(*Decomposer)

// WithScratchRoot sets the parent directory for per-archive scratch space.
// Defaults to the system temporary directory.
func WithScratchRoot(dir string) Option {
	return func(d *Decomposer) {
		d.scratchRoot = dir
	}
}

// NewDecomposer creates a new archive decomposer.
func NewDecomposer(opts ...Option) *Decomposer {
	d := &Decomposer{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open starts decomposing the archive at path.
func (d *Decomposer) Open(ctx context.Context, path string, format domain.ArchiveFormat) (driven.EntryIterator, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("archive format %q: %w", format, domain.ErrUnsupportedType)
	}

	root, err := os.MkdirTemp(d.scratchRoot, "stevedore-archive-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	dir := filepath.Join(root, filepath.Base(path))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}

	src, err := openSource(path, format)
	if err != nil {
		os.RemoveAll(root)
		return nil, err
	}

	logger.Debug("Decomposing %s archive %s into %s", format, path, dir)
	return &iterator{ctx: ctx, src: src, root: root, dir: dir}, nil
}

func openSource(path string, format domain.ArchiveFormat) (source, error) {
	switch format {
	case domain.ArchiveZip:
		return openZip(path)
	case domain.ArchiveMbox:
		return openMbox(path)
	case domain.ArchiveEML:
		return openEML(path)
	case domain.ArchivePST:
		return openPST(path)
	default:
		return nil, fmt.Errorf("archive format %q: %w", format, domain.ErrUnsupportedType)
	}
}
