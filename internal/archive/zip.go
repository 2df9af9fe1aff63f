package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// zipSource yields one entry per member file. Directories are skipped.
type zipSource struct {
	r     *zip.ReadCloser
	pos   int
	names *nameResolver
}

func openZip(path string) (*zipSource, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w: %v", path, domain.ErrUnparsable, err)
	}
	return &zipSource{r: r, names: newNameResolver()}, nil
}

func (z *zipSource) next() ([]domain.ArchiveEntry, error) {
	for z.pos < len(z.r.File) {
		f := z.r.File[z.pos]
		z.pos++

		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		// Unsupported compression methods fail here rather than mid-write.
		rc, err := f.Open()
		if err != nil {
			logger.Warn("Skipping zip member %s: %v", f.Name, err)
			continue
		}
		rc.Close()

		entry := domain.ArchiveEntry{
			Name: z.names.reserve(f.Name),
			Write: func(w io.Writer) error {
				rc, err := f.Open()
				if err != nil {
					return err
				}
				defer rc.Close()
				_, err = io.Copy(w, rc)
				return err
			},
		}
		return []domain.ArchiveEntry{entry}, nil
	}
	return nil, io.EOF
}

func (z *zipSource) close() error {
	return z.r.Close()
}
