package domain

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveFormat identifies a container format that is split into documents.
type ArchiveFormat string

// Supported archive formats.
const (
	ArchiveZip  ArchiveFormat = "zip"
	ArchiveMbox ArchiveFormat = "mbox"
	ArchivePST  ArchiveFormat = "pst"
	ArchiveEML  ArchiveFormat = "eml"
)

// IsValid returns true if the archive format is recognised.
func (f ArchiveFormat) IsValid() bool {
	switch f {
	case ArchiveZip, ArchiveMbox, ArchivePST, ArchiveEML:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f ArchiveFormat) String() string {
	return string(f)
}

// ArchiveFormatFor selects the archive format from a file extension.
// The second return value is false for files that are not archives.
func ArchiveFormatFor(path string) (ArchiveFormat, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	f := ArchiveFormat(ext)
	return f, f.IsValid()
}

// ArchiveEntry is one constituent document produced by decomposition.
// Its bytes are not written anywhere until Materialise is called.
type ArchiveEntry struct {
	// Name is the entry's name relative to the archive. Unique within an archive.
	Name string

	// AttachmentNames lists the names of sibling entries attached to this one.
	AttachmentNames []string

	// ParentName is the name of the containing message, or empty.
	ParentName string

	// Write streams the entry's bytes. It is invoked once, by Materialise.
	Write func(w io.Writer) error
}

// HasParent reports whether the entry was attached to another entry.
func (e ArchiveEntry) HasParent() bool {
	return e.ParentName != ""
}

// Materialise writes the entry under dir and returns the file path.
func (e ArchiveEntry) Materialise(dir string) (string, error) {
	if e.Write == nil {
		return "", fmt.Errorf("materialise %s: %w", e.Name, ErrInvalidInput)
	}
	path := filepath.Join(dir, Basename(e.Name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := e.Write(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", e.Name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
