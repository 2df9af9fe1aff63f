// Package filesystem enumerates files under a local path or glob.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// URLFunc maps a path relative to the ingested root to its download URL.
type URLFunc func(rel string) string

// Connector walks a directory tree, a single file, or a glob match.
// Hidden files and directories are skipped.
type Connector struct {
	root   string
	urlFor URLFunc

	paths  []string
	base   string
	loaded bool
	pos    int
}

// New creates a filesystem connector for root.
func New(root string, urlFor URLFunc) *Connector {
	return &Connector{root: root, urlFor: urlFor}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// Validate checks that the root exists and is readable.
// A glob must match at least one file.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if isGlob(c.root) {
		matches, err := filepath.Glob(c.root)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", c.root, domain.ErrConfig)
		}
		if len(matches) == 0 {
			return fmt.Errorf("pattern %s matches nothing: %w", c.root, domain.ErrNotFound)
		}
		return nil
	}

	info, err := os.Stat(c.root)
	if os.IsNotExist(err) {
		return fmt.Errorf("path %s does not exist: %w", c.root, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", c.root, err)
	}
	if info.IsDir() {
		f, err := os.Open(c.root)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", c.root, err)
		}
		return f.Close()
	}
	return nil
}

// Next returns the next file in lexical order.
func (c *Connector) Next(ctx context.Context) (*domain.SourceUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.loaded {
		if err := c.load(); err != nil {
			return nil, err
		}
	}
	if c.pos >= len(c.paths) {
		return nil, io.EOF
	}
	path := c.paths[c.pos]
	c.pos++

	rel, err := filepath.Rel(c.base, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return &domain.SourceUnit{
		Path:        path,
		Ref:         path,
		DownloadURL: c.urlFor(rel),
	}, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.paths = nil
	return nil
}

// load collects the file list. Download URLs are relative to base: the root
// directory, the directory of a single file, or the static prefix of a glob.
func (c *Connector) load() error {
	c.loaded = true

	var roots []string
	if isGlob(c.root) {
		matches, err := filepath.Glob(c.root)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", c.root, domain.ErrConfig)
		}
		roots = matches
		c.base = globBase(c.root)
	} else {
		roots = []string{c.root}
		c.base = c.root
		if info, err := os.Stat(c.root); err == nil && !info.IsDir() {
			c.base = filepath.Dir(c.root)
		}
	}

	seen := make(map[string]bool)
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if path != root && isHidden(d.Name()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && !seen[path] {
				seen[path] = true
				c.paths = append(c.paths, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(c.paths)
	logger.Debug("Found %d files under %s", len(c.paths), c.root)
	return nil
}

// isHidden checks if a file or any directory in its path is hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// globBase returns the directory part of a pattern before its first wildcard.
func globBase(pattern string) string {
	i := strings.IndexAny(pattern, "*?[")
	dir := filepath.Dir(pattern[:i] + "x")
	return dir
}
