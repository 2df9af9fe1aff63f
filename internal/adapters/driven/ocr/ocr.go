// Package ocr rebuilds scanned PDFs as searchable PDFs with external tools:
// ImageMagick rasterises the pages, tesseract recognises each page and pdftk
// concatenates the per-page PDFs.
package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// Ensure Tools implements the interface.
var _ driven.OCR = (*Tools)(nil)

// Required commands.
const (
	cmdConvert   = "convert"
	cmdTesseract = "tesseract"
	cmdPdftk     = "pdftk"
)

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// Tools runs the OCR command chain.
type Tools struct {
	run         Runner
	lookPath    func(string) (string, error)
	scratchRoot string
}

// Option configures Tools.
type Option func(*Tools)

// WithRunner replaces command execution.
func WithRunner(r Runner) Option {
	return func(t *Tools) {
		t.run = r
	}
}

// WithLookPath replaces the tool lookup.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(t *Tools) {
		t.lookPath = fn
	}
}

// WithScratchRoot sets where page images and the rebuilt PDF are written.
func WithScratchRoot(dir string) Option {
	return func(t *Tools) {
		t.scratchRoot = dir
	}
}

// New creates the OCR tool chain.
func New(opts ...Option) *Tools {
	t := &Tools{
		run:      execRunner,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Available returns an error wrapping domain.ErrToolUnavailable naming the
// first missing command.
func (t *Tools) Available() error {
	for _, cmd := range []string{cmdConvert, cmdTesseract, cmdPdftk} {
		if _, err := t.lookPath(cmd); err != nil {
			return fmt.Errorf("%s: %w", cmd, domain.ErrToolUnavailable)
		}
	}
	return nil
}

// OCR rebuilds pdfPath and returns the path of the searchable PDF, which the
// caller removes. ok is false when a tool is missing or no page was recognised.
func (t *Tools) OCR(ctx context.Context, pdfPath string) (string, bool, error) {
	if err := t.Available(); err != nil {
		logger.Debug("Skipping OCR: %v", err)
		return "", false, nil
	}

	work, err := os.MkdirTemp(t.scratchRoot, "stevedore-ocr-*")
	if err != nil {
		return "", false, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(work)

	base := filepath.Join(work, "page")
	if err := t.run(ctx, cmdConvert, "-monochrome", "-density", "300x300", pdfPath, "-depth", "8", base+".png"); err != nil {
		return "", false, fmt.Errorf("rasterise %s: %w", filepath.Base(pdfPath), err)
	}

	pages, err := pageImages(base)
	if err != nil {
		return "", false, err
	}

	var pdfs []string
	for _, png := range pages {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		if err := t.run(ctx, cmdTesseract, png, png, "pdf"); err != nil {
			logger.Warn("OCR of %s failed: %v", filepath.Base(png), err)
		}
		_ = os.Remove(png)
		if _, err := os.Stat(png + ".pdf"); err == nil {
			pdfs = append(pdfs, png+".pdf")
		}
	}
	if len(pdfs) == 0 {
		return "", false, nil
	}

	out, err := os.CreateTemp(t.scratchRoot, "stevedore-*.ocr.pdf")
	if err != nil {
		return "", false, fmt.Errorf("create output: %w", err)
	}
	rebuilt := out.Name()
	_ = out.Close()

	args := append(append([]string{}, pdfs...), "cat", "output", rebuilt)
	if err := t.run(ctx, cmdPdftk, args...); err != nil {
		_ = os.Remove(rebuilt)
		return "", false, fmt.Errorf("concatenate pages: %w", err)
	}
	logger.Debug("OCR rebuilt %s from %d pages", filepath.Base(pdfPath), len(pdfs))
	return rebuilt, true, nil
}

var pageSuffix = regexp.MustCompile(`-(\d+)\.png$`)

// pageImages lists the rasterised pages in page order. A single-page
// document produces base.png, which sorts first.
func pageImages(base string) ([]string, error) {
	multi, err := filepath.Glob(base + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	pages := multi
	if _, err := os.Stat(base + ".png"); err == nil {
		pages = append([]string{base + ".png"}, multi...)
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return pageNumber(pages[i]) < pageNumber(pages[j])
	})
	return pages, nil
}

// pageNumber returns the numeric suffix of a page image, or -1 for none.
func pageNumber(path string) int {
	m := pageSuffix.FindStringSubmatch(path)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}
