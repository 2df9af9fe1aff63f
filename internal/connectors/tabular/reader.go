// Package tabular reads CSV and TSV files row by row.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// Ensure Reader implements the interface.
var _ driven.RowReader = (*Reader)(nil)

// Reader yields the data rows of one delimited file.
type Reader struct {
	f           *os.File
	r           *csv.Reader
	name        string
	downloadURL string
	header      []string
	wantHeader  bool
	started     bool
	ordinal     int
}

// Open opens path for reading. Files ending in .tsv are tab separated.
// When hasHeader is set the first record names the columns.
func Open(path, downloadURL string, hasHeader bool) (*Reader, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("path %s does not exist: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}

	return &Reader{
		f:           f,
		r:           r,
		name:        filepath.Base(path),
		downloadURL: downloadURL,
		wantHeader:  hasHeader,
	}, nil
}

// HasHeader reports whether a file read with these column selectors has a
// header row: only when a selector refers to a column by name.
func HasHeader(selectors ...string) bool {
	for _, s := range selectors {
		if s == "" {
			continue
		}
		if _, err := strconv.Atoi(s); err != nil {
			return true
		}
	}
	return false
}

// Next returns the next data row. A malformed line is reported as a
// *driven.UnitError referencing "<file>:<line>" and reading may continue.
func (r *Reader) Next() (*domain.Row, error) {
	if !r.started {
		r.started = true
		if r.wantHeader {
			header, err := r.read()
			if err != nil {
				return nil, err
			}
			r.header = header
		}
	}

	values, err := r.read()
	if err != nil {
		return nil, err
	}
	row := &domain.Row{
		Ordinal: r.ordinal,
		Header:  r.header,
		Values:  values,
	}
	r.ordinal++
	return row, nil
}

func (r *Reader) read() ([]string, error) {
	record, err := r.r.Read()
	if err == nil || err == io.EOF {
		return record, err
	}
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return nil, &driven.UnitError{
			Ref: fmt.Sprintf("%s:%d", r.name, perr.StartLine),
			Err: fmt.Errorf("%w: %v", domain.ErrInvalidInput, perr.Err),
		}
	}
	return nil, fmt.Errorf("read %s: %w", r.name, err)
}

// SourceName returns the file's base name.
func (r *Reader) SourceName() string {
	return r.name
}

// DownloadURL returns the public URL of the file.
func (r *Reader) DownloadURL() string {
	return r.downloadURL
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.f.Close()
}
