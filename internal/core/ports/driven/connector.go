package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// Connector enumerates the source units of a run target.
// Each target kind (local filesystem, S3 prefix) implements this interface.
// Units are returned in enumeration order; batches preserve that order.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Validate checks the target exists and is readable.
	// For S3, this performs a lightweight list call.
	Validate(ctx context.Context) error

	// Next returns the next source unit.
	// Returns io.EOF when the enumeration is exhausted.
	// A *UnitError reports a unit that could not be fetched; enumeration
	// may continue after it. Any other error ends the enumeration.
	Next(ctx context.Context) (*domain.SourceUnit, error)

	// Close releases resources (scratch directories, clients).
	Close() error
}

// UnitError reports a single unit the connector could not deliver.
type UnitError struct {
	// Ref identifies the unit (object key or path).
	Ref string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Ref, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UnitError) Unwrap() error {
	return e.Err
}

// AsUnitError returns the UnitError wrapped in err, if any.
func AsUnitError(err error) (*UnitError, bool) {
	var ue *UnitError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// RowReader yields the rows of a tabular source in file order.
type RowReader interface {
	// Next returns the next row. Returns io.EOF after the last row.
	Next() (*domain.Row, error)

	// SourceName returns the file name reported in the csv_source trailer.
	SourceName() string

	// DownloadURL returns the public URL of the tabular file.
	// Row ids are derived from it.
	DownloadURL() string

	// Close releases the underlying file.
	Close() error
}
