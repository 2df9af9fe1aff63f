package normalisers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// CsvRow renders one row of a tabular file.
type CsvRow struct {
	// TitleColumn selects the title by header name or zero-based index.
	// When empty or missing from the row, the title is the source URL.
	TitleColumn string

	// TextColumn selects the body. When empty, all columns are joined,
	// as "name: value" pairs when the file has a header row.
	TextColumn string
}

// Kind returns KindCsvRow.
func (c CsvRow) Kind() Kind { return KindCsvRow }

// ToRecord builds a row record.
func (c CsvRow) ToRecord(in Input) (*domain.Record, error) {
	if in.Row == nil {
		return nil, fmt.Errorf("csv row record %s: %w", in.SourceRef, domain.ErrInvalidInput)
	}
	row := in.Row

	rec := newRecord(in)

	rec.Title = in.SourceURL
	if c.TitleColumn != "" {
		if v, ok := row.Column(c.TitleColumn); ok {
			rec.Title = v
		}
	}

	body := joinRow(row)
	if c.TextColumn != "" {
		if v, ok := row.Column(c.TextColumn); ok {
			body = v
		}
	}
	rec.Body = CleanText(body + " \n\n csv_source: " + in.SourceName)

	for k, v := range row.Fields() {
		rec.Metadata[k] = v
	}
	return rec, nil
}

func joinRow(row *domain.Row) string {
	if row.Header == nil {
		return strings.Join(row.Values, " \n\n ")
	}
	parts := make([]string, len(row.Values))
	for i, v := range row.Values {
		name := "column_" + strconv.Itoa(i)
		if i < len(row.Header) && row.Header[i] != "" {
			name = row.Header[i]
		}
		parts[i] = name + ": " + v
	}
	return strings.Join(parts, " \n\n ")
}
