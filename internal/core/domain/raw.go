package domain

import (
	"path/filepath"
	"strconv"
	"strings"
)

// UnparsableText is the sentinel text substituted when extraction fails.
const UnparsableText = "couldn't be parsed"

// SourceUnit represents one file to be ingested.
// It is created per enumerated file and discarded once its record is built.
type SourceUnit struct {
	// Path is the local path of the file (downloaded objects included).
	Path string

	// Ref identifies the unit in error reports (local path or object key).
	Ref string

	// DownloadURL is the logical URL used for identity and display.
	DownloadURL string

	// Cleanup releases scratch storage held for the unit (downloaded objects).
	// Nil for units that live on the local filesystem.
	Cleanup func()
}

// Release runs Cleanup if set.
func (u *SourceUnit) Release() {
	if u != nil && u.Cleanup != nil {
		u.Cleanup()
	}
}

// Row is one record of a tabular source.
type Row struct {
	// Ordinal is the zero-based position of the row among data rows.
	Ordinal int

	// Header holds the column names, or nil when the file has no header row.
	Header []string

	// Values holds the cells in column order.
	Values []string
}

// Column returns the cell selected by a column name or zero-based index.
// The second return value is false when the selector matches no column.
func (r Row) Column(selector string) (string, bool) {
	if idx, err := strconv.Atoi(selector); err == nil {
		if idx >= 0 && idx < len(r.Values) {
			return r.Values[idx], true
		}
		return "", false
	}
	for i, name := range r.Header {
		if name == selector && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return "", false
}

// Fields returns the row as a column-name to value map.
// Columns without a header name are keyed "column_<index>".
func (r Row) Fields() map[string]string {
	out := make(map[string]string, len(r.Values))
	for i, v := range r.Values {
		key := "column_" + strconv.Itoa(i)
		if i < len(r.Header) && r.Header[i] != "" {
			key = r.Header[i]
		}
		out[key] = v
	}
	return out
}

// Extraction is the output of the content extractor for one file.
type Extraction struct {
	// Text is the extracted plain text.
	Text string

	// Metadata holds extractor metadata (content type, title, dates, page count...).
	Metadata map[string]any

	// Unparsable is set when the extractor failed and the sentinel was substituted.
	Unparsable bool
}

// Unparsed returns the sentinel extraction used when the extractor fails.
func Unparsed() Extraction {
	return Extraction{
		Text:       UnparsableText,
		Metadata:   map[string]any{},
		Unparsable: true,
	}
}

// ContentType returns the media type without parameters, lower-cased.
func (e Extraction) ContentType() string {
	ct := e.MetaString(MetaContentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// MetaString returns the first string value stored under key.
// Extractors report repeated fields as lists; the first element wins.
func (e Extraction) MetaString(key string) string {
	return MetaString(e.Metadata, key)
}

// MetaList returns every string value stored under key.
func (e Extraction) MetaList(key string) []string {
	return MetaList(e.Metadata, key)
}

// PageCount returns the page count reported by the extractor, or 0.
func (e Extraction) PageCount() int {
	n, err := strconv.Atoi(strings.TrimSpace(e.MetaString(MetaPageCount)))
	if err != nil {
		return 0
	}
	return n
}

// MetaString returns the first string value stored under key in m.
func MetaString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// MetaList returns every string value stored under key in m.
// A scalar value is returned as a one-element list; a missing key as nil.
func MetaList(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Basename returns the last element of a slash or OS separated path.
func Basename(name string) string {
	return filepath.Base(filepath.FromSlash(name))
}
