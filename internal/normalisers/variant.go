package normalisers

import (
	"strings"
	"time"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// Kind names a record variant.
type Kind string

// Record variants.
const (
	KindBlob       Kind = "blob"
	KindEmail      Kind = "email"
	KindHTML       Kind = "html"
	KindScannedPDF Kind = "scanned_pdf"
	KindCsvRow     Kind = "csv_row"
)

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// Input is everything a variant needs to render a record.
type Input struct {
	// ID is the content-addressed identifier, also used as the record's sha1.
	ID string

	// SourceURL is the download URL the record points at.
	SourceURL string

	// SourceRef identifies the unit in the run error log.
	SourceRef string

	// Name is the unit's file name, used as the fallback title.
	Name string

	// Path is the local file the extraction came from. Empty for rows.
	Path string

	// Extraction holds extracted text and metadata. Unused for rows.
	Extraction domain.Extraction

	// Attachments are the linked ids of parent and attachment records.
	Attachments []string

	// Row is the tabular row for CsvRow records.
	Row *domain.Row

	// SourceName is the tabular file name for CsvRow records.
	SourceName string
}

// Variant renders one kind of source into a canonical record.
type Variant interface {
	// Kind returns the variant this renderer produces.
	Kind() Kind

	// ToRecord builds the record.
	ToRecord(in Input) (*domain.Record, error)
}

// Ensure the variants implement the interface.
var (
	_ Variant = Blob{}
	_ Variant = ScannedPDF{}
	_ Variant = (*HTML)(nil)
	_ Variant = (*Email)(nil)
	_ Variant = CsvRow{}

	_ Verifier = DKIMVerifier{}
)

var emailTypes = map[string]bool{
	"message/rfc822":             true,
	"application/vnd.ms-outlook": true,
}

var htmlTypes = map[string]bool{
	"application/html":      true,
	"text/html":             true,
	"application/xhtml+xml": true,
}

// Classify picks the variant for an extraction. It has no side effects.
func Classify(ext domain.Extraction, ocrEnabled bool) Kind {
	ct := ext.ContentType()
	switch {
	case emailTypes[ct]:
		return KindEmail
	case htmlTypes[ct]:
		return KindHTML
	case ct == "application/pdf" && ocrEnabled && LowYield(ext):
		return KindScannedPDF
	default:
		return KindBlob
	}
}

// LowYield reports whether the text is too sparse for the page count,
// which usually means a scanned document without a text layer.
func LowYield(ext domain.Extraction) bool {
	if strings.TrimSpace(ext.Text) == "" {
		return true
	}
	return len(ext.Text) < 50*ext.PageCount()
}

// newRecord fills the fields every variant shares.
func newRecord(in Input) *domain.Record {
	return &domain.Record{
		ID:        in.ID,
		SHA1:      in.ID,
		SourceURL: in.SourceURL,
		SourceRef: in.SourceRef,
		Metadata:  make(map[string]any),
		UpdatedAt: time.Now().UTC(),
	}
}

// fileTitle returns the extracted title unless it is empty or "Untitled",
// otherwise the file name.
func fileTitle(in Input) string {
	title := strings.TrimSpace(in.Extraction.MetaString(domain.MetaTitle))
	if title == "" || title == "Untitled" {
		return in.Name
	}
	return title
}

// indexedMetaKeys are the only extractor fields a document record carries
// into the index. Format-specific keys (Exif, XMP, custom PDF properties)
// stay behind.
var indexedMetaKeys = []string{
	domain.MetaContentType,
	domain.MetaTitle,
	domain.MetaCreationDate,
	domain.MetaPageCount,
}

// indexedMetadata copies the allowed extractor fields, flattened to strings.
func indexedMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(indexedMetaKeys))
	for _, k := range indexedMetaKeys {
		if v := domain.MetaString(src, k); v != "" {
			dst[k] = v
		}
	}
	return dst
}

func withAttachments(rec *domain.Record, ids []string) {
	if len(ids) > 0 {
		rec.SetMeta(domain.MetaAttachments, ids)
	}
}
