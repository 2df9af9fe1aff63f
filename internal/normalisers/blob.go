package normalisers

import (
	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// Blob renders generic documents: tags stripped from the body.
type Blob struct{}

// Kind returns KindBlob.
func (Blob) Kind() Kind { return KindBlob }

// ToRecord builds a generic document record.
func (Blob) ToRecord(in Input) (*domain.Record, error) {
	rec := newRecord(in)
	rec.Title = fileTitle(in)
	rec.Body = CleanText(in.Extraction.Text)
	rec.Metadata = indexedMetadata(in.Extraction.Metadata)
	withAttachments(rec, in.Attachments)
	return rec, nil
}

// ScannedPDF renders a PDF rebuilt by OCR. The OCR text is kept verbatim.
type ScannedPDF struct{}

// Kind returns KindScannedPDF.
func (ScannedPDF) Kind() Kind { return KindScannedPDF }

// ToRecord builds a record from OCR output.
func (ScannedPDF) ToRecord(in Input) (*domain.Record, error) {
	rec := newRecord(in)
	rec.Title = fileTitle(in)
	rec.Body = in.Extraction.Text
	rec.Metadata = indexedMetadata(in.Extraction.Metadata)
	rec.SetMeta("ocr", true)
	withAttachments(rec, in.Attachments)
	return rec, nil
}
