package driven

import "context"

// OCR converts scanned PDFs into searchable PDFs using external tools.
type OCR interface {
	// OCR rasterises and recognises the PDF at pdfPath and returns the path
	// of the rebuilt searchable PDF. ok is false when a required tool is
	// missing or no pages were produced; that is not an error.
	OCR(ctx context.Context, pdfPath string) (rebuilt string, ok bool, err error)
}
