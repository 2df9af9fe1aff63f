package services

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/logger"
	"github.com/custodia-labs/stevedore/internal/normalisers"
)

// BuildUnit describes one file to turn into a record.
type BuildUnit struct {
	// Path is the local file to extract.
	Path string

	// ID is the record's content-addressed identifier.
	ID string

	// SourceURL is the download URL stored on the record.
	SourceURL string

	// Ref identifies the unit in the run error log.
	Ref string

	// Name is the fallback title.
	Name string

	// Attachments are linked ids already known from decomposition.
	Attachments []string

	// ResolveAttachments links attachments the extractor reports, for
	// messages that were not decomposed. Optional.
	ResolveAttachments func(ext domain.Extraction) []string
}

// RowUnit describes one tabular row to turn into a record.
type RowUnit struct {
	Row        *domain.Row
	SourceURL  string
	SourceName string
}

// BuilderOptions configures a RecordBuilder.
type BuilderOptions struct {
	// OCR enables the scanned-PDF fallback.
	OCR bool

	// MaxDocumentBytes bounds file size and extracted text length.
	MaxDocumentBytes int64

	// TitleColumn and TextColumn configure tabular rows.
	TitleColumn string
	TextColumn  string

	// DKIM verifies standalone .eml messages when set.
	DKIM normalisers.Verifier

	// Boilerplate strips HTML pages. Nil uses normalisers.TagStripper.
	Boilerplate normalisers.Boilerplate
}

// RecordBuilder extracts files and renders them as canonical records.
type RecordBuilder struct {
	extractor driven.ContentExtractor
	ocr       driven.OCR
	pipeline  driven.PostProcessorPipeline
	opts      BuilderOptions
	variants  map[normalisers.Kind]normalisers.Variant
}

// NewRecordBuilder creates a record builder.
// ocr and pipeline may be nil.
func NewRecordBuilder(
	extractor driven.ContentExtractor,
	ocr driven.OCR,
	pipeline driven.PostProcessorPipeline,
	opts BuilderOptions,
) *RecordBuilder {
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = domain.DefaultMaxDocumentBytes
	}
	variants := map[normalisers.Kind]normalisers.Variant{}
	for _, v := range []normalisers.Variant{
		normalisers.Blob{},
		normalisers.ScannedPDF{},
		normalisers.NewHTML(opts.Boilerplate),
		&normalisers.Email{DKIM: opts.DKIM},
		normalisers.CsvRow{TitleColumn: opts.TitleColumn, TextColumn: opts.TextColumn},
	} {
		variants[v.Kind()] = v
	}
	return &RecordBuilder{
		extractor: extractor,
		ocr:       ocr,
		pipeline:  pipeline,
		opts:      opts,
		variants:  variants,
	}
}

// Build extracts the unit's file and renders its record.
// Oversize input fails with ErrTooLarge and unreadable input with
// ErrUnparsable; the caller records either against the unit.
func (b *RecordBuilder) Build(ctx context.Context, unit BuildUnit) (*domain.Record, error) {
	info, err := os.Stat(unit.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", unit.Path, err)
	}
	if info.Size() > b.opts.MaxDocumentBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", unit.Ref, info.Size(), domain.ErrTooLarge)
	}

	ext := b.extract(ctx, unit)
	if ext.Unparsable {
		return nil, fmt.Errorf("%s: %w", unit.Ref, domain.ErrUnparsable)
	}
	if int64(len(ext.Text)) > b.opts.MaxDocumentBytes {
		return nil, fmt.Errorf("%s has %d bytes of text: %w", unit.Ref, len(ext.Text), domain.ErrTooLarge)
	}

	kind := normalisers.Classify(ext, b.opts.OCR && b.ocr != nil)
	if kind == normalisers.KindScannedPDF {
		var ok bool
		ext, ok = b.recognise(ctx, unit, ext)
		if !ok {
			kind = normalisers.KindBlob
		}
	}

	attachments := unit.Attachments
	if len(attachments) == 0 && kind == normalisers.KindEmail && unit.ResolveAttachments != nil {
		attachments = unit.ResolveAttachments(ext)
	}

	logger.Debug("Building %s record for %s", kind, unit.Ref)
	rec, err := b.variants[kind].ToRecord(normalisers.Input{
		ID:          unit.ID,
		SourceURL:   unit.SourceURL,
		SourceRef:   unit.Ref,
		Name:        unit.Name,
		Path:        unit.Path,
		Extraction:  ext,
		Attachments: attachments,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", unit.Ref, err)
	}
	return b.finish(ctx, rec)
}

// BuildRow renders a tabular row. The row ordinal discriminates its id.
func (b *RecordBuilder) BuildRow(ctx context.Context, unit RowUnit) (*domain.Record, error) {
	if unit.Row == nil {
		return nil, fmt.Errorf("build row: %w", domain.ErrInvalidInput)
	}
	ref := fmt.Sprintf("%s:%d", unit.SourceName, unit.Row.Ordinal)
	rec, err := b.variants[normalisers.KindCsvRow].ToRecord(normalisers.Input{
		ID:         RowID(unit.SourceURL, unit.Row.Ordinal),
		SourceURL:  unit.SourceURL,
		SourceRef:  ref,
		Row:        unit.Row,
		SourceName: unit.SourceName,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", ref, err)
	}
	if int64(len(rec.Body)) > b.opts.MaxDocumentBytes {
		return nil, fmt.Errorf("%s has %d bytes of text: %w", ref, len(rec.Body), domain.ErrTooLarge)
	}
	return b.finish(ctx, rec)
}

// extract calls the extractor, substituting the unparsable sentinel on failure.
func (b *RecordBuilder) extract(ctx context.Context, unit BuildUnit) domain.Extraction {
	ext, err := b.extractor.Extract(ctx, unit.Path)
	if err != nil {
		logger.Warn("Extraction failed for %s: %v", unit.Ref, err)
		return domain.Unparsed()
	}
	if ext.Metadata == nil {
		ext.Metadata = map[string]any{}
	}
	return ext
}

// recognise runs OCR on a low-yield PDF and re-extracts the rebuilt file.
// The original metadata is kept; only the text is replaced.
func (b *RecordBuilder) recognise(ctx context.Context, unit BuildUnit, ext domain.Extraction) (domain.Extraction, bool) {
	rebuilt, ok, err := b.ocr.OCR(ctx, unit.Path)
	if err != nil {
		logger.Warn("OCR failed for %s: %v", unit.Ref, err)
		return ext, false
	}
	if !ok {
		logger.Debug("OCR unavailable for %s, indexing extracted text", unit.Ref)
		return ext, false
	}
	defer func() {
		if err := os.Remove(rebuilt); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove OCR output %s: %v", rebuilt, err)
		}
	}()

	ocred := b.extract(ctx, BuildUnit{Path: rebuilt, Ref: unit.Ref})
	if ocred.Unparsable {
		return ext, false
	}
	ext.Text = ocred.Text
	return ext, true
}

func (b *RecordBuilder) finish(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	if b.pipeline == nil {
		return rec, nil
	}
	if err := b.pipeline.Process(ctx, rec); err != nil {
		return nil, fmt.Errorf("post-process %s: %w", rec.SourceRef, err)
	}
	return rec, nil
}
