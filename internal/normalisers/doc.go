// Package normalisers turns extracted documents into canonical search records.
//
// Each record variant (Blob, Email, HTML, ScannedPDF, CsvRow) knows how to
// render one kind of source into a domain.Record. Classify picks the variant
// for an extraction from its content type; tabular rows always use CsvRow.
package normalisers
