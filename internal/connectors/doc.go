// Package connectors provides the enumerators a run reads its source units
// from. Each connector knows how to list and fetch the files of one target
// kind (local path or glob, S3 prefix) and the tabular reader yields the rows
// of a CSV or TSV file.
//
// The Factory picks the implementation for a parsed target at startup.
package connectors
