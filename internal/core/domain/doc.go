// Package domain defines the core business entities for stevedore.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceUnit: One file or object to ingest
//   - Extraction: Text and metadata returned by the content extractor
//   - ArchiveEntry: One constituent document of a decomposed archive
//   - Record: The canonical search record delivered to the index
//   - RunContext: Run-scoped error log and progress counter
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
