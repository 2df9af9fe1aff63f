// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ConnectorFactory, Connector: Enumerate the source units of a run target
//   - ContentExtractor: Extracts text and metadata from a file (Tika)
//   - Decomposer: Splits archives into constituent entries
//   - SearchIndex: Index bootstrap and bulk writes (Elasticsearch)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - OCR: Scanned PDF fallback. Without it, low-text PDFs are indexed as-is.
//   - RunStore: Run history. Without it, reports are only printed.
//   - PostProcessorPipeline: Record finishing steps (untitled fallback).
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
