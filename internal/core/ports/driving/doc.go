// Package driving defines what the CLI and the progress view may ask of the
// core: run an ingestion, poll its status, list earlier runs and resolve
// settings. Implementations live in internal/core/services.
package driving
