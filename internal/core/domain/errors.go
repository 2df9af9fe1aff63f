package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown archive format or source kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrConfig indicates missing or invalid configuration.
	// Configuration errors are the only errors that stop a run before it starts.
	ErrConfig = errors.New("invalid configuration")

	// Ingestion Errors.

	// ErrTooLarge indicates a document exceeds the maximum ingestible size.
	ErrTooLarge = errors.New("document too large")

	// ErrUnparsable indicates the content extractor could not parse a document.
	ErrUnparsable = errors.New("document could not be parsed")

	// ErrToolUnavailable indicates a required external command is not installed.
	ErrToolUnavailable = errors.New("external tool unavailable")

	// Upload Errors.

	// ErrTransport indicates a transient network failure talking to the index
	// (timeout, reset connection, throttling). Transport failures are retried.
	ErrTransport = errors.New("transport failure")

	// ErrIndexRejected indicates the index refused a whole request.
	// Rejected requests are not retried as a batch.
	ErrIndexRejected = errors.New("index rejected request")
)

// IsTransient reports whether err should be retried by the upload pipeline.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport)
}
