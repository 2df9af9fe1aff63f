package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Default upload settings.
const (
	DefaultBatchSize        = 100
	DefaultMaxAttempts      = 10
	DefaultRetryBackoff     = 5 * time.Second
	DefaultMaxDocumentBytes = 30 * 1000 * 1000
	DefaultExtractWorkers   = 1
	DefaultIndexHost        = "localhost:9200"
	DefaultExtractorURL     = "http://localhost:9998"
)

// RetryPolicy bounds how often a batch is resubmitted after a transport failure.
type RetryPolicy struct {
	// MaxAttempts is the number of submissions before degrading.
	// Zero or negative means retry until the batch succeeds.
	MaxAttempts int

	// Backoff is the fixed pause between attempts.
	Backoff time.Duration
}

// Unbounded reports whether the policy never gives up.
func (p RetryPolicy) Unbounded() bool {
	return p.MaxAttempts <= 0
}

// Exhausted reports whether attempt (1-based) was the last allowed one.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return !p.Unbounded() && attempt >= p.MaxAttempts
}

// UploadSettings holds the tunables of one ingestion run.
type UploadSettings struct {
	// IndexHost is the search index address (host:port or URL).
	IndexHost string

	// IndexName is the destination index.
	IndexName string

	// BatchSize is the number of source units per batch.
	BatchSize int

	// Retry is the transport-failure retry policy, shared by file and row uploads.
	Retry RetryPolicy

	// MaxDocumentBytes is the largest file or extracted text accepted.
	MaxDocumentBytes int64

	// ExtractWorkers bounds concurrent extraction inside one batch.
	ExtractWorkers int

	// OCR enables the scanned-PDF fallback.
	OCR bool

	// VerifyDKIM enables DKIM verification of standalone .eml files.
	VerifyDKIM bool

	// S3Bucket is the bucket documents are (or will be) served from.
	S3Bucket string

	// S3Path is the key prefix inside S3Bucket, defaulting to the index name.
	S3Path string

	// TitleColumn and TextColumn select CSV columns by name or zero-based index.
	TitleColumn string
	TextColumn  string
}

// DefaultUploadSettings returns settings with every default applied.
func DefaultUploadSettings() UploadSettings {
	return UploadSettings{
		IndexHost: DefaultIndexHost,
		BatchSize: DefaultBatchSize,
		Retry: RetryPolicy{
			MaxAttempts: DefaultMaxAttempts,
			Backoff:     DefaultRetryBackoff,
		},
		MaxDocumentBytes: DefaultMaxDocumentBytes,
		ExtractWorkers:   DefaultExtractWorkers,
		OCR:              true,
	}
}

// Validate checks the settings that a run cannot start without.
func (s UploadSettings) Validate() error {
	if s.IndexHost == "" {
		return fmt.Errorf("%w: specify the index host", ErrConfig)
	}
	if s.IndexName == "" {
		return fmt.Errorf("%w: specify a destination index", ErrConfig)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrConfig, s.BatchSize)
	}
	if s.MaxDocumentBytes <= 0 {
		return fmt.Errorf("%w: max document size must be positive", ErrConfig)
	}
	if s.Retry.Backoff < 0 {
		return fmt.Errorf("%w: retry backoff must not be negative", ErrConfig)
	}
	return nil
}

// S3BaseURL returns the public URL prefix of documents served from S3,
// or the empty string when no bucket is configured.
func (s UploadSettings) S3BaseURL() string {
	if s.S3Bucket == "" {
		return ""
	}
	path := s.S3Path
	if path == "" {
		path = s.IndexName
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s/", s.S3Bucket, path)
}

// DownloadURL returns the public URL of a file at rel, relative to the
// ingested directory: under S3BaseURL when a bucket is configured,
// otherwise under /files/<index>/.
func (s UploadSettings) DownloadURL(rel string) string {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	if base := s.S3BaseURL(); base != "" {
		return base + rel
	}
	return "/files/" + s.IndexName + "/" + rel
}

// ServiceSettings locates the collaborators of a run other than the index.
type ServiceSettings struct {
	// ExtractorURL is the base URL of the text extraction server.
	ExtractorURL string

	// MappingFile optionally replaces the default field mapping.
	MappingFile string

	// S3Region is the region of the source bucket. Empty leaves it to the
	// AWS environment.
	S3Region string

	// S3RequestsPerSecond caps object-store requests. Zero means no cap.
	S3RequestsPerSecond float64

	// HistoryEnabled persists run reports.
	HistoryEnabled bool
}

// DefaultServiceSettings returns service settings with every default applied.
func DefaultServiceSettings() ServiceSettings {
	return ServiceSettings{
		ExtractorURL:   DefaultExtractorURL,
		HistoryEnabled: true,
	}
}
