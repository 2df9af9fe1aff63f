package services

import (
	"os"
	"time"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	KeyIndexHost        = "index.host"
	KeyIndexName        = "index.name"
	KeyMappingFile      = "index.mapping_file"
	KeyExtractorURL     = "extractor.url"
	KeyBatchSize        = "upload.batch_size"
	KeyMaxRetries       = "upload.max_retries"
	KeyRetryBackoff     = "upload.retry_backoff"
	KeyMaxDocumentBytes = "upload.max_document_bytes"
	KeyExtractWorkers   = "upload.extract_workers"
	KeyOCREnabled       = "ocr.enabled"
	KeyS3Region         = "s3.region"
	KeyS3Bucket         = "s3.bucket"
	KeyS3Path           = "s3.path"
	KeyS3RequestsPerSec = "s3.requests_per_second"
	KeyVerifyDKIM       = "email.verify_dkim"
	KeyHistoryEnabled   = "history.enabled"
)

// ConfigKeys lists every key the settings service reads.
var ConfigKeys = []string{
	KeyIndexHost, KeyIndexName, KeyMappingFile, KeyExtractorURL,
	KeyBatchSize, KeyMaxRetries, KeyRetryBackoff, KeyMaxDocumentBytes, KeyExtractWorkers,
	KeyOCREnabled, KeyS3Region, KeyS3Bucket, KeyS3Path, KeyS3RequestsPerSec,
	KeyVerifyDKIM, KeyHistoryEnabled,
}

// Environment variables that override the config file.
const (
	EnvIndexHost    = "STEVEDORE_ES_HOST"
	EnvExtractorURL = "STEVEDORE_TIKA_URL"
)

// SettingsService reads run settings from the config store. Environment
// variables take precedence over stored values for the index host and the
// extractor URL.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithGetenv replaces os.Getenv, for tests.
func WithGetenv(fn func(string) string) SettingsOption {
	return func(s *SettingsService) {
		s.getenv = fn
	}
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadSettings returns upload settings from the config file with defaults applied.
func (s *SettingsService) UploadSettings() domain.UploadSettings {
	defaults := domain.DefaultUploadSettings()

	host := s.getenv(EnvIndexHost)
	if host == "" {
		host = s.getString(KeyIndexHost, defaults.IndexHost)
	}

	return domain.UploadSettings{
		IndexHost: host,
		IndexName: s.configStore.GetString(KeyIndexName),
		BatchSize: s.getInt(KeyBatchSize, defaults.BatchSize),
		Retry: domain.RetryPolicy{
			MaxAttempts: s.getIntOrZero(KeyMaxRetries, defaults.Retry.MaxAttempts),
			Backoff:     s.getDuration(KeyRetryBackoff, defaults.Retry.Backoff),
		},
		MaxDocumentBytes: int64(s.getInt(KeyMaxDocumentBytes, int(defaults.MaxDocumentBytes))),
		ExtractWorkers:   s.getInt(KeyExtractWorkers, defaults.ExtractWorkers),
		OCR:              s.getBool(KeyOCREnabled, defaults.OCR),
		VerifyDKIM:       s.getBool(KeyVerifyDKIM, defaults.VerifyDKIM),
		S3Bucket:         s.configStore.GetString(KeyS3Bucket),
		S3Path:           s.configStore.GetString(KeyS3Path),
	}
}

// ServiceSettings returns the extractor, mapping, S3 and history settings.
func (s *SettingsService) ServiceSettings() domain.ServiceSettings {
	defaults := domain.DefaultServiceSettings()

	extractor := s.getenv(EnvExtractorURL)
	if extractor == "" {
		extractor = s.getString(KeyExtractorURL, defaults.ExtractorURL)
	}

	return domain.ServiceSettings{
		ExtractorURL:        extractor,
		MappingFile:         s.configStore.GetString(KeyMappingFile),
		S3Region:            s.getString(KeyS3Region, defaults.S3Region),
		S3RequestsPerSecond: s.configStore.GetFloat(KeyS3RequestsPerSec),
		HistoryEnabled:      s.getBool(KeyHistoryEnabled, defaults.HistoryEnabled),
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntOrZero is getInt for keys where an explicit zero is meaningful.
func (s *SettingsService) getIntOrZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetDuration(key)
}
