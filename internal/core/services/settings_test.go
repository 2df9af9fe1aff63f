package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stevedore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/stevedore/internal/core/domain"
)

func newTestConfigStore(t *testing.T) *file.ConfigStore {
	t.Helper()
	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func noEnv(string) string { return "" }

func TestSettingsService_UploadSettings_Defaults(t *testing.T) {
	service := NewSettingsService(newTestConfigStore(t), WithGetenv(noEnv))

	settings := service.UploadSettings()

	defaults := domain.DefaultUploadSettings()
	assert.Equal(t, defaults, settings)
}

func TestSettingsService_UploadSettings_StoredValues(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set(KeyIndexHost, "es.internal:9200"))
	require.NoError(t, store.Set(KeyIndexName, "mail"))
	require.NoError(t, store.Set(KeyBatchSize, int64(25)))
	require.NoError(t, store.Set(KeyMaxRetries, int64(0)))
	require.NoError(t, store.Set(KeyRetryBackoff, "250ms"))
	require.NoError(t, store.Set(KeyMaxDocumentBytes, int64(1000)))
	require.NoError(t, store.Set(KeyExtractWorkers, int64(4)))
	require.NoError(t, store.Set(KeyOCREnabled, false))
	require.NoError(t, store.Set(KeyVerifyDKIM, true))
	require.NoError(t, store.Set(KeyS3Bucket, "docs"))
	require.NoError(t, store.Set(KeyS3Path, "mail-2024"))

	settings := NewSettingsService(store, WithGetenv(noEnv)).UploadSettings()

	assert.Equal(t, "es.internal:9200", settings.IndexHost)
	assert.Equal(t, "mail", settings.IndexName)
	assert.Equal(t, 25, settings.BatchSize)
	assert.Equal(t, 0, settings.Retry.MaxAttempts, "explicit zero retries until success")
	assert.True(t, settings.Retry.Unbounded())
	assert.Equal(t, 250*time.Millisecond, settings.Retry.Backoff)
	assert.Equal(t, int64(1000), settings.MaxDocumentBytes)
	assert.Equal(t, 4, settings.ExtractWorkers)
	assert.False(t, settings.OCR)
	assert.True(t, settings.VerifyDKIM)
	assert.Equal(t, "docs", settings.S3Bucket)
	assert.Equal(t, "mail-2024", settings.S3Path)
}

func TestSettingsService_EnvOverridesConfig(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set(KeyIndexHost, "from-config:9200"))
	require.NoError(t, store.Set(KeyExtractorURL, "http://from-config:9998"))
	env := map[string]string{
		EnvIndexHost:    "from-env:9200",
		EnvExtractorURL: "http://from-env:9998",
	}

	service := NewSettingsService(store, WithGetenv(func(k string) string { return env[k] }))

	assert.Equal(t, "from-env:9200", service.UploadSettings().IndexHost)
	assert.Equal(t, "http://from-env:9998", service.ServiceSettings().ExtractorURL)
}

func TestSettingsService_ServiceSettings_Defaults(t *testing.T) {
	service := NewSettingsService(newTestConfigStore(t), WithGetenv(noEnv))

	assert.Equal(t, domain.DefaultServiceSettings(), service.ServiceSettings())
}

func TestSettingsService_ServiceSettings_StoredValues(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set(KeyExtractorURL, "http://tika:9998"))
	require.NoError(t, store.Set(KeyMappingFile, "/etc/stevedore/mapping.yaml"))
	require.NoError(t, store.Set(KeyS3Region, "eu-west-1"))
	require.NoError(t, store.Set(KeyS3RequestsPerSec, 2.5))
	require.NoError(t, store.Set(KeyHistoryEnabled, false))

	settings := NewSettingsService(store, WithGetenv(noEnv)).ServiceSettings()

	assert.Equal(t, "http://tika:9998", settings.ExtractorURL)
	assert.Equal(t, "/etc/stevedore/mapping.yaml", settings.MappingFile)
	assert.Equal(t, "eu-west-1", settings.S3Region)
	assert.InDelta(t, 2.5, settings.S3RequestsPerSecond, 1e-9)
	assert.False(t, settings.HistoryEnabled)
}

func TestConfigKeys_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range ConfigKeys {
		assert.False(t, seen[k], k)
		seen[k] = true
	}
	assert.Len(t, ConfigKeys, 16)
}
