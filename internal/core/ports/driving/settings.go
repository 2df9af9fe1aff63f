package driving

import "github.com/custodia-labs/stevedore/internal/core/domain"

// SettingsService resolves run settings from the config file and environment.
type SettingsService interface {
	// UploadSettings returns the upload tunables with defaults applied.
	// Command-line flags are layered on top by the caller.
	UploadSettings() domain.UploadSettings

	// ServiceSettings returns the extractor, mapping, S3 and history settings.
	ServiceSettings() domain.ServiceSettings
}
