// Package cli provides the stevedore command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/core/ports/driving"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// UploadRequest carries the resolved settings of one upload to the
// composition root.
type UploadRequest struct {
	Target   domain.Target
	Settings domain.UploadSettings
	Services domain.ServiceSettings
}

// IngesterFactory assembles the ingestion service for one upload. The
// returned close function releases the index client and is never nil.
type IngesterFactory func(ctx context.Context, req UploadRequest) (driving.Ingester, func() error, error)

// Services holds what the commands need from the composition root.
type Services struct {
	// Settings resolves upload settings from the config file and environment.
	Settings driving.SettingsService

	// Config is the config file behind Settings.
	Config driven.ConfigStore

	// History lists earlier runs. Nil when run history is disabled.
	History driving.RunHistory

	// NewIngester assembles an ingester for an upload.
	NewIngester IngesterFactory

	// Close releases long-lived resources such as the history database.
	Close func() error
}

// WireFunc builds the services once global flags are parsed.
type WireFunc func(configDir string) (*Services, error)

var (
	wire WireFunc
	app  *Services

	verbose   bool
	configDir string
)

// skipWiring marks commands that run without services.
const skipWiring = "skip-wiring"

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Batch-ingest documents into a search index",
	Long: `Stevedore walks a directory, glob, CSV file or S3 prefix, unpacks
archives and mailboxes, extracts text with Tika (falling back to OCR for
scanned PDFs) and uploads one record per document to Elasticsearch.

Failed documents never stop a run; they are listed in the run report and
kept in the run history.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress and per-document warnings")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.stevedore)")
}

// SetWiring registers the function that builds services from the config directory.
func SetWiring(fn WireFunc) {
	wire = fn
}

// SetServices installs services directly, bypassing wiring.
func SetServices(s *Services) {
	app = s
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[skipWiring] == "true" || app != nil || wire == nil {
		return nil
	}
	s, err := wire(configDir)
	if err != nil {
		return err
	}
	app = s
	return nil
}

// Execute runs the root command and releases services afterwards.
func Execute() error {
	defer func() {
		if app != nil && app.Close != nil {
			if err := app.Close(); err != nil {
				logger.Warn("Failed to close services: %v", err)
			}
		}
	}()
	return rootCmd.Execute()
}
