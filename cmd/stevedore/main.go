// Command stevedore batch-ingests documents into a search index.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/stevedore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/stevedore/internal/adapters/driven/extractor/tika"
	"github.com/custodia-labs/stevedore/internal/adapters/driven/index/elasticsearch"
	"github.com/custodia-labs/stevedore/internal/adapters/driven/ocr"
	"github.com/custodia-labs/stevedore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/stevedore/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/stevedore/internal/adapters/driving/cli"
	"github.com/custodia-labs/stevedore/internal/archive"
	"github.com/custodia-labs/stevedore/internal/connectors"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/core/ports/driving"
	"github.com/custodia-labs/stevedore/internal/core/services"
	"github.com/custodia-labs/stevedore/internal/logger"
	"github.com/custodia-labs/stevedore/internal/normalisers"
	"github.com/custodia-labs/stevedore/internal/postprocessors"
)

func main() {
	// A missing .env is normal; a malformed one is worth knowing about.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	cli.SetWiring(wire)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// wire builds the long-lived services: the config file and run history.
// Per-upload collaborators are assembled by newIngester.
func wire(configDir string) (*cli.Services, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate home directory: %w", err)
		}
		configDir = filepath.Join(home, ".stevedore")
	}

	cfg, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settings := services.NewSettingsService(cfg)

	var (
		runStore driven.RunStore
		history  driving.RunHistory
		closeFn  = func() error { return nil }
	)
	if settings.ServiceSettings().HistoryEnabled {
		store, err := sqlite.NewStore(filepath.Join(configDir, "data"))
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		logger.Debug("Run history at %s", store.Path())
		runStore = store.RunStore()
		history = services.NewRunHistoryService(runStore)
		closeFn = store.Close
	} else {
		runStore = memory.NewRunStore()
	}

	return &cli.Services{
		Settings:    settings,
		Config:      cfg,
		History:     history,
		NewIngester: ingesterFactory(runStore),
		Close:       closeFn,
	}, nil
}

// ingesterFactory assembles the pipeline of one upload from its settings.
func ingesterFactory(runStore driven.RunStore) cli.IngesterFactory {
	return func(_ context.Context, req cli.UploadRequest) (driving.Ingester, func() error, error) {
		mapping := elasticsearch.DefaultMapping()
		if req.Services.MappingFile != "" {
			m, err := elasticsearch.LoadMapping(req.Services.MappingFile)
			if err != nil {
				return nil, nil, err
			}
			mapping = m
		}

		index, err := elasticsearch.New(elasticsearch.Config{
			Host:    req.Settings.IndexHost,
			Index:   req.Settings.IndexName,
			Mapping: mapping,
		})
		if err != nil {
			return nil, nil, err
		}

		var ocrTools driven.OCR
		if req.Settings.OCR {
			tools := ocr.New()
			if err := tools.Available(); err != nil {
				logger.Warn("Scanned PDFs will not be OCRed: %v", err)
			}
			ocrTools = tools
		}

		registry := postprocessors.NewRegistry()
		postprocessors.RegisterDefaults(registry)
		pipeline, err := postprocessors.BuildDefaultPipeline(registry, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("build post-processors: %w", err)
		}

		opts := services.BuilderOptions{
			OCR:              req.Settings.OCR,
			MaxDocumentBytes: req.Settings.MaxDocumentBytes,
			TitleColumn:      req.Settings.TitleColumn,
			TextColumn:       req.Settings.TextColumn,
		}
		if req.Settings.VerifyDKIM {
			opts.DKIM = normalisers.DKIMVerifier{}
		}
		builder := services.NewRecordBuilder(
			tika.New(tika.Config{BaseURL: req.Services.ExtractorURL}),
			ocrTools,
			pipeline,
			opts,
		)

		factory := connectors.NewFactory(req.Settings, connectors.S3Options{
			Region:            req.Services.S3Region,
			RequestsPerSecond: req.Services.S3RequestsPerSecond,
		})

		ingester := services.NewIngester(
			factory,
			archive.NewDecomposer(),
			builder,
			index,
			runStore,
			req.Settings,
		)
		return ingester, index.Close, nil
	}
}
