package connectors

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/stevedore/internal/connectors/filesystem"
	"github.com/custodia-labs/stevedore/internal/connectors/s3"
	"github.com/custodia-labs/stevedore/internal/connectors/tabular"
	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// S3Options configures access to the object store.
type S3Options struct {
	// Region overrides the region from the environment.
	Region string

	// RequestsPerSecond bounds list and download calls. Zero means unlimited.
	RequestsPerSecond float64

	// MaxAttempts bounds the SDK retryer per request.
	MaxAttempts int
}

// S3ClientFunc builds the object store client on first use.
type S3ClientFunc func(ctx context.Context, region string, maxAttempts int) (s3.API, error)

// Factory creates connectors for run targets.
type Factory struct {
	settings domain.UploadSettings
	s3Opts   S3Options
	newS3    S3ClientFunc
}

// Option configures a Factory.
type Option func(*Factory)

// WithS3Client replaces the S3 client constructor.
func WithS3Client(fn S3ClientFunc) Option {
	return func(f *Factory) {
		f.newS3 = fn
	}
}

// NewFactory creates a connector factory. Download URLs of local files are
// derived from settings.
func NewFactory(settings domain.UploadSettings, s3Opts S3Options, opts ...Option) *Factory {
	f := &Factory{
		settings: settings,
		s3Opts:   s3Opts,
		newS3: func(ctx context.Context, region string, maxAttempts int) (s3.API, error) {
			return s3.NewClient(ctx, region, maxAttempts)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the connector for a local or S3 target.
func (f *Factory) Create(ctx context.Context, target domain.Target) (driven.Connector, error) {
	switch target.Kind {
	case domain.TargetLocal:
		return filesystem.New(target.Raw, f.settings.DownloadURL), nil
	case domain.TargetS3:
		api, err := f.newS3(ctx, f.s3Opts.Region, f.s3Opts.MaxAttempts)
		if err != nil {
			return nil, err
		}
		return s3.New(api, target.Bucket, target.Prefix, s3.Options{
			RequestsPerSecond: f.s3Opts.RequestsPerSecond,
		}), nil
	default:
		return nil, fmt.Errorf("%w: no connector for %s targets", domain.ErrUnsupportedType, target.Kind)
	}
}

// Rows opens the reader for a tabular target. The file has a header row
// when a column is selected by name.
func (f *Factory) Rows(_ context.Context, target domain.Target) (driven.RowReader, error) {
	if target.Kind != domain.TargetTabular {
		return nil, fmt.Errorf("%w: %s is not a tabular target", domain.ErrUnsupportedType, target.Raw)
	}
	url := f.settings.DownloadURL(filepath.Base(target.Raw))
	hasHeader := tabular.HasHeader(f.settings.TitleColumn, f.settings.TextColumn)
	return tabular.Open(target.Raw, url, hasHeader)
}
