// Package s3 enumerates and downloads the objects under an S3 prefix.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// API is the subset of the S3 client the connector uses.
type API interface {
	s3.ListObjectsV2APIClient
	manager.DownloadAPIClient
}

// Options tunes the connector.
type Options struct {
	// RequestsPerSecond bounds list and download calls. Zero means unlimited.
	RequestsPerSecond float64

	// ScratchRoot is where downloaded objects are stored. Empty means os.TempDir.
	ScratchRoot string
}

// Connector lists the keys under a prefix page by page and downloads each
// object to its own scratch directory when it is requested.
type Connector struct {
	api     API
	bucket  string
	prefix  string
	opts    Options
	limiter *rate.Limiter

	pages   *s3.ListObjectsV2Paginator
	pending []types.Object
}

// New creates a connector over bucket/prefix.
func New(api API, bucket, prefix string, opts Options) *Connector {
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Connector{
		api:     api,
		bucket:  bucket,
		prefix:  prefix,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// NewClient builds an S3 client from the default credential chain.
// Transient failures are retried by the SDK up to maxAttempts times.
func NewClient(ctx context.Context, region string, maxAttempts int) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer {
			if maxAttempts <= 0 {
				return retry.NewStandard()
			}
			return retry.AddWithMaxAttempts(retry.NewStandard(), maxAttempts)
		}),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "s3"
}

// Validate performs a single-key list call to check the bucket is reachable.
func (c *Connector) Validate(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(c.prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return fmt.Errorf("bucket %s does not exist: %w", c.bucket, domain.ErrNotFound)
		}
		if IsAccessDenied(err) {
			return fmt.Errorf("no access to s3://%s (check AWS credentials): %w", c.bucket, domain.ErrConfig)
		}
		return fmt.Errorf("list s3://%s/%s: %w", c.bucket, c.prefix, err)
	}
	return nil
}

// Next downloads the next object. Keys ending in "/" are skipped.
// A missing or undownloadable object is reported as a *driven.UnitError.
func (c *Connector) Next(ctx context.Context) (*domain.SourceUnit, error) {
	obj, err := c.nextObject(ctx)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(obj.Key)
	ref := fmt.Sprintf("s3://%s/%s", c.bucket, key)

	local, cleanup, err := c.download(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &driven.UnitError{Ref: ref, Err: err}
	}
	return &domain.SourceUnit{
		Path:        local,
		Ref:         ref,
		DownloadURL: ObjectURL(c.bucket, key),
		Cleanup:     cleanup,
	}, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.pending = nil
	return nil
}

// ObjectURL returns the public URL of an object.
func ObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

func (c *Connector) nextObject(ctx context.Context) (types.Object, error) {
	if c.pages == nil {
		c.pages = s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
			Bucket: aws.String(c.bucket),
			Prefix: aws.String(c.prefix),
		})
	}
	for {
		for len(c.pending) > 0 {
			obj := c.pending[0]
			c.pending = c.pending[1:]
			if strings.HasSuffix(aws.ToString(obj.Key), "/") {
				continue
			}
			return obj, nil
		}
		if !c.pages.HasMorePages() {
			return types.Object{}, io.EOF
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return types.Object{}, err
		}
		page, err := c.pages.NextPage(ctx)
		if err != nil {
			return types.Object{}, fmt.Errorf("list s3://%s/%s: %w", c.bucket, c.prefix, err)
		}
		c.pending = page.Contents
	}
}

// download fetches key into a fresh scratch directory, keeping its base name
// so the extension survives for classification.
func (c *Connector) download(ctx context.Context, key string) (string, func(), error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp(c.opts.ScratchRoot, "stevedore-s3-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("Failed to remove %s: %v", dir, err)
		}
	}

	local := filepath.Join(dir, path.Base(key))
	f, err := os.Create(local)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("create %s: %w", local, err)
	}

	downloader := manager.NewDownloader(c.api)
	n, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	_ = f.Close()
	if err != nil {
		cleanup()
		if IsNotFound(err) {
			return "", nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
		}
		return "", nil, fmt.Errorf("download %s: %w", key, err)
	}
	logger.Debug("Downloaded s3://%s/%s (%d bytes)", c.bucket, key, n)
	return local, cleanup, nil
}

// IsNotFound reports whether err is an S3 missing-key error. HEAD requests
// carry no body, so a missing key can also surface as a bare "NotFound" code.
func IsNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	return hasErrorCode(err, "NoSuchKey", "NotFound")
}

// IsAccessDenied reports whether S3 refused the request for the caller's
// credentials.
func IsAccessDenied(err error) bool {
	return hasErrorCode(err, "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch")
}

func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}
