// Package elasticsearch provides the search index adapter.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.SearchIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultRequestTimeout = 5 * time.Minute
)

// Config holds configuration for the index adapter.
type Config struct {
	// Host is the cluster address, with or without scheme.
	Host string

	// Index is the destination index name.
	Index string

	// Mapping replaces DefaultMapping when set.
	Mapping map[string]any

	// RequestTimeout bounds each request (default: 5m).
	RequestTimeout time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Index writes records to one Elasticsearch index.
// Retries are left to the upload pipeline, so the client's own are disabled.
type Index struct {
	client  *es.Client
	name    string
	mapping map[string]any
	timeout time.Duration
}

// New creates an index adapter. No request is made until EnsureIndex.
func New(cfg Config) (*Index, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: specify the index host", domain.ErrConfig)
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("%w: specify a destination index", domain.ErrConfig)
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	mapping := cfg.Mapping
	if mapping == nil {
		mapping = DefaultMapping()
	}

	client, err := es.NewClient(es.Config{
		Addresses:    []string{hostURL(cfg.Host)},
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Index{
		client:  client,
		name:    cfg.Index,
		mapping: mapping,
		timeout: cfg.RequestTimeout,
	}, nil
}

// hostURL adds a scheme to bare host:port addresses.
func hostURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}

// EnsureIndex creates the index with the analysis settings and puts the
// mapping. An index that already exists is reused.
func (x *Index) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	body, err := json.Marshal(indexSettings())
	if err != nil {
		return fmt.Errorf("encode index settings: %w", err)
	}
	res, err := x.client.Indices.Create(x.name,
		x.client.Indices.Create.WithBody(bytes.NewReader(body)),
		x.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", x.name, classify(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		msg := readError(res)
		if !alreadyExists(msg) {
			return fmt.Errorf("create index %s: %w", x.name, statusError(res.StatusCode, msg))
		}
		logger.Debug("Index %s already exists", x.name)
	}

	body, err = json.Marshal(x.mapping)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	res, err = x.client.Indices.PutMapping([]string{x.name}, bytes.NewReader(body),
		x.client.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("put mapping on %s: %w", x.name, classify(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("put mapping on %s: %w", x.name, statusError(res.StatusCode, readError(res)))
	}
	return nil
}

// Index writes a single record keyed by its ID.
func (x *Index) Index(ctx context.Context, rec domain.Record) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	body, err := json.Marshal(rec.IndexBody())
	if err != nil {
		return fmt.Errorf("encode %s: %w: %v", rec.ID, domain.ErrIndexRejected, err)
	}
	res, err := x.client.Index(x.name, bytes.NewReader(body),
		x.client.Index.WithDocumentID(rec.ID),
		x.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index %s: %w", rec.ID, classify(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s: %w", rec.ID, statusError(res.StatusCode, readError(res)))
	}
	return nil
}

type bulkResponse struct {
	Errors bool                                `json:"errors"`
	Items  []map[string]bulkResponseItemResult `json:"items"`
}

type bulkResponseItemResult struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

// Bulk writes records in one request and reports per-item failures.
func (x *Index) Bulk(ctx context.Context, recs []domain.Record) (*driven.BulkResult, error) {
	if len(recs) == 0 {
		return &driven.BulkResult{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range recs {
		action := map[string]any{"index": map[string]any{"_index": x.name, "_id": rec.ID}}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("encode bulk action: %w: %v", domain.ErrIndexRejected, err)
		}
		if err := enc.Encode(rec.IndexBody()); err != nil {
			return nil, fmt.Errorf("encode %s: %w: %v", rec.ID, domain.ErrIndexRejected, err)
		}
	}

	size, start := buf.Len(), time.Now()
	res, err := x.client.Bulk(&buf,
		x.client.Bulk.WithIndex(x.name),
		x.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("bulk write: %w", classify(err))
	}
	defer res.Body.Close()
	if logger.Enabled(logger.LevelDebug) {
		logger.Debug("Bulk write of %d records (%d bytes) took %s",
			len(recs), size, time.Since(start).Round(time.Millisecond))
	}
	if res.IsError() {
		return nil, fmt.Errorf("bulk write: %w", statusError(res.StatusCode, readError(res)))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	result := &driven.BulkResult{}
	if !parsed.Errors {
		return result, nil
	}
	for _, item := range parsed.Items {
		for _, r := range item {
			if r.Error == nil && r.Status < 300 {
				continue
			}
			reason := fmt.Sprintf("status %d", r.Status)
			if r.Error != nil {
				reason = r.Error.Type + ": " + r.Error.Reason
			}
			result.Failed = append(result.Failed, driven.BulkItemError{
				ID:     r.ID,
				Status: r.Status,
				Reason: reason,
			})
		}
	}
	return result, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

func readError(res *esapi.Response) string {
	b, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err != nil {
		return res.Status()
	}
	return strings.TrimSpace(string(b))
}

func alreadyExists(msg string) bool {
	return strings.Contains(msg, "resource_already_exists_exception") ||
		strings.Contains(msg, "already exists")
}

// statusError maps an error response onto the pipeline's error classes:
// 429 is transient, anything else is a rejection of the whole request.
func statusError(status int, msg string) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d: %s", domain.ErrTransport, status, msg)
	}
	return fmt.Errorf("%w: status %d: %s", domain.ErrIndexRejected, status, msg)
}

// classify wraps client-side failures. Timeouts, socket errors and dropped
// connections are transient.
func classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	return err
}
