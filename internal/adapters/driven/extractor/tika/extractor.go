// Package tika provides a content extractor backed by an Apache Tika server.
package tika

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:9998"
	DefaultTimeout = 5 * time.Minute
)

// contentKey holds the extracted text in a Tika metadata object.
const contentKey = "X-TIKA:content"

// Config holds configuration for the Tika extractor.
type Config struct {
	// BaseURL is the Tika server URL (default: http://localhost:9998).
	BaseURL string

	// Timeout is the per-document request timeout (default: 5m).
	Timeout time.Duration
}

// Extractor sends files to Tika's recursive metadata endpoint.
type Extractor struct {
	client  *http.Client
	baseURL string
}

// New creates a Tika extractor.
func New(cfg Config) *Extractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Extractor{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Extract uploads the file and returns the text and metadata of the
// container document. Embedded documents are ingested separately by the
// archive decomposer, so only the first metadata object is used.
func (e *Extractor) Extract(ctx context.Context, path string) (domain.Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.baseURL+"/rmeta/text", f)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(path)}))

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("send request: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusUnsupportedMediaType:
		return domain.Extraction{}, fmt.Errorf("tika status %d: %w", resp.StatusCode, domain.ErrUnparsable)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Extraction{}, fmt.Errorf("tika error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var objects []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return domain.Extraction{}, fmt.Errorf("decode response: %w", err)
	}
	if len(objects) == 0 {
		return domain.Extraction{}, fmt.Errorf("empty tika response: %w", domain.ErrUnparsable)
	}
	return toExtraction(objects[0]), nil
}

// toExtraction splits the content out of a Tika metadata object.
// Multi-valued fields arrive as JSON arrays and become []string.
func toExtraction(obj map[string]any) domain.Extraction {
	text, _ := obj[contentKey].(string)
	meta := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == contentKey {
			continue
		}
		if list, ok := v.([]any); ok {
			values := make([]string, 0, len(list))
			for _, item := range list {
				values = append(values, fmt.Sprint(item))
			}
			meta[k] = values
			continue
		}
		meta[k] = v
	}
	return domain.Extraction{Text: text, Metadata: meta}
}
