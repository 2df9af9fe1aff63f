package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// mockExtractor returns extractions keyed by file basename.
type mockExtractor struct {
	mu       sync.Mutex
	byName   map[string]domain.Extraction
	fallback func(path string) (domain.Extraction, error)
	failFor  map[string]bool
	calls    []string
}

func (m *mockExtractor) Extract(_ context.Context, path string) (domain.Extraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := filepath.Base(path)
	m.calls = append(m.calls, name)
	if m.failFor[name] {
		return domain.Extraction{}, fmt.Errorf("tika: 422 for %s", name)
	}
	if ext, ok := m.byName[name]; ok {
		return ext, nil
	}
	if m.fallback != nil {
		return m.fallback(path)
	}
	return domain.Extraction{
		Text:     "text of " + name,
		Metadata: map[string]any{domain.MetaContentType: "text/plain"},
	}, nil
}

// mockOCR writes nothing; it returns a configured rebuilt path.
type mockOCR struct {
	rebuilt string
	ok      bool
	err     error
	calls   int
}

func (m *mockOCR) OCR(_ context.Context, _ string) (string, bool, error) {
	m.calls++
	return m.rebuilt, m.ok, m.err
}

// mockIndex records writes. failBulk and failIndex decide per call.
type mockIndex struct {
	mu         sync.Mutex
	ensured    int
	ensureErr  error
	bulkCalls  [][]string
	indexCalls []string
	committed  map[string]bool
	failBulk   func(ids []string) (*driven.BulkResult, error)
	failIndex  func(id string) error
}

func newMockIndex() *mockIndex {
	return &mockIndex{committed: map[string]bool{}}
}

func (m *mockIndex) EnsureIndex(_ context.Context) error {
	m.ensured++
	return m.ensureErr
}

func (m *mockIndex) Index(_ context.Context, rec domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexCalls = append(m.indexCalls, rec.ID)
	if m.failIndex != nil {
		if err := m.failIndex(rec.ID); err != nil {
			return err
		}
	}
	m.committed[rec.ID] = true
	return nil
}

func (m *mockIndex) Bulk(_ context.Context, recs []domain.Record) (*driven.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	m.bulkCalls = append(m.bulkCalls, ids)

	result := &driven.BulkResult{}
	if m.failBulk != nil {
		res, err := m.failBulk(ids)
		if err != nil {
			return nil, err
		}
		if res != nil {
			result = res
		}
	}
	failed := map[string]bool{}
	for _, f := range result.Failed {
		failed[f.ID] = true
	}
	for _, id := range ids {
		if !failed[id] {
			m.committed[id] = true
		}
	}
	return result, nil
}

func (m *mockIndex) Close() error { return nil }

// mockConnector yields preset units and unit errors in order.
type mockConnector struct {
	items       []any // *domain.SourceUnit or error
	pos         int
	validateErr error
	closed      bool
}

func (m *mockConnector) Type() string { return "mock" }

func (m *mockConnector) Validate(_ context.Context) error { return m.validateErr }

func (m *mockConnector) Next(_ context.Context) (*domain.SourceUnit, error) {
	if m.pos >= len(m.items) {
		return nil, io.EOF
	}
	item := m.items[m.pos]
	m.pos++
	if err, ok := item.(error); ok {
		return nil, err
	}
	return item.(*domain.SourceUnit), nil
}

func (m *mockConnector) Close() error {
	m.closed = true
	return nil
}

// mockRows yields preset rows.
type mockRows struct {
	rows   []*domain.Row
	pos    int
	closed bool
}

func (m *mockRows) Next() (*domain.Row, error) {
	if m.pos >= len(m.rows) {
		return nil, io.EOF
	}
	row := m.rows[m.pos]
	m.pos++
	return row, nil
}

func (m *mockRows) SourceName() string  { return "people.csv" }
func (m *mockRows) DownloadURL() string { return "/files/people/people.csv" }
func (m *mockRows) Close() error {
	m.closed = true
	return nil
}

type mockFactory struct {
	conn *mockConnector
	rows *mockRows
	err  error
}

func (m *mockFactory) Create(_ context.Context, _ domain.Target) (driven.Connector, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.conn, nil
}

func (m *mockFactory) Rows(_ context.Context, _ domain.Target) (driven.RowReader, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

// memoryRunStore keeps saved reports.
type memoryRunStore struct {
	saved []domain.RunReport
}

func (m *memoryRunStore) Save(_ context.Context, r domain.RunReport) error {
	m.saved = append(m.saved, r)
	return nil
}

func (m *memoryRunStore) Get(_ context.Context, id string) (*domain.RunReport, error) {
	for i := range m.saved {
		if m.saved[i].ID == id {
			return &m.saved[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryRunStore) List(_ context.Context, _ int) ([]domain.RunReport, error) {
	return m.saved, nil
}
