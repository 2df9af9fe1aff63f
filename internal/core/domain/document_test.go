package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_IndexBody(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := Record{
		ID:        "abc",
		SHA1:      "abc",
		Title:     "Quarterly report",
		SourceURL: "/files/docs/report.pdf",
		Body:      "numbers",
		Metadata:  map[string]any{MetaContentType: "application/pdf"},
		UpdatedAt: now,
		SourceRef: "/data/report.pdf",
	}

	body := rec.IndexBody()
	assert.Equal(t, "abc", body.ID)
	assert.Equal(t, "Quarterly report", body.File.Title)
	assert.Equal(t, "numbers", body.File.File)
	assert.Equal(t, "numbers", body.Analyzed.Body)
	assert.Equal(t, "application/pdf", body.Analyzed.Metadata[MetaContentType])

	data, err := json.Marshal(body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"id", "sha1", "title", "source_url", "file", "analyzed", "_updatedAt"} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "SourceRef", "source ref must never reach the index")
}

func TestRecord_IndexBody_NilMetadata(t *testing.T) {
	rec := Record{ID: "x"}
	body := rec.IndexBody()
	assert.NotNil(t, body.Analyzed.Metadata)
	assert.Empty(t, body.Analyzed.Metadata)
}

func TestRecord_SetMeta(t *testing.T) {
	var rec Record
	rec.SetMeta(MetaAttachments, []string{"a"})
	assert.Equal(t, []string{"a"}, rec.Metadata[MetaAttachments])
}
