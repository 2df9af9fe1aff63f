package tabular

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readAll(t *testing.T, r *Reader) ([]*domain.Row, []string) {
	t.Helper()
	var rows []*domain.Row
	var bad []string
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, bad
		}
		if ue, ok := driven.AsUnitError(err); ok {
			bad = append(bad, ue.Ref)
			continue
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestReader_WithHeader(t *testing.T) {
	path := writeFile(t, "people.csv", "name,role\nAda,engineer\nGrace,admiral,extra\n")
	r, err := Open(path, "/files/people/people.csv", true)
	require.NoError(t, err)
	defer r.Close()

	rows, bad := readAll(t, r)
	assert.Empty(t, bad)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"name", "role"}, rows[0].Header)
	assert.Equal(t, 0, rows[0].Ordinal)
	assert.Equal(t, 1, rows[1].Ordinal)
	assert.Equal(t, []string{"Grace", "admiral", "extra"}, rows[1].Values)

	v, ok := rows[0].Column("role")
	assert.True(t, ok)
	assert.Equal(t, "engineer", v)

	assert.Equal(t, "people.csv", r.SourceName())
	assert.Equal(t, "/files/people/people.csv", r.DownloadURL())
}

func TestReader_Headerless(t *testing.T) {
	path := writeFile(t, "people.csv", "Ada,engineer\nGrace,admiral\n")
	r, err := Open(path, "u", false)
	require.NoError(t, err)
	defer r.Close()

	rows, _ := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].Header)
	assert.Equal(t, "Ada", rows[0].Values[0])
}

func TestReader_TSV(t *testing.T) {
	path := writeFile(t, "people.TSV", "a b\tc,d\n")
	r, err := Open(path, "u", false)
	require.NoError(t, err)
	defer r.Close()

	rows, _ := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a b", "c,d"}, rows[0].Values)
}

func TestReader_MalformedLine(t *testing.T) {
	path := writeFile(t, "bad.csv", "a,b\nx\"y,\"z\n")
	r, err := Open(path, "u", false)
	require.NoError(t, err)
	defer r.Close()

	rows, bad := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"bad.csv:2"}, bad)
}

func TestReader_EmptyFile(t *testing.T) {
	r, err := Open(writeFile(t, "empty.csv", ""), "u", true)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open("/no/such/file.csv", "u", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHasHeader(t *testing.T) {
	assert.False(t, HasHeader())
	assert.False(t, HasHeader("", ""))
	assert.False(t, HasHeader("0", "3"))
	assert.True(t, HasHeader("name", ""))
	assert.True(t, HasHeader("0", "body"))
}
