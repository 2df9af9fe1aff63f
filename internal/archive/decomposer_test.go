package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

const testMbox = "From alice@example.com Mon Jan  1 00:00:00 2024\n" +
	"From: Alice <alice@example.com>\n" +
	"To: bob@example.com\n" +
	"Subject: First\n" +
	"\n" +
	"Hello Bob.\n" +
	"From here on, nothing splits.\n" +
	"\n" +
	"From bob@example.com Mon Jan  1 00:00:01 2024\n" +
	"From: Bob <bob@example.com>\n" +
	"To: alice@example.com\n" +
	"Subject: Second\n" +
	"MIME-Version: 1.0\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\n" +
	"\n" +
	"--XYZ\n" +
	"Content-Type: text/plain\n" +
	"\n" +
	"See attached.\n" +
	"--XYZ\n" +
	"Content-Type: text/plain\n" +
	"Content-Disposition: attachment; filename=\"notes.txt\"\n" +
	"\n" +
	"the notes\n" +
	"--XYZ--\n"

const testEML = "From: Carol <carol@example.com>\r\n" +
	"To: dave@example.com\r\n" +
	"Subject: Scans\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"B\"\r\n" +
	"\r\n" +
	"--B\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Two scans attached.\r\n" +
	"--B\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"scan.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQgZmlyc3Q=\r\n" +
	"--B\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"scan.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQgc2Vjb25k\r\n" +
	"--B--\r\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeZip(t *testing.T, dir string, files map[string]string, order []string) string {
	t.Helper()
	path := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func collect(t *testing.T, it driven.EntryIterator) []domain.ArchiveEntry {
	t.Helper()
	var entries []domain.ArchiveEntry
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	require.NoError(t, it.Err())
	return entries
}

func materialise(t *testing.T, it driven.EntryIterator, e domain.ArchiveEntry) string {
	t.Helper()
	path, err := e.Materialise(it.Dir())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestDecomposer_Zip(t *testing.T) {
	dir := t.TempDir()
	path := writeZip(t, dir, map[string]string{
		"a/report.txt": "first report",
		"b/report.txt": "second report",
		"empty/":       "",
		"c.txt":        "see",
	}, []string{"a/report.txt", "empty/", "b/report.txt", "c.txt"})

	d := NewDecomposer(WithScratchRoot(dir))
	it, err := d.Open(context.Background(), path, domain.ArchiveZip)
	require.NoError(t, err)
	defer it.Close()

	var names, bodies []string
	for it.Next() {
		e := it.Entry()
		names = append(names, e.Name)
		bodies = append(bodies, materialise(t, it, e))
		assert.False(t, e.HasParent())
	}
	require.NoError(t, it.Err())

	assert.Equal(t, []string{"a/report.txt", "b/1-report.txt", "c.txt"}, names)
	assert.Equal(t, []string{"first report", "second report", "see"}, bodies)
	assert.FileExists(t, filepath.Join(it.Dir(), "1-report.txt"))
}

func TestDecomposer_Mbox(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mail.mbox", testMbox)

	it, err := NewDecomposer(WithScratchRoot(dir)).Open(context.Background(), path, domain.ArchiveMbox)
	require.NoError(t, err)
	defer it.Close()

	var entries []domain.ArchiveEntry
	var bodies []string
	for it.Next() {
		e := it.Entry()
		entries = append(entries, e)
		bodies = append(bodies, materialise(t, it, e))
	}
	require.NoError(t, it.Err())
	require.Len(t, entries, 3)

	t.Run("first message has no attachments", func(t *testing.T) {
		assert.Equal(t, "0.eml", entries[0].Name)
		assert.Empty(t, entries[0].AttachmentNames)
		assert.True(t, strings.HasPrefix(bodies[0], "From alice@example.com"))
		assert.True(t, strings.HasSuffix(bodies[0], "From here on, nothing splits.\n"))
	})

	t.Run("attachment precedes its message", func(t *testing.T) {
		assert.Equal(t, "notes.txt", entries[1].Name)
		assert.Equal(t, "1.eml", entries[1].ParentName)
		assert.Contains(t, bodies[1], "the notes")

		assert.Equal(t, "1.eml", entries[2].Name)
		assert.Equal(t, []string{"notes.txt"}, entries[2].AttachmentNames)
		assert.Contains(t, bodies[2], "Subject: Second")
	})
}

func TestDecomposer_EML_CollidingAttachments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scans.eml", testEML)

	it, err := NewDecomposer(WithScratchRoot(dir)).Open(context.Background(), path, domain.ArchiveEML)
	require.NoError(t, err)
	defer it.Close()

	entries := collect(t, it)
	require.Len(t, entries, 3)

	assert.Equal(t, "scan.pdf", entries[0].Name)
	assert.Equal(t, "2-scan.pdf", entries[1].Name)
	assert.Equal(t, "scans.eml", entries[2].Name)
	assert.Equal(t, []string{"scan.pdf", "2-scan.pdf"}, entries[2].AttachmentNames)
	for _, e := range entries[:2] {
		assert.Equal(t, "scans.eml", e.ParentName)
	}

	assert.Equal(t, "%PDF-1.4 first", materialise(t, it, entries[0]))
	assert.Equal(t, "%PDF-1.4 second", materialise(t, it, entries[1]))
}

func TestDecomposer_CloseRemovesScratch(t *testing.T) {
	dir := t.TempDir()
	path := writeZip(t, dir, map[string]string{"a.txt": "a"}, []string{"a.txt"})

	it, err := NewDecomposer(WithScratchRoot(dir)).Open(context.Background(), path, domain.ArchiveZip)
	require.NoError(t, err)

	require.True(t, it.Next())
	materialise(t, it, it.Entry())
	scratch := it.Dir()
	assert.DirExists(t, scratch)

	require.NoError(t, it.Close())
	assert.NoDirExists(t, scratch)
	assert.False(t, it.Next())
	assert.NoError(t, it.Close())
}

func TestDecomposer_Errors(t *testing.T) {
	dir := t.TempDir()
	d := NewDecomposer(WithScratchRoot(dir))

	t.Run("unsupported format", func(t *testing.T) {
		_, err := d.Open(context.Background(), "x.rar", domain.ArchiveFormat("rar"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("corrupt zip", func(t *testing.T) {
		path := writeFile(t, dir, "broken.zip", "not a zip at all")
		_, err := d.Open(context.Background(), path, domain.ArchiveZip)
		assert.ErrorIs(t, err, domain.ErrUnparsable)
	})

	t.Run("missing mbox", func(t *testing.T) {
		_, err := d.Open(context.Background(), filepath.Join(dir, "nope.mbox"), domain.ArchiveMbox)
		assert.Error(t, err)
	})

	t.Run("scratch is not leaked on open failure", func(t *testing.T) {
		matches, err := filepath.Glob(filepath.Join(dir, "stevedore-archive-*"))
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestDecomposer_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeZip(t, dir, map[string]string{"a.txt": "a"}, []string{"a.txt"})

	ctx, cancel := context.WithCancel(context.Background())
	it, err := NewDecomposer(WithScratchRoot(dir)).Open(ctx, path, domain.ArchiveZip)
	require.NoError(t, err)
	defer it.Close()

	cancel()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), context.Canceled)
}

func TestRenderPSTMessage_SynthesisesHeaders(t *testing.T) {
	raw := string(renderPSTMessage(fakePSTMessage{
		subject: "Quarterly",
		sender:  "Erin",
		address: "erin@example.com",
		to:      "Frank",
		body:    "numbers",
		submit:  1704067200,
	}))

	assert.Contains(t, raw, "Subject: Quarterly\r\n")
	assert.Contains(t, raw, "From: \"Erin\" <erin@example.com>\r\n")
	assert.Contains(t, raw, "To: Frank\r\n")
	assert.Contains(t, raw, "Date: Mon, 01 Jan 2024 00:00:00 +0000\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=utf-8\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nnumbers"))
}

func TestRenderPSTMessage_KeepsTransportHeaders(t *testing.T) {
	raw := string(renderPSTMessage(fakePSTMessage{
		headers: "Subject: From transport\r\nContent-Type: multipart/alternative; boundary=x\r\nX-Mailer: Outlook",
		subject: "ignored",
		body:    "text",
	}))

	assert.Contains(t, raw, "Subject: From transport\r\n")
	assert.Contains(t, raw, "X-Mailer: Outlook\r\n")
	assert.NotContains(t, raw, "multipart/alternative")
	assert.NotContains(t, raw, "ignored")
}

func TestRenderPSTMessage_UnknownItemType(t *testing.T) {
	raw := string(renderPSTMessage(struct{}{}))
	assert.Contains(t, raw, "Mime-Version: 1.0\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n"))
}

func TestPSTSubmitTime_Filetime(t *testing.T) {
	// 2024-01-01T00:00:00Z as FILETIME.
	ts := pstSubmitTime(fakePSTMessage{submit: 133485408000000000})
	assert.Equal(t, "2024-01-01T00:00:00Z", ts.Format("2006-01-02T15:04:05Z07:00"))
}

type fakePSTMessage struct {
	headers, subject, sender, address, to, body string
	submit                                      int64
}

func (m fakePSTMessage) GetTransportMessageHeaders() string { return m.headers }
func (m fakePSTMessage) GetSubject() string                 { return m.subject }
func (m fakePSTMessage) GetSenderName() string              { return m.sender }
func (m fakePSTMessage) GetSenderEmailAddress() string      { return m.address }
func (m fakePSTMessage) GetDisplayTo() string               { return m.to }
func (m fakePSTMessage) GetBody() string                    { return m.body }
func (m fakePSTMessage) GetClientSubmitTime() int64         { return m.submit }
