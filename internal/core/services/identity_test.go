package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

const testURL = "https://bucket.s3.amazonaws.com/mail/inbox.mbox"

func TestDocumentID(t *testing.T) {
	assert.Equal(t, DocumentID(testURL), DocumentID(testURL))
	assert.Len(t, DocumentID(testURL), 40)
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", DocumentID(""))
}

func TestMemberID(t *testing.T) {
	t.Run("basename is the discriminator", func(t *testing.T) {
		assert.Equal(t, MemberID(testURL, "0.eml"), MemberID(testURL, "folder/0.eml"))
		assert.Equal(t, DocumentID(testURL+"0.eml"), MemberID(testURL, "0.eml"))
	})

	t.Run("members of one archive differ", func(t *testing.T) {
		assert.NotEqual(t, MemberID(testURL, "0.eml"), MemberID(testURL, "1.eml"))
		assert.NotEqual(t, DocumentID(testURL), MemberID(testURL, "0.eml"))
	})
}

func TestRowID(t *testing.T) {
	url := "/files/people/people.csv"
	assert.Equal(t, DocumentID(url+"0"), RowID(url, 0))
	assert.NotEqual(t, RowID(url, 1), RowID(url, 2))
	// Row 1 of one file and row 11 of the same file are not confused.
	assert.NotEqual(t, RowID(url, 1), RowID(url, 11))
}

func TestLinkIDs(t *testing.T) {
	t.Run("message lists its attachments", func(t *testing.T) {
		entry := domain.ArchiveEntry{Name: "3.eml", AttachmentNames: []string{"a.pdf", "b.png"}}
		assert.Equal(t, []string{MemberID(testURL, "a.pdf"), MemberID(testURL, "b.png")}, LinkIDs(testURL, entry))
	})

	t.Run("attachment lists its parent", func(t *testing.T) {
		entry := domain.ArchiveEntry{Name: "a.pdf", ParentName: "3.eml"}
		assert.Equal(t, []string{MemberID(testURL, "3.eml")}, LinkIDs(testURL, entry))
	})

	t.Run("linkage is symmetric", func(t *testing.T) {
		msg := domain.ArchiveEntry{Name: "3.eml", AttachmentNames: []string{"a.pdf"}}
		att := domain.ArchiveEntry{Name: "a.pdf", ParentName: "3.eml"}
		assert.Contains(t, LinkIDs(testURL, msg), MemberID(testURL, att.Name))
		assert.Contains(t, LinkIDs(testURL, att), MemberID(testURL, msg.Name))
	})

	t.Run("standalone entry links nothing", func(t *testing.T) {
		assert.Empty(t, LinkIDs(testURL, domain.ArchiveEntry{Name: "x.txt"}))
	})
}
