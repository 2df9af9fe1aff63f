package services

import (
	"crypto/sha1" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"strconv"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// DocumentID returns the id of a standalone file.
func DocumentID(url string) string {
	return sha1Hex(url)
}

// MemberID returns the id of an archive member. Only the basename of the
// member name takes part, so two members of one archive need distinct basenames.
func MemberID(url, name string) string {
	return sha1Hex(url + domain.Basename(name))
}

// RowID returns the id of the nth row of a tabular file.
func RowID(url string, n int) string {
	return sha1Hex(url + strconv.Itoa(n))
}

// LinkIDs returns the ids an archive entry links to: its parent first,
// if any, then each of its attachments.
func LinkIDs(url string, entry domain.ArchiveEntry) []string {
	ids := make([]string, 0, len(entry.AttachmentNames)+1)
	if entry.HasParent() {
		ids = append(ids, MemberID(url, entry.ParentName))
	}
	for _, name := range entry.AttachmentNames {
		ids = append(ids, MemberID(url, name))
	}
	return ids
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // content addressing, not security
	return hex.EncodeToString(sum[:])
}
