package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jhillyerd/enmime"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// attachment is one file carried by a message.
type attachment struct {
	name  string
	write func(io.Writer) error
}

// messageGroup names a message and its attachments and links them both ways.
// Attachments are returned first, followed by the message.
func messageGroup(names *nameResolver, messageName string, write func(io.Writer) error, atts []attachment) []domain.ArchiveEntry {
	msgName := names.reserve(messageName)

	group := make([]domain.ArchiveEntry, 0, len(atts)+1)
	attNames := make([]string, 0, len(atts))
	for _, att := range atts {
		name := names.reserve(att.name)
		attNames = append(attNames, name)
		group = append(group, domain.ArchiveEntry{
			Name:       name,
			ParentName: msgName,
			Write:      att.write,
		})
	}

	group = append(group, domain.ArchiveEntry{
		Name:            msgName,
		AttachmentNames: attNames,
		Write:           write,
	})
	return group
}

// mimeAttachments parses raw as a MIME message and returns its named parts.
// An unparsable message yields no attachments; the message itself still counts.
func mimeAttachments(raw []byte, label string) []attachment {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		logger.Warn("Could not parse MIME structure of %s: %v", label, err)
		return nil
	}

	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines))
	parts = append(parts, env.Attachments...)
	parts = append(parts, env.Inlines...)

	var atts []attachment
	for i, part := range parts {
		name := part.FileName
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		atts = append(atts, attachment{name: name, write: writeBytes(part.Content)})
	}
	return atts
}

func writeBytes(b []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	}
}
