package normalisers

import (
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// Verifier checks the DKIM signatures of a message file.
type Verifier interface {
	Verify(path string) (bool, error)
}

// Email renders mail messages. The body is kept verbatim.
type Email struct {
	// DKIM verifies standalone .eml files when set.
	DKIM Verifier
}

// Kind returns KindEmail.
func (e *Email) Kind() Kind { return KindEmail }

// ToRecord builds a mail message record.
func (e *Email) ToRecord(in Input) (*domain.Record, error) {
	ext := in.Extraction
	rec := newRecord(in)
	rec.Title = ext.MetaString(domain.MetaSubject)
	rec.Body = ext.Text

	rec.Metadata["to"] = addresses(ext.MetaList(domain.MetaMessageTo))
	rec.Metadata["from"] = addresses(ext.MetaList(domain.MetaMessageFrom))
	rec.Metadata["cc"] = addresses(ext.MetaList(domain.MetaMessageCc))
	rec.Metadata["subject"] = rec.Title
	if created := ext.MetaString(domain.MetaCreationDate); created != "" {
		rec.Metadata[domain.MetaCreationDate] = created
	}
	rec.Metadata[domain.MetaAttachments] = nonNil(in.Attachments)

	if e.DKIM != nil && strings.EqualFold(filepath.Ext(in.Path), ".eml") {
		ok, err := e.DKIM.Verify(in.Path)
		if err != nil {
			logger.Warn("DKIM check failed for %s: %v", in.SourceRef, err)
		}
		rec.Metadata[domain.MetaDKIMVerified] = ok
	}
	return rec, nil
}

// addresses splits header values into one entry per mailbox. A value that
// does not parse as an address list is kept as it is.
func addresses(values []string) []string {
	out := []string{}
	for _, v := range values {
		list, err := mail.ParseAddressList(v)
		if err != nil {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
			continue
		}
		for _, a := range list {
			if a.Name != "" {
				out = append(out, a.Name+" <"+a.Address+">")
			} else {
				out = append(out, a.Address)
			}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
