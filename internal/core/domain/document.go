package domain

import "time"

// Metadata keys shared between the extractor, the record variants and the index mapping.
const (
	MetaContentType  = "Content-Type"
	MetaCreationDate = "Creation-Date"
	MetaMessageTo    = "Message-To"
	MetaMessageFrom  = "Message-From"
	MetaMessageCc    = "Message-Cc"
	MetaSubject      = "subject"
	MetaTitle        = "title"
	MetaAttachments  = "attachments"
	MetaDKIMVerified = "dkim_verified"
	MetaPageCount    = "xmpTPg:NPages"
	MetaXAttachments = "X-Attachments"
)

// Record is the canonical search record delivered to the index.
// It is built once per source unit, archive member or CSV row.
type Record struct {
	// ID is the content-addressed identifier of the record.
	// It equals SHA1 and is the key used by bulk writes.
	ID string

	// SHA1 is the hex SHA-1 of the source URL plus discriminator.
	SHA1 string

	// Title is the human-readable title.
	Title string

	// SourceURL is the logical download URL shown to users.
	SourceURL string

	// Body is the analysed text indexed for search.
	Body string

	// Metadata contains variant-specific key-value pairs.
	Metadata map[string]any

	// UpdatedAt is when the record was built.
	UpdatedAt time.Time

	// SourceRef identifies where the record came from (path, object key,
	// archive member or CSV row). It is used for error reporting only and
	// is never sent to the index.
	SourceRef string
}

// RecordFile is the "file" section of the record body.
type RecordFile struct {
	Title string `json:"title"`
	File  string `json:"file"`
}

// RecordAnalyzed is the "analyzed" section of the record body.
type RecordAnalyzed struct {
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata"`
}

// RecordBody is the JSON document written to the index for a Record.
type RecordBody struct {
	ID        string         `json:"id"`
	SHA1      string         `json:"sha1"`
	Title     string         `json:"title"`
	SourceURL string         `json:"source_url"`
	File      RecordFile     `json:"file"`
	Analyzed  RecordAnalyzed `json:"analyzed"`
	UpdatedAt time.Time      `json:"_updatedAt"`
}

// IndexBody returns the index document for the record.
func (r *Record) IndexBody() RecordBody {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return RecordBody{
		ID:        r.ID,
		SHA1:      r.SHA1,
		Title:     r.Title,
		SourceURL: r.SourceURL,
		File: RecordFile{
			Title: r.Title,
			File:  r.Body,
		},
		Analyzed: RecordAnalyzed{
			Body:     r.Body,
			Metadata: metadata,
		},
		UpdatedAt: r.UpdatedAt,
	}
}

// SetMeta sets a metadata value, allocating the map if needed.
func (r *Record) SetMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}
