// Package archive splits container files into their constituent documents.
//
// Supported formats are selected by file extension:
//
//   - zip: one entry per member file
//   - mbox: one .eml entry per message, plus its MIME attachments
//   - pst: one synthetic .eml entry per message, plus its attachments
//   - eml: the message itself, plus its MIME attachments
//
// Decomposition is lazy. Entries are produced one message (or member) at a
// time, and bytes are only written when an entry is materialised. Within a
// message group, attachments come before the message that contains them.
//
// Every decomposition owns a scratch directory which Close removes.
package archive
