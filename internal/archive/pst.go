package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	pst "github.com/mooijtech/go-pst/v6/pkg"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/logger"
)

var errWalkStopped = errors.New("pst walk stopped")

// pstGroup is one message group handed from the walker to the consumer.
type pstGroup struct {
	entries []domain.ArchiveEntry
	err     error
}

// pstSource walks a PST file in a background goroutine.
//
// The walker and the consumer take turns: the walker only touches the file
// after the consumer asks for the next group, and the consumer only
// materialises entries while the walker is parked. Entries of a group must
// therefore be materialised before the following group is requested.
type pstSource struct {
	req      chan struct{}
	out      chan pstGroup
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func openPST(path string) (*pstSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pst %s: %w", path, err)
	}
	pstFile, err := pst.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open pst %s: %w: %v", path, domain.ErrUnparsable, err)
	}

	s := newPSTSource()
	go s.run(func(acquire func() bool, send func(pstGroup) bool) error {
		return walkPST(pstFile, acquire, send)
	}, func() {
		pstFile.Cleanup()
		f.Close()
	})
	return s, nil
}

func newPSTSource() *pstSource {
	return &pstSource{
		req:  make(chan struct{}),
		out:  make(chan pstGroup),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// run executes walk on the walker side of the hand-off. walk must call
// acquire before touching the file and send for every group; both return
// false once the consumer has closed the source.
func (s *pstSource) run(walk func(acquire func() bool, send func(pstGroup) bool) error, cleanup func()) {
	defer close(s.done)
	defer close(s.out)
	defer cleanup()

	hasTurn := false
	acquire := func() bool {
		if hasTurn {
			return true
		}
		select {
		case <-s.req:
			hasTurn = true
			return true
		case <-s.stop:
			return false
		}
	}
	send := func(g pstGroup) bool {
		select {
		case s.out <- g:
			hasTurn = false
			return true
		case <-s.stop:
			return false
		}
	}

	if err := walk(acquire, send); err != nil && !errors.Is(err, errWalkStopped) {
		send(pstGroup{err: fmt.Errorf("walk pst: %w", err)})
	}
}

func walkPST(pstFile *pst.File, acquire func() bool, send func(pstGroup) bool) error {
	names := newNameResolver()
	count := 0

	return pstFile.WalkFolders(func(folder *pst.Folder) error {
		if !acquire() {
			return errWalkStopped
		}
		messages, err := folder.GetMessageIterator()
		if errors.Is(err, pst.ErrMessagesNotFound) {
			return nil
		} else if err != nil {
			logger.Warn("Skipping unreadable PST folder after message %d: %v", count, err)
			return nil
		}

		for {
			if !acquire() {
				return errWalkStopped
			}
			if !messages.Next() {
				break
			}
			name := fmt.Sprintf("%d.eml", count)
			count++
			group, ok := pstMessageGroup(names, name, messages.Value())
			if !ok {
				continue
			}
			if !send(pstGroup{entries: group}) {
				return errWalkStopped
			}
		}
		if err := messages.Err(); err != nil {
			logger.Warn("Stopped reading PST folder early after message %d: %v", count, err)
		}
		return nil
	})
}

// pstMessageGroup renders one PST message as an .eml entry plus attachments.
// A message that cannot be rendered is logged and skipped.
func pstMessageGroup(names *nameResolver, name string, message *pst.Message) (group []domain.ArchiveEntry, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Skipping unreadable PST message %s: %v", name, r)
			group, ok = nil, false
		}
	}()

	raw := renderPSTMessage(message.Properties)

	var atts []attachment
	attachments, err := message.GetAttachmentIterator()
	switch {
	case errors.Is(err, pst.ErrAttachmentsNotFound):
	case err != nil:
		logger.Warn("Could not read attachments of PST message %s: %v", name, err)
	default:
		for attachments.Next() {
			a := attachments.Value()
			atts = append(atts, attachment{
				name:  pstAttachmentName(a),
				write: pstAttachmentWriter(a),
			})
		}
		if err := attachments.Err(); err != nil {
			logger.Warn("Stopped reading attachments of PST message %s: %v", name, err)
		}
	}

	return messageGroup(names, name, writeBytes(raw), atts), true
}

func pstAttachmentName(a *pst.Attachment) string {
	if n, ok := any(a).(interface{ GetAttachLongFilename() string }); ok && n.GetAttachLongFilename() != "" {
		return n.GetAttachLongFilename()
	}
	if n, ok := any(a).(interface{ GetAttachFilename() string }); ok && n.GetAttachFilename() != "" {
		return n.GetAttachFilename()
	}
	return fmt.Sprintf("attachment-%d", a.Identifier)
}

func pstAttachmentWriter(a *pst.Attachment) func(io.Writer) error {
	return func(w io.Writer) error {
		wt, ok := any(a).(io.WriterTo)
		if !ok {
			return fmt.Errorf("pst attachment %d: %w", a.Identifier, domain.ErrUnsupportedType)
		}
		_, err := wt.WriteTo(w)
		return err
	}
}

// renderPSTMessage builds an RFC 822 message from PST properties.
// Transport headers are kept when present; otherwise minimal headers are
// synthesised from whatever properties the item type carries.
func renderPSTMessage(props any) []byte {
	header := mail.Header{}
	if p, ok := props.(interface{ GetTransportMessageHeaders() string }); ok {
		if h := strings.TrimSpace(p.GetTransportMessageHeaders()); h != "" {
			if msg, err := mail.ReadMessage(strings.NewReader(h + "\r\n\r\n")); err == nil {
				header = msg.Header
			}
		}
	}

	setIfMissing := func(key, value string) {
		if value == "" || header.Get(key) != "" {
			return
		}
		header[key] = []string{value}
	}

	setIfMissing("Subject", mime.QEncoding.Encode("utf-8", pstString(props, "GetSubject")))
	from := pstString(props, "GetSenderEmailAddress")
	if name := pstString(props, "GetSenderName"); name != "" {
		if from == "" {
			from = name
		} else {
			from = (&mail.Address{Name: name, Address: from}).String()
		}
	}
	setIfMissing("From", from)
	setIfMissing("To", pstString(props, "GetDisplayTo"))
	setIfMissing("Cc", pstString(props, "GetDisplayCc"))
	if ts := pstSubmitTime(props); !ts.IsZero() {
		setIfMissing("Date", ts.Format(time.RFC1123Z))
	}

	// The original MIME structure is gone; the body below is plain text.
	for _, key := range []string{"Content-Type", "Content-Transfer-Encoding", "Mime-Version", "Content-Disposition"} {
		delete(header, key)
	}
	header["Mime-Version"] = []string{"1.0"}
	header["Content-Type"] = []string{"text/plain; charset=utf-8"}

	body := pstString(props, "GetBody")
	if body == "" {
		body = pstString(props, "GetBodyHtml")
	}

	var buf bytes.Buffer
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range header[k] {
			fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
		}
	}
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

// pstString reads a string property by getter name, if the item type has it.
func pstString(props any, getter string) string {
	switch getter {
	case "GetSubject":
		if p, ok := props.(interface{ GetSubject() string }); ok {
			return p.GetSubject()
		}
	case "GetSenderName":
		if p, ok := props.(interface{ GetSenderName() string }); ok {
			return p.GetSenderName()
		}
	case "GetSenderEmailAddress":
		if p, ok := props.(interface{ GetSenderEmailAddress() string }); ok {
			return p.GetSenderEmailAddress()
		}
	case "GetDisplayTo":
		if p, ok := props.(interface{ GetDisplayTo() string }); ok {
			return p.GetDisplayTo()
		}
	case "GetDisplayCc":
		if p, ok := props.(interface{ GetDisplayCc() string }); ok {
			return p.GetDisplayCc()
		}
	case "GetBody":
		if p, ok := props.(interface{ GetBody() string }); ok {
			return p.GetBody()
		}
	case "GetBodyHtml":
		if p, ok := props.(interface{ GetBodyHtml() string }); ok {
			return p.GetBodyHtml()
		}
	}
	return ""
}

// pstSubmitTime converts the submit time property. Values large enough to be
// Windows FILETIME (100ns ticks since 1601) are converted, others are Unix seconds.
func pstSubmitTime(props any) time.Time {
	p, ok := props.(interface{ GetClientSubmitTime() int64 })
	if !ok {
		return time.Time{}
	}
	v := p.GetClientSubmitTime()
	switch {
	case v <= 0:
		return time.Time{}
	case v > 1e15:
		const epochDelta = 116444736000000000
		return time.Unix(0, (v-epochDelta)*100).UTC()
	default:
		return time.Unix(v, 0).UTC()
	}
}

func (s *pstSource) next() ([]domain.ArchiveEntry, error) {
	var (
		g  pstGroup
		ok bool
	)
	select {
	case s.req <- struct{}{}:
		g, ok = <-s.out
	case g, ok = <-s.out:
	}
	if !ok {
		return nil, io.EOF
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.entries, nil
}

func (s *pstSource) close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
