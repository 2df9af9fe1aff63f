package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// mboxSource splits an mbox file into messages. A message starts at a line
// beginning with "From " that follows an empty line (or the start of file).
type mboxSource struct {
	f         *os.File
	r         *bufio.Reader
	names     *nameResolver
	carry     string
	prevEmpty bool
	eof       bool
	count     int
}

func openMbox(path string) (*mboxSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mbox %s: %w", path, err)
	}
	return &mboxSource{
		f:         f,
		r:         bufio.NewReaderSize(f, 64*1024),
		names:     newNameResolver(),
		prevEmpty: true,
	}, nil
}

func (m *mboxSource) next() ([]domain.ArchiveEntry, error) {
	for {
		raw, err := m.readMessage()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}

		name := fmt.Sprintf("%d.eml", m.count)
		m.count++
		// The envelope line is not a header; leave it out of MIME parsing.
		mimePart := raw
		if strings.HasPrefix(mimePart, "From ") {
			if i := strings.IndexByte(mimePart, '\n'); i >= 0 {
				mimePart = mimePart[i+1:]
			}
		}
		atts := mimeAttachments([]byte(mimePart), name)
		return messageGroup(m.names, name, writeBytes([]byte(raw)), atts), nil
	}
}

// readMessage returns the next raw message without its trailing separator line.
func (m *mboxSource) readMessage() (string, error) {
	if m.eof && m.carry == "" {
		return "", io.EOF
	}

	var lines []string
	if m.carry != "" {
		lines = append(lines, m.carry)
		m.carry = ""
	}

	for !m.eof {
		line, err := m.r.ReadString('\n')
		if line != "" {
			if m.prevEmpty && strings.HasPrefix(line, "From ") && len(lines) > 0 {
				m.carry = line
				m.prevEmpty = false
				break
			}
			m.prevEmpty = isBlankLine(line)
			lines = append(lines, line)
		}
		if err == io.EOF {
			m.eof = true
			break
		}
		if err != nil {
			return "", fmt.Errorf("read mbox: %w", err)
		}
	}

	if len(lines) == 0 {
		return "", io.EOF
	}
	if isBlankLine(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, ""), nil
}

func isBlankLine(line string) bool {
	return line == "\n" || line == "\r\n" || line == "\r"
}

func (m *mboxSource) close() error {
	return m.f.Close()
}
