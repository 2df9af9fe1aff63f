package normalisers

import (
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// Boilerplate removes page chrome from HTML-derived text.
type Boilerplate interface {
	Strip(text string) string
}

// HTML renders web pages with their boilerplate removed.
type HTML struct {
	Boilerplate Boilerplate
}

// NewHTML creates an HTML variant. A nil boilerplate uses TagStripper.
func NewHTML(b Boilerplate) *HTML {
	if b == nil {
		b = TagStripper{}
	}
	return &HTML{Boilerplate: b}
}

// Kind returns KindHTML.
func (h *HTML) Kind() Kind { return KindHTML }

// ToRecord builds a web page record.
func (h *HTML) ToRecord(in Input) (*domain.Record, error) {
	rec := newRecord(in)
	rec.Title = fileTitle(in)
	rec.Body = h.Boilerplate.Strip(in.Extraction.Text)
	rec.Metadata = indexedMetadata(in.Extraction.Metadata)
	withAttachments(rec, in.Attachments)
	return rec, nil
}

// Pre-compiled regular expressions for HTML stripping.
var (
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	navTag            = regexp.MustCompile(`(?is)<(nav|footer|aside)[^>]*>.*?</(nav|footer|aside)>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	lineBreakTags     = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
)

// TagStripper drops scripts, styles, navigation and tags, keeping readable text.
type TagStripper struct{}

// Strip removes markup and collapses whitespace, one paragraph per line.
func (TagStripper) Strip(content string) string {
	for _, re := range []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, navTag, htmlComments} {
		content = re.ReplaceAllString(content, "")
	}

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = lineBreakTags.ReplaceAllString(content, "\n")
	content = markupTag.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	result := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}
