package normalisers

import "regexp"

var markupTag = regexp.MustCompile(`</?[^>]+>`)

// CleanText removes every markup tag from s.
func CleanText(s string) string {
	return markupTag.ReplaceAllString(s, "")
}
