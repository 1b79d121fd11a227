// Package text cleans free-text scraped from web pages: markup removal,
// entity decoding, whitespace collapsing.
package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// entities lists the named entities decoded by Clean, in decode order.
// &amp; is decoded first so double-encoded sequences behave like the
// browser-visible text.
var entities = [][2]string{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
	{"&nbsp;", " "},
	{"&copy;", "©"},
	{"&reg;", "®"},
	{"&trade;", "™"},
}

// Clean strips markup tags, decodes common HTML entities, collapses runs of
// whitespace to a single space and trims the result. The empty string marks
// the absent value: pure-markup input (e.g. "<b></b>") cleans to "".
func Clean(raw string) string {
	s := tagRe.ReplaceAllString(raw, "")
	for _, e := range entities {
		s = strings.ReplaceAll(s, e[0], e[1])
	}
	s = spaceRe.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.TrimSpace(s))
}

// FirstLine returns the first non-blank line of raw text, cleaned.
func FirstLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if c := Clean(line); c != "" {
			return c
		}
	}
	return ""
}
