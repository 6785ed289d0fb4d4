// Package markup strips the back-tick page format served by overlay nodes
// down to plain text and extracts its internal/external links.
package markup

import (
	"regexp"
	"strings"
)

var (
	reShortColor = regexp.MustCompile("`[fb]")
	reLongColor  = regexp.MustCompile("`[FB]...")
	reTags       = regexp.MustCompile("`<[^>]*>")
	reComment    = regexp.MustCompile("(?m)#.*$")
	reQuoteStart = regexp.MustCompile(`(?m)^[ \t]*>+`)
	reSpaces     = regexp.MustCompile(`[ \t]+`)
	reParagraph  = regexp.MustCompile(`\n\s*\n+`)
)

// toggleChars are the single-letter format toggles stripped as "`x".
const toggleChars = "car!_="

// Strip converts a page body to a plain-text approximation suitable for
// indexing. It is idempotent: Strip(Strip(x)) == Strip(x).
//
// The short-form color escape (`f/`b, 2 chars) must be stripped before the
// long-form escape (`F.../`B..., 5 chars): the long-form regex only matches
// uppercase, so running it first would leave a short-form lowercase escape
// untouched, and running short-form after long-form would incorrectly eat
// into whatever follows a long-form escape's already-consumed tail.
func Strip(text string) string {
	text = reShortColor.ReplaceAllString(text, "")
	text = reLongColor.ReplaceAllString(text, "")

	for _, c := range toggleChars {
		text = strings.ReplaceAll(text, "`"+string(c), "")
	}

	text = reTags.ReplaceAllString(text, " ")
	text = reComment.ReplaceAllString(text, "")
	text = reQuoteStart.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\\", " ")
	text = reSpaces.ReplaceAllString(text, " ")
	text = reParagraph.ReplaceAllString(text, "\n\n")
	text = strings.ReplaceAll(text, "`", "")

	return text
}
