package extractor

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\r\x{00A0}]+`)
	paragraphBreak  = regexp.MustCompile(`\n\s*\n`)
	lineBreak       = regexp.MustCompile(`\s*\n\s*`)
)

const paragraphMark = "\x1e"

// cleanText collapses whitespace but keeps paragraph breaks as a single blank line.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, paragraphMark, " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = paragraphBreak.ReplaceAllString(text, paragraphMark)
	text = lineBreak.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, " "+paragraphMark, paragraphMark)
	text = strings.ReplaceAll(text, paragraphMark+" ", paragraphMark)
	text = strings.ReplaceAll(text, paragraphMark, "\n\n")
	return strings.TrimSpace(text)
}
