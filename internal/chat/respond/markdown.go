// internal/chat/respond/markdown.go
package respond

import (
	"regexp"
	"strings"
)

// Supported syntax is deliberately small: **bold** and *bold* both become
// <b>, newlines become <br>. The generative service emits only these; a
// general markdown library would change the output on its quirkier inputs.
var (
	doubleStarRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
	singleStarRe = regexp.MustCompile(`\*(.+?)\*`)
)

// FormatHTML converts generated markdown emphasis and newlines to HTML.
func FormatHTML(text string) string {
	out := doubleStarRe.ReplaceAllString(text, "<b>$1</b>")
	out = singleStarRe.ReplaceAllString(out, "<b>$1</b>")
	return strings.ReplaceAll(out, "\n", "<br>")
}
