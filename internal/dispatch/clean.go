package dispatch

import (
	"regexp"
	"strings"

	"github.com/linq-team/bluebridge/internal/agent"
)

// Model output is prose for a chat bubble, not a markdown renderer, so
// residual formatting artifacts are stripped before sending.
var (
	dashNewline  = regexp.MustCompile(`\n\s*-\s*`)
	boldMarks    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicMarks  = regexp.MustCompile(`(^|[^\w])_([^_]+)_($|[^\w])`)
	strayStars   = regexp.MustCompile(`(^|[^\w])\*([^*]+)\*($|[^\w])`)
	multiSpace   = regexp.MustCompile(`  +`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// cleanSegment normalizes one outgoing message: inline the stray
// list-dash newlines, strip bold/italic markers, collapse runs of
// spaces and blank lines, trim.
func cleanSegment(text string) string {
	text = dashNewline.ReplaceAllString(text, " - ")
	text = italicMarks.ReplaceAllString(text, "$1$2$3")
	text = boldMarks.ReplaceAllString(text, "$1")
	text = strayStars.ReplaceAllString(text, "$1$2$3")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// splitSegments breaks the model's response into the ordered list of
// messages to send: split on the delimiter first, then clean each piece
// (cleaning first would mangle the delimiter), drop empties.
func splitSegments(text string) []string {
	if text == "" {
		return nil
	}
	var segments []string
	for _, part := range strings.Split(text, agent.Delimiter) {
		if cleaned := cleanSegment(part); cleaned != "" {
			segments = append(segments, cleaned)
		}
	}
	return segments
}
