package feed

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// News bodies arrive either as Steam's lightweight markup or as plain HTML,
// with no field saying which. If any recognized opening marker is present the
// body is parsed as markup; otherwise it is escaped as a textual fallback.
// The fallback escapes bodies that are usually already HTML; that behavior is
// kept as observed in production feeds.

// recognizedTags is the fixed markup subset the sanitizer understands. Link
// tags are matched by opening marker only so [url=...] variants count.
var recognizedTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"img", "url", "b", "i", "u", "s", "code",
}

var markupTagRe = regexp.MustCompile(`(?i)\[(/?)(h[1-6]|img|url|b|i|u|s|code)(=[^\]]*)?\]`)

// Sanitize converts a news body into safe HTML. Plain-text spans are
// HTML-escaped; recognized markup becomes the corresponding HTML element.
func Sanitize(body string) string {
	if hasMarkup(body) {
		return renderMarkup(body)
	}
	return html.EscapeString(body)
}

// hasMarkup scans case-insensitively for any recognized opening marker.
func hasMarkup(body string) bool {
	lower := strings.ToLower(body)
	for _, tag := range recognizedTags {
		if strings.Contains(lower, "["+tag) {
			return true
		}
	}
	return false
}

// renderMarkup walks the body tag by tag, escaping the text between tags and
// emitting the HTML element for each recognized tag.
func renderMarkup(body string) string {
	var out strings.Builder
	pos := 0

	for pos < len(body) {
		loc := markupTagRe.FindStringSubmatchIndex(body[pos:])
		if loc == nil {
			out.WriteString(html.EscapeString(body[pos:]))
			break
		}

		matchStart, matchEnd := pos+loc[0], pos+loc[1]
		out.WriteString(html.EscapeString(body[pos:matchStart]))

		closing := loc[2] != loc[3]
		name := strings.ToLower(body[pos+loc[4] : pos+loc[5]])
		arg := ""
		if loc[6] != -1 {
			arg = body[pos+loc[6]+1 : pos+loc[7]] // skip the leading '='
		}

		switch {
		case name == "img" && !closing:
			src, next := innerValue(body, matchEnd, "[/img]")
			fmt.Fprintf(&out, `<img src="%s">`, html.EscapeString(strings.TrimSpace(src)))
			pos = next
			continue
		case name == "url" && !closing:
			if arg != "" {
				fmt.Fprintf(&out, `<a href="%s">`, html.EscapeString(strings.TrimSpace(arg)))
			} else {
				href, _ := innerValue(body, matchEnd, "[/url]")
				fmt.Fprintf(&out, `<a href="%s">`, html.EscapeString(strings.TrimSpace(href)))
			}
		case name == "url" && closing:
			out.WriteString("</a>")
		case closing:
			fmt.Fprintf(&out, "</%s>", name)
		default:
			fmt.Fprintf(&out, "<%s>", name)
		}

		pos = matchEnd
	}

	return out.String()
}

// innerValue returns the raw text between from and the next occurrence of the
// closing marker, plus the scan position after the marker. Without a closing
// marker the rest of the body is the value.
func innerValue(body string, from int, closeMarker string) (string, int) {
	rest := body[from:]
	idx := strings.Index(strings.ToLower(rest), closeMarker)
	if idx < 0 {
		return rest, len(body)
	}
	return rest[:idx], from + idx + len(closeMarker)
}
